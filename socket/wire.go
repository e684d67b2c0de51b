package socket

import (
	"encoding/json"

	"github.com/watchonly/mwck/chain"
)

// trackScriptpubkeysMessage is the client->server subscription frame (spec
// §6): a JSON object carrying the entire active script-set, never a delta.
type trackScriptpubkeysMessage struct {
	TrackScriptpubkeys []string `json:"track-scriptpubkeys"`
}

func encodeTrackScriptpubkeys(active map[string]chain.Script) (TextFrame, error) {
	hexes := make([]string, 0, len(active))
	for _, spk := range active {
		hexes = append(hexes, spk.String())
	}
	data, err := json.Marshal(trackScriptpubkeysMessage{TrackScriptpubkeys: hexes})
	if err != nil {
		return "", err
	}
	return TextFrame(data), nil
}
