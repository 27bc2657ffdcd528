package providers

import (
	"encoding/json"

	"github.com/blase-lsp/blase/text"
	. "github.com/blase-lsp/blase/utils"
	proto "github.com/tliron/glsp/protocol_3_16"
)

// rawCapabilities holds the client capabilities that protocol_3_16 does
// not model.
type rawCapabilities struct {
	Capabilities struct {
		General *struct {
			PositionEncodings []string `json:"positionEncodings"`
		} `json:"general"`
	} `json:"capabilities"`
}

func positionEncodings(params json.RawMessage) []string {
	var raw rawCapabilities

	if err := json.Unmarshal(params, &raw); err != nil || raw.Capabilities.General == nil {
		return nil
	}

	return raw.Capabilities.General.PositionEncodings
}

func toChanges(list []any) []text.Change {
	changes := make([]text.Change, 0, len(list))

	for _, wrap := range list {
		switch change := wrap.(type) {
		case proto.TextDocumentContentChangeEventWhole:
			changes = append(changes, text.FullReplace{Text: change.Text})

		case proto.TextDocumentContentChangeEvent:
			if change.Range == nil {
				changes = append(changes, text.FullReplace{Text: change.Text})
				continue
			}

			changes = append(changes, text.RangeReplace{Range: *change.Range, Text: change.Text})
		}
	}

	return changes
}

func publishVersion(version *int32) *proto.UInteger {
	if version == nil || *version < 0 {
		return nil
	}

	return P(proto.UInteger(*version))
}

func fullReplace(body string) []text.Change {
	return []text.Change{text.FullReplace{Text: body}}
}
