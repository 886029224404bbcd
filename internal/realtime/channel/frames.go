package channel

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/labpulse/labpulse/internal/common/cnst"
)

var (
	ErrNotJSON       = errors.New("frame is not valid json")
	ErrMissingAction = errors.New("frame has no action")
)

// Frame is one inbound client request. Only the fields the frame's action
// needs are expected to be set; handlers validate their own slice.
type Frame struct {
	Action   cnst.ActionType `json:"action"`
	ID       string          `json:"id,omitempty"`
	Scope    string          `json:"scope,omitempty"`
	Command  string          `json:"command,omitempty"`
	Params   map[string]any  `json:"params,omitempty"`
	Status   string          `json:"status,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// ParseFrame peeks the action with gjson before committing to a full decode,
// so a garbage blob is rejected without allocating the frame.
func ParseFrame(raw []byte) (*Frame, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrNotJSON
	}
	if gjson.GetBytes(raw, "action").String() == "" {
		return nil, ErrMissingAction
	}

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}
