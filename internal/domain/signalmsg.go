package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	FrameJoinRoom     = "join-room"
	FrameOffer        = "offer"
	FrameAnswer       = "answer"
	FrameICECandidate = "ice-candidate"
	FrameCallStatus   = "call-status"

	// Emitted by the relay, never accepted from clients.
	FrameUserJoined = "user-joined"
	FrameUserLeft   = "user-left"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingType    = errors.New("frame type is required")
)

// Frame is an inbound signaling message. Fields keeps every top-level
// member verbatim so it can be forwarded untouched.
type Frame struct {
	Type           string
	ConsultationID string
	Fields         map[string]json.RawMessage
}

// ParseFrame decodes a JSON object frame. A frame without a string type is
// rejected.
func ParseFrame(raw []byte) (*Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrMalformedFrame
	}

	var typ string
	if rawType, ok := fields["type"]; ok {
		if err := json.Unmarshal(rawType, &typ); err != nil {
			return nil, ErrMissingType
		}
	}
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return nil, ErrMissingType
	}

	return &Frame{
		Type:           typ,
		ConsultationID: IDFromJSON(fields["consultationId"]),
		Fields:         fields,
	}, nil
}

// Stamped re-encodes the frame with the sender attribution added.
// Client supplied from, fromId and timestamp are overwritten.
func (f *Frame) Stamped(from Role, fromID string, at time.Time) ([]byte, error) {
	out := make(map[string]any, len(f.Fields)+3)
	for k, v := range f.Fields {
		out[k] = v
	}
	out["from"] = from
	out["fromId"] = fromID
	out["timestamp"] = FormatTimestamp(at)
	return json.Marshal(out)
}

// Notification is a relay generated room event.
type Notification struct {
	Type           string `json:"type"`
	ConsultationID string `json:"consultationId"`
	From           Role   `json:"from"`
	FromID         string `json:"fromId"`
	Timestamp      string `json:"timestamp"`
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// IDFromJSON accepts a JSON string or number and returns it as text.
// Anything else yields an empty id.
func IDFromJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
	return ""
}
