// Package domain contains the wire-level data carried between peers.
// The server stores and forwards these values; it never interprets the
// negotiation content inside Payload beyond a few control flags.
package domain

import "encoding/json"

// Message is the envelope every relayed application message travels in.
// Extra is stamped by the server with the sender's metadata right before
// forwarding; everything else is client-supplied.
type Message struct {
	Sender       string          `json:"sender"`
	RemoteUserID string          `json:"remoteUserId"`
	Password     string          `json:"password,omitempty"`
	Extra        json.RawMessage `json:"extra,omitempty"`
	Message      Payload         `json:"message"`
}

// Payload is the opaque inner message. The raw bytes are kept verbatim
// for forwarding; the control flags the relay dispatches on are lifted
// out during decoding. A payload that is not a JSON object simply has
// all flags unset.
type Payload struct {
	NewParticipationRequest  bool
	ShiftedModerationControl bool
	FiredOnLeave             bool
	DetectPresence           bool
	UserLeft                 bool
	UserID                   string

	raw json.RawMessage
}

type payloadFlags struct {
	NewParticipationRequest  bool   `json:"newParticipationRequest"`
	ShiftedModerationControl bool   `json:"shiftedModerationControl"`
	FiredOnLeave             bool   `json:"firedOnLeave"`
	DetectPresence           bool   `json:"detectPresence"`
	UserLeft                 bool   `json:"userLeft"`
	UserID                   string `json:"userid"`
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	p.raw = append(p.raw[:0:0], data...)

	var flags payloadFlags
	if err := json.Unmarshal(data, &flags); err != nil {
		// Non-object payloads are legal; they carry no control flags.
		return nil
	}
	p.NewParticipationRequest = flags.NewParticipationRequest
	p.ShiftedModerationControl = flags.ShiftedModerationControl
	p.FiredOnLeave = flags.FiredOnLeave
	p.DetectPresence = flags.DetectPresence
	p.UserLeft = flags.UserLeft
	p.UserID = flags.UserID
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return []byte("{}"), nil
	}
	return p.raw, nil
}

// NewPayload builds a payload from arbitrary fields. It exists for
// server-originated messages and tests; inbound payloads are decoded
// from the wire.
func NewPayload(fields map[string]any) (Payload, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return Payload{}, err
	}
	var p Payload
	if err := p.UnmarshalJSON(raw); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// PublicModerator is one entry of a public-moderator listing.
type PublicModerator struct {
	UserID string          `json:"userid"`
	Extra  json.RawMessage `json:"extra"`
}
