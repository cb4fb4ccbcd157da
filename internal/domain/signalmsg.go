package domain

import (
	"encoding/json"
	"strings"
)

type SignalType string

// Inbound kinds accepted from clients. The relay classifies the kind but
// never inspects the payload itself.
const (
	SignalTypeJoin         SignalType = "join"
	SignalTypeJoinRoom     SignalType = "join-room"
	SignalTypeSignal       SignalType = "signal"
	SignalTypeOffer        SignalType = "offer"
	SignalTypeAnswer       SignalType = "answer"
	SignalTypeICECandidate SignalType = "ice-candidate"
	SignalTypeCandidate    SignalType = "candidate"
	SignalTypeLeave        SignalType = "leave"
)

// Relay-originated kinds.
const (
	SignalTypePeerJoined SignalType = "peer-joined"
	SignalTypePeerLeft   SignalType = "peer-left"
	SignalTypeError      SignalType = "error"
)

const (
	ErrCodeAlreadyJoined = "already_joined"
	ErrCodeNotJoined     = "not_joined"
	ErrCodeBadMessage    = "bad_message"
)

// SignalMessage is the wire envelope exchanged with clients. The negotiation
// body (session description, ICE candidate, whatever the peers negotiate
// with) is opaque to the relay and forwarded verbatim. Two client dialects
// are accepted: a generic {"type":"signal","roomId":...,"payload":...}
// wrapper, and discrete offer/answer/ice-candidate kinds that carry the room
// id in "room" and the body in a sibling field named after the kind.
type SignalMessage struct {
	Type      SignalType      `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	Room      string          `json:"room,omitempty"`
	SenderID  string          `json:"senderId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Error     *SignalError    `json:"error,omitempty"`
}

type SignalError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TargetRoom resolves the room id across both field spellings.
func (m *SignalMessage) TargetRoom() string {
	if m.RoomID != "" {
		return strings.TrimSpace(m.RoomID)
	}
	return strings.TrimSpace(m.Room)
}

func (m *SignalMessage) IsJoin() bool {
	return m.Type == SignalTypeJoin || m.Type == SignalTypeJoinRoom
}

func (m *SignalMessage) IsSignal() bool {
	switch m.Type {
	case SignalTypeSignal, SignalTypeOffer, SignalTypeAnswer, SignalTypeICECandidate, SignalTypeCandidate:
		return true
	}
	return false
}

func (m *SignalMessage) IsLeave() bool {
	return m.Type == SignalTypeLeave
}

func NewErrorMessage(code, message string) SignalMessage {
	return SignalMessage{
		Type:  SignalTypeError,
		Error: &SignalError{Code: code, Message: message},
	}
}
