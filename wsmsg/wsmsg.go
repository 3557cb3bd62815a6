// Package wsmsg contains the messages pushed to clients watching a score.
package wsmsg

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rapidmidiex/rmxscore/score"
)

type (
	MsgType int

	Envelope struct {
		// Message identifier
		ID uuid.UUID `json:"id"`
		// ConnectMsg | UpdatedMsg
		Typ MsgType `json:"type"`
		// Score the message is about.
		ScoreID string `json:"scoreId"`
		// Actual message data.
		Payload json.RawMessage `json:"payload"`
	}

	// ConnectMsg greets a new watcher with the ID it was given.
	ConnectMsg struct {
		ClientID uuid.UUID `json:"clientId"`
	}

	// UpdatedMsg carries the document as saved.
	UpdatedMsg struct {
		Document score.Document `json:"document"`
	}
)

const (
	CONNECT MsgType = iota
	UPDATED
)

// New wraps payload in an envelope with a fresh ID.
func New(typ MsgType, scoreID string, payload any) (Envelope, error) {
	e := Envelope{ID: uuid.New(), Typ: typ, ScoreID: scoreID}
	if err := e.SetPayload(payload); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func (e *Envelope) SetPayload(payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	e.Payload = p
	return nil
}

func (e *Envelope) Unwrap(msg any) error {
	return json.Unmarshal(e.Payload, msg)
}

func (t *MsgType) UnmarshalJSON(data []byte) error {
	var rawType string
	err := json.Unmarshal(data, &rawType)
	if err != nil {
		return err
	}

	switch rawType {
	case "connect":
		*t = CONNECT
	case "updated":
		*t = UPDATED
	default:
		return fmt.Errorf("unknown type: %s", rawType)
	}
	return nil
}

func (t MsgType) MarshalJSON() ([]byte, error) {
	switch t {
	case CONNECT:
		return []byte(`"connect"`), nil
	case UPDATED:
		return []byte(`"updated"`), nil
	}
	return []byte{}, fmt.Errorf("unknown MsgTyp value: %d", t)
}
