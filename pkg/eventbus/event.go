package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subjects published by the onboarding service.
const (
	SubjectApplicationSubmitted = "applications.submitted"
	SubjectApplicationDecided   = "applications.decided"
)

// Event is the envelope carried on every subject.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent marshals data into a fresh envelope.
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ApplicationSubmittedData is published when an application leaves draft.
type ApplicationSubmittedData struct {
	ApplicationID string    `json:"application_id"`
	AccountType   string    `json:"account_type"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ApplicationDecidedData is published when an application reaches a disposition.
type ApplicationDecidedData struct {
	ApplicationID  string    `json:"application_id"`
	AccountType    string    `json:"account_type"`
	Status         string    `json:"status"`
	RiskLevel      string    `json:"risk_level"`
	FraudScore     float64   `json:"fraud_score"`
	TriggeredRules []string  `json:"triggered_rules"`
	Rationale      []string  `json:"rationale"`
	RuleSetVersion int64     `json:"rule_set_version"`
	DecidedAt      time.Time `json:"decided_at"`
}
