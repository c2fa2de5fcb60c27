package audit

import (
	"encoding/json"
	"time"
)

// Entry is one audit record. Before and After carry snapshots of the
// touched entity; either may be nil.
type Entry struct {
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	OwnerID    string    `json:"owner_id"`
	Before     any       `json:"before,omitempty"`
	After      any       `json:"after,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EntryFromJSON(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
