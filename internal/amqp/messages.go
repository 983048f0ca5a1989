package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Resources and actions carried by ChangeEvent.
const (
	ResourceAccounts = "accounts"
	ResourceCategory = "category"

	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ChangeEvent announces a write on the backend. Consumers use it to drop
// cached reads; the payload carries only the entity id.
type ChangeEvent struct {
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeEvent creates a change event stamped with the current time.
func NewChangeEvent(resource, action, id string) ChangeEvent {
	return ChangeEvent{
		Resource:  resource,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks resource and action against the known values.
func (e ChangeEvent) Validate() error {
	switch e.Resource {
	case ResourceAccounts, ResourceCategory:
	default:
		return fmt.Errorf("unknown resource %q", e.Resource)
	}
	switch e.Action {
	case ActionAdd, ActionUpdate, ActionDelete:
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes and validates an event
func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, err
	}
	if err := e.Validate(); err != nil {
		return ChangeEvent{}, err
	}
	return e, nil
}
