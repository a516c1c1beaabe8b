package domain

const BasketTopic = "basket"

type EventType string

const (
	EventTypeInstantiated    EventType = "instantiate"
	EventTypeComponentAdded  EventType = "add_component"
	EventTypeDeposited       EventType = "deposit"
	EventTypeWithdrawn       EventType = "withdraw"
	EventTypeTaxesCollected  EventType = "collect_taxes"
	EventTypeMetadataUpdated EventType = "update_metadata"
	EventTypeAdminUpdated    EventType = "update_admin"
)

// BasketEvent is emitted once an operation and its instructions have been committed.
type BasketEvent struct {
	Id         string            `json:"id"`
	Type       EventType         `json:"type"`
	Sender     string            `json:"sender"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  int64             `json:"timestamp"`
}
