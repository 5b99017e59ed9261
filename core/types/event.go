package types

// Event represents a typed event emitted by an engine when a record changes
// state. Attributes carry the canonical string encoding of the record fields.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
