package model

// Action is the kind of change a feed message carries.
type Action string

const (
	ActionPut    Action = "put"
	ActionDelete Action = "delete"
)

// Message is one upsert or delete coming from an entry feed. A message with
// Err set carries a feed failure instead of an entry.
type Message struct {
	Entry  Entry  `json:"entry"`
	Action Action `json:"action"`
	Err    error  `json:"-"`
}

// Put returns a put message for e.
func Put(e Entry) Message {
	return Message{Entry: e, Action: ActionPut}
}

// Delete returns a delete message for e.
func Delete(e Entry) Message {
	return Message{Entry: e, Action: ActionDelete}
}
