// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG frames)
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type  MessageType
	Topic string // empty reaches every client
	Data  []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(topic string, data []byte) Message {
	return Message{Type: JSONMessage, Topic: topic, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(topic string, data []byte) Message {
	return Message{Type: BinaryMessage, Topic: topic, Data: data}
}

// Envelope is the JSON shape of every hub broadcast.
type Envelope struct {
	Type string `json:"type"` // "update", "alert", ...
	Data any    `json:"data"`
}
