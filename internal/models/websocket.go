package models

import "encoding/json"

const (
	// inbound
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"

	// outbound
	EventNewMessage   = "new_message"
	EventMessageSent  = "message_sent"
	EventMessageError = "message_error"
)

// ClientEvent is the envelope for everything a client sends over the
// websocket. Data is decoded per Event once the type is known, never
// inferred deeper in the pipeline.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the envelope for everything pushed to a client.
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type JoinRoomPayload struct {
	UserID int `json:"user_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
