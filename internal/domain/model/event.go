package model

// Event types carried on the outbound session-event stream. The vocabulary
// is fixed: consumers built against the original assistant service expect
// exactly these two kinds.
const (
	EventMessageDelta = "message_delta"
	EventChatComplete = "chat_complete"
)

// StreamEvent is one event of the outbound stream, tagged by Type.
// message_delta carries Content and MessageID; chat_complete carries the
// finalized Chat as it was stored.
type StreamEvent struct {
	Type      string       `json:"type"`
	Content   string       `json:"content,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
	Chat      *ChatSession `json:"chat,omitempty"`
}

func MessageDelta(content, messageID string) StreamEvent {
	return StreamEvent{Type: EventMessageDelta, Content: content, MessageID: messageID}
}

func ChatComplete(chat *ChatSession) StreamEvent {
	return StreamEvent{Type: EventChatComplete, Chat: chat}
}
