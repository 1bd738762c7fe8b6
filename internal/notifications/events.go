// Package notifications provides real-time delivery of post updates.
package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event types on the shared post update stream. Every connected client
// receives every event; payloads never depend on the receiving viewer.
const (
	EventPostCreated = "postCreated"
	EventPostUpdated = "postUpdated"
	EventPostDeleted = "postDeleted"
	EventPostLiked   = "postLiked"
	EventPostUnliked = "postUnliked"
)

// Event is one message on the post update stream.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent builds an event with a fresh id and the payload serialized as JSON.
func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:   uuid.New().String(),
		Type: eventType,
		Data: data,
	}, nil
}

// SSE renders the event in text/event-stream framing.
func (e Event) SSE() string {
	return fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, e.Data)
}

// LikeInfo is the payload of postLiked and postUnliked events.
type LikeInfo struct {
	UserID string `json:"userId"`
	PostID string `json:"postId"`
}

// DeleteInfo is the payload of postDeleted events.
type DeleteInfo struct {
	ID string `json:"id"`
}
