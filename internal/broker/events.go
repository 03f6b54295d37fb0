package appkafka

import (
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event kinds published on the engagement topic.
const (
	EventPostCreated   = "post_created"
	EventLikeToggled   = "like_toggled"
	EventFollowToggled = "follow_toggled"
)

// Event is the envelope shared by all engagement events. UserID is the user
// whose counters the event affects: the post author for post_created, the
// book owner for like_toggled, the follow target for follow_toggled.
type Event struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	Added      bool      `json:"added"` // like/follow: true when the edge was created
	OccurredAt time.Time `json:"occurred_at"`
}

// NewPostCreated builds the event published when a book review is posted.
func NewPostCreated(authorID string) Event {
	return Event{Kind: EventPostCreated, UserID: authorID, Added: true, OccurredAt: time.Now()}
}

// NewLikeToggled builds the event published after a like toggle. ownerID is
// the poster of the liked book, liked the resulting state.
func NewLikeToggled(ownerID string, liked bool) Event {
	return Event{Kind: EventLikeToggled, UserID: ownerID, Added: liked, OccurredAt: time.Now()}
}

// NewFollowToggled builds the event published after a follow toggle.
func NewFollowToggled(targetID string, following bool) Event {
	return Event{Kind: EventFollowToggled, UserID: targetID, Added: following, OccurredAt: time.Now()}
}

// Message serializes the event into a Kafka message keyed by kind.
func (e Event) Message() (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(e.Kind), Value: data}, nil
}
