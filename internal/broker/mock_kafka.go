package appkafka

import (
	"context"
	"encoding/json"
	"errors"

	"example.com/bookfeed/internal/store"
	"github.com/segmentio/kafka-go"
)

// MockKafka immediately applies engagement events to the store, standing in
// for the writer, the broker and the stats worker at once.
type MockKafka struct {
	Store           *store.MockStore
	WrittenMessages []kafka.Message // stores messages written via WriteMessages
	ReadMessages    []kafka.Message // queue of messages to be read via ReadMessage
	ShouldFail      bool            // flag to simulate failures during write or read operations
}

// WriteMessages simulates publishing engagement events, bumping the affected
// user's counters synchronously.
func (m *MockKafka) WriteMessages(messages ...kafka.Message) error {
	if m.ShouldFail {
		return errors.New("mock kafka write failed")
	}

	m.WrittenMessages = append(m.WrittenMessages, messages...)

	if m.Store == nil {
		return nil
	}

	for _, msg := range messages {
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}

		sign := int64(1)
		if !ev.Added {
			sign = -1
		}

		switch ev.Kind {
		case EventPostCreated:
			_ = m.Store.BumpStats(ev.UserID, 1, 0, 0)
		case EventLikeToggled:
			_ = m.Store.BumpStats(ev.UserID, 0, sign, 0)
		case EventFollowToggled:
			_ = m.Store.BumpStats(ev.UserID, 0, 0, sign)
		}
	}

	return nil
}

// ReadMessage pops the next queued message.
func (m *MockKafka) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if m.ShouldFail {
		return kafka.Message{}, errors.New("mock kafka read failed")
	}
	if len(m.ReadMessages) == 0 {
		return kafka.Message{}, errors.New("no messages")
	}
	// Take the first message from the queue and remove it
	msg := m.ReadMessages[0]
	m.ReadMessages = m.ReadMessages[1:]
	return msg, nil
}

// Close is a no-op.
func (m *MockKafka) Close() error { return nil }

// MockKafkaFail always fails.
type MockKafkaFail struct{}

func (m *MockKafkaFail) WriteMessages(messages ...kafka.Message) error {
	return errors.New("mock kafka write failed")
}

func (m *MockKafkaFail) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return kafka.Message{}, errors.New("mock kafka read failed")
}

func (m *MockKafkaFail) Close() error { return nil }
