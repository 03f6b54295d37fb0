package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	appkafka "example.com/bookfeed/internal/broker"
	"example.com/bookfeed/internal/store"
	"github.com/segmentio/kafka-go"
)

// runWorkerOnce processes a single Kafka message for testing.
func runWorkerOnce(ctx context.Context, st store.StoreInterface, kafkaReader appkafka.KafkaReader) error {
	msg, err := kafkaReader.ReadMessage(ctx)
	if err != nil {
		return err
	}
	if len(msg.Value) == 0 {
		return nil
	}

	var ev appkafka.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return err
	}

	return ApplyEvent(st, ev)
}

func eventMessage(t *testing.T, ev appkafka.Event) kafka.Message {
	t.Helper()
	msg, err := ev.Message()
	if err != nil {
		t.Fatalf("failed to build event message: %v", err)
	}
	return msg
}

// ---------- Positive tests ----------

func TestWorker_PostCreatedBumpsCounter(t *testing.T) {
	mockStore := store.NewMock()
	authorID, _ := mockStore.CreateUser("author")

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, appkafka.NewPostCreated(authorID))},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, mockStore, mockKafka); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	stats, _ := mockStore.GetStats(authorID)
	if stats.Posts != 1 {
		t.Fatalf("expected posts counter 1, got %d", stats.Posts)
	}
}

func TestWorker_LikeTogglePairCancelsOut(t *testing.T) {
	mockStore := store.NewMock()
	ownerID, _ := mockStore.CreateUser("owner")

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{
			eventMessage(t, appkafka.NewLikeToggled(ownerID, true)),
			eventMessage(t, appkafka.NewLikeToggled(ownerID, false)),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := runWorkerOnce(ctx, mockStore, mockKafka); err != nil {
			t.Fatalf("worker failed on message %d: %v", i, err)
		}
	}

	stats, _ := mockStore.GetStats(ownerID)
	if stats.LikesReceived != 0 {
		t.Fatalf("expected likes_received back to 0, got %d", stats.LikesReceived)
	}
}

func TestWorker_FollowToggleBumpsFollowers(t *testing.T) {
	mockStore := store.NewMock()
	targetID, _ := mockStore.CreateUser("target")

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, appkafka.NewFollowToggled(targetID, true))},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, mockStore, mockKafka); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	stats, _ := mockStore.GetStats(targetID)
	if stats.Followers != 1 {
		t.Fatalf("expected followers counter 1, got %d", stats.Followers)
	}
}

func TestWorker_UnknownEventKindSkipped(t *testing.T) {
	mockStore := store.NewMock()

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{{Value: []byte(`{"kind":"something_new","user_id":"u1"}`)}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, mockStore, mockKafka); err != nil {
		t.Fatalf("expected unknown event kind to be skipped, got: %v", err)
	}
	if len(mockStore.Stats) != 0 {
		t.Fatalf("expected no counters touched for unknown event, got %+v", mockStore.Stats)
	}
}

// ---------- Negative tests ----------

// Simulate Kafka read error
func TestWorker_KafkaReadError(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafkaFail{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, mockStore, mockKafka); err == nil {
		t.Fatalf("expected error from Kafka read")
	}
}

// Simulate invalid event JSON
func TestWorker_InvalidEventJSON(t *testing.T) {
	mockStore := store.NewMock()

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{
			{Value: []byte("{invalid-json}")},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, mockStore, mockKafka); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

// Simulate store failure when bumping counters
func TestWorker_StoreBumpStatsFail(t *testing.T) {
	mockStore := &store.MockStoreFail{}

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, appkafka.NewPostCreated("author123"))},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, mockStore, mockKafka); err == nil {
		t.Fatalf("expected error from store BumpStats")
	}
}

func TestWorker_EmptyKafkaMessage(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{{Value: nil}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, mockStore, mockKafka); err != nil {
		t.Fatalf("expected no error for empty Kafka message, got: %v", err)
	}
}
