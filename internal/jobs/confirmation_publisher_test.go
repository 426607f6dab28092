package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Genoux/website/internal/services"
)

func newTestClient(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(context.Background(), "lowping-test",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestPubSubConfirmationPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestClient(t)

	topic, err := EnsureTopic(ctx, client, "registration-confirmations")
	if err != nil {
		t.Fatalf("EnsureTopic: %v", err)
	}
	publisher, err := NewPubSubConfirmationPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubConfirmationPublisher: %v", err)
	}
	defer publisher.Stop()

	msg := services.ConfirmationMessage{
		RegistrationID: "01HZX",
		EventID:        "spring",
		EventName:      "Spring Cup",
		Email:          "alex@example.com",
		Locale:         "fr-CA",
		PaidAt:         time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		IdempotencyKey: "confirmation:01HZX",
	}
	if _, err := publisher.PublishConfirmation(ctx, msg); err != nil {
		t.Fatalf("PublishConfirmation: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload services.ConfirmationMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.RegistrationID != msg.RegistrationID || payload.Email != msg.Email || !payload.PaidAt.Equal(msg.PaidAt) {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["idempotencyKey"]; attr != "confirmation:01HZX" {
		t.Fatalf("expected idempotency key attribute, got %q", attr)
	}
	if _, ok := messages[0].Attributes["receiptUrl"]; ok {
		t.Fatalf("receipt url should not be an attribute")
	}
}

func TestEnsureTopicIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	if _, err := EnsureTopic(ctx, client, "confirmations"); err != nil {
		t.Fatalf("first EnsureTopic: %v", err)
	}
	topic, err := EnsureTopic(ctx, client, "confirmations")
	if err != nil {
		t.Fatalf("second EnsureTopic: %v", err)
	}
	if topic.ID() != "confirmations" {
		t.Fatalf("unexpected topic id %q", topic.ID())
	}
	if _, err := EnsureTopic(ctx, client, " "); err == nil {
		t.Fatalf("expected error for blank topic")
	}
}

func TestNewPubSubConfirmationPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubConfirmationPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
