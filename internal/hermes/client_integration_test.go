//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PublishStageCompleted(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan StageCompleted, 1)
	sub, err := client.conn.Subscribe(SubjectStageCompleted, func(msg *nats.Msg) {
		var evt StageCompleted
		json.Unmarshal(msg.Data, &evt)
		received <- evt
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(SubjectStageCompleted, StageCompleted{RunID: "it", Stage: "master_file"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case evt := <-received:
		if evt.Stage != "master_file" {
			t.Errorf("expected master_file, got %q", evt.Stage)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
