package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoggerNotifierWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	n := NewLoggerNotifier(logger)

	err := n.Send(context.Background(), Message{Kind: KindWalletOperation, WalletID: "w1", Body: "DEPOSIT 50.00"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["kind"] != KindWalletOperation || record["wallet_id"] != "w1" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNilLoggerNotifierIsNoop(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{Kind: KindWalletDeleted}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
