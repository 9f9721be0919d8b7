package jobs

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"
)

func TestGenerateVariantsTaskRoundTrip(t *testing.T) {
	task, err := NewGenerateVariantsTask(GenerateVariantsPayload{
		ChatID: 10, UserID: 20, Count: 3,
		Item: MediaItem{FileID: "AgAD", Kind: "photo"},
	})
	if err != nil {
		t.Fatalf("NewGenerateVariantsTask: %v", err)
	}
	if task.Type() != TaskGenerateVariants {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	p, err := ParseGenerateVariants(task)
	if err != nil {
		t.Fatalf("ParseGenerateVariants: %v", err)
	}
	if _, err := ulid.Parse(p.RequestID); err != nil {
		t.Fatalf("expected generated ULID request id, got %q: %v", p.RequestID, err)
	}
	if p.Count != 3 || p.Item.Kind != "photo" || p.UserID != 20 {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestParseGenerateVariantsRejectsBadPayload(t *testing.T) {
	for _, raw := range []string{"{", `{"count":2}`} {
		if _, err := ParseGenerateVariants(asynq.NewTask(TaskGenerateVariants, []byte(raw))); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestNewRequestIDIsMonotonic(t *testing.T) {
	prev := NewRequestID()
	for i := 0; i < 100; i++ {
		next := NewRequestID()
		if next <= prev {
			t.Fatalf("expected increasing ids, got %s after %s", next, prev)
		}
		prev = next
	}
}
