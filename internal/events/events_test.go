package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LiorLearning/social-story/internal/events"
)

func TestNilPublisherIsNoOp(t *testing.T) {
	t.Parallel()

	var p *events.Publisher
	err := p.PublishSummary(context.Background(), events.SessionSummary{
		SessionID: "session-1",
	})
	if err != nil {
		t.Fatalf("nil publisher: unexpected error: %v", err)
	}
	p.Close() // must not panic
}

func TestSessionSummaryPayload(t *testing.T) {
	t.Parallel()

	endedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	summary := events.SessionSummary{
		SessionID:  "session-1",
		ReaderID:   "reader-1",
		StoryID:    "turtle",
		PageNumber: 2,
		DurationMS: 45000,
		Accuracy:   87.5,
		Restarts:   3,
		EndedAt:    endedAt,
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]any{
		"session_id":  "session-1",
		"reader_id":   "reader-1",
		"story_id":    "turtle",
		"page_number": float64(2),
		"duration_ms": float64(45000),
		"accuracy":    87.5,
		"restarts":    float64(3),
	}
	for key, wantVal := range want {
		if decoded[key] != wantVal {
			t.Errorf("payload[%q] = %v, want %v", key, decoded[key], wantVal)
		}
	}
	if decoded["ended_at"] != "2026-03-14T09:30:00Z" {
		t.Errorf("payload[ended_at] = %v, want 2026-03-14T09:30:00Z", decoded["ended_at"])
	}
}

func TestSessionSummaryOmitsEmptyOptionalFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(events.SessionSummary{SessionID: "s", EndedAt: time.Now()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"reader_id", "story_id", "page_number", "accuracy"} {
		if _, present := decoded[key]; present {
			t.Errorf("payload unexpectedly contains %q", key)
		}
	}
}
