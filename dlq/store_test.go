package dlq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/keel"
	"github.com/xraph/keel/broker/memory"
	"github.com/xraph/keel/dlq"
)

func newRecord(jobKey, function, kind string) *dlq.Record {
	return &dlq.Record{
		JobKey:       jobKey,
		ErrorKind:    kind,
		ErrorMessage: "boom",
		Function:     function,
		FirstSeenAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Details:      map[string]string{"url": "https://example.com/" + jobKey},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s := dlq.NewStore(memory.New())
	ctx := context.Background()

	if err := s.Push(ctx, newRecord("send:1", "send_message", "timeout")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, err := s.Get(ctx, "send:1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ErrorKind != "timeout" {
		t.Errorf("ErrorKind = %q, want %q", got.ErrorKind, "timeout")
	}
	if got.ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q, want %q", got.ErrorMessage, "boom")
	}
	if got.Function != "send_message" {
		t.Errorf("Function = %q, want %q", got.Function, "send_message")
	}
	if got.Details["url"] != "https://example.com/send:1" {
		t.Errorf("Details[url] = %q, want the original detail", got.Details["url"])
	}
	if !got.FirstSeenAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("FirstSeenAt = %v, want the original timestamp", got.FirstSeenAt)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s := dlq.NewStore(memory.New())

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, keel.ErrRecordNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrRecordNotFound", err)
	}
}

func TestStore_List_OldestFirst(t *testing.T) {
	s := dlq.NewStore(memory.New())
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Push(ctx, newRecord(key, "fn", "timeout")); err != nil {
			t.Fatalf("Push(%s): %v", key, err)
		}
	}

	records, err := s.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i].JobKey != want {
			t.Errorf("records[%d].JobKey = %q, want %q (oldest first)", i, records[i].JobKey, want)
		}
	}
}

func TestStore_List_Pagination(t *testing.T) {
	s := dlq.NewStore(memory.New())
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d"} {
		if err := s.Push(ctx, newRecord(key, "fn", "timeout")); err != nil {
			t.Fatalf("Push(%s): %v", key, err)
		}
	}

	records, err := s.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].JobKey != "b" || records[1].JobKey != "c" {
		t.Errorf("page = [%s %s], want [b c]", records[0].JobKey, records[1].JobKey)
	}
}

func TestStore_List_SkipsDanglingIndexEntries(t *testing.T) {
	b := memory.New()
	s := dlq.NewStore(b)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Push(ctx, newRecord(key, "fn", "timeout")); err != nil {
			t.Fatalf("Push(%s): %v", key, err)
		}
	}

	// Simulate the record TTL firing before the index entry goes: delete
	// the record hash directly, leaving the index pointing at nothing.
	if err := b.Delete(ctx, "dlq:b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	records, err := s.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (dangling entry skipped)", len(records))
	}
	if records[0].JobKey != "a" || records[1].JobKey != "c" {
		t.Errorf("records = [%s %s], want [a c]", records[0].JobKey, records[1].JobKey)
	}
}

func TestStore_Push_SameKeyOverwrites(t *testing.T) {
	s := dlq.NewStore(memory.New())
	ctx := context.Background()

	if err := s.Push(ctx, newRecord("send:1", "fn", "timeout")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	second := newRecord("send:1", "fn", "rate_limited")
	second.Details = map[string]string{"attempt_host": "worker-2"}
	if err := s.Push(ctx, second); err != nil {
		t.Fatalf("Push again: %v", err)
	}

	// Last writer wins, with no duplicate index entry.
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1 after re-push of same key", n)
	}

	got, err := s.Get(ctx, "send:1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ErrorKind != "rate_limited" {
		t.Errorf("ErrorKind = %q, want the overwriting record's kind", got.ErrorKind)
	}
	if _, stale := got.Details["url"]; stale {
		t.Error("stale detail field survived the overwrite")
	}
}

func TestStore_Remove(t *testing.T) {
	s := dlq.NewStore(memory.New())
	ctx := context.Background()

	if err := s.Push(ctx, newRecord("send:1", "fn", "timeout")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	removed, err := s.Remove(ctx, "send:1")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("Remove = false, want true for present key")
	}

	if _, err := s.Get(ctx, "send:1"); !errors.Is(err, keel.ErrRecordNotFound) {
		t.Errorf("Get after Remove error = %v, want ErrRecordNotFound", err)
	}
	records, err := s.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List after Remove returned %d records, want 0", len(records))
	}

	removed, err = s.Remove(ctx, "send:1")
	if err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
	if removed {
		t.Error("Remove = true for absent key, want false")
	}
}

func TestStore_Clear(t *testing.T) {
	s := dlq.NewStore(memory.New())
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Push(ctx, newRecord(key, "fn", "timeout")); err != nil {
			t.Fatalf("Push(%s): %v", key, err)
		}
	}

	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear = %d, want 3", n)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count after Clear = %d, want 0", count)
	}
	records, err := s.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List after Clear returned %d records, want empty", len(records))
	}
}

func TestStore_Stats(t *testing.T) {
	s := dlq.NewStore(memory.New())
	ctx := context.Background()

	pushes := []struct {
		key, fn, kind string
	}{
		{"a", "fnA", "timeout"},
		{"b", "fnA", "timeout"},
		{"c", "fnB", "validation"},
	}
	for _, p := range pushes {
		if err := s.Push(ctx, newRecord(p.key, p.fn, p.kind)); err != nil {
			t.Fatalf("Push(%s): %v", p.key, err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByFunction["fnA"] != 2 || stats.ByFunction["fnB"] != 1 {
		t.Errorf("ByFunction = %v, want fnA:2 fnB:1", stats.ByFunction)
	}
	if stats.ByErrorKind["timeout"] != 2 || stats.ByErrorKind["validation"] != 1 {
		t.Errorf("ByErrorKind = %v, want timeout:2 validation:1", stats.ByErrorKind)
	}
}

func TestStore_RecordExpiresAfterRetention(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := memory.New(memory.WithClock(func() time.Time { return now }))
	s := dlq.NewStore(b, dlq.WithRetention(7*24*time.Hour))
	ctx := context.Background()

	if err := s.Push(ctx, newRecord("send:1", "fn", "timeout")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	now = now.Add(8 * 24 * time.Hour)

	if _, err := s.Get(ctx, "send:1"); !errors.Is(err, keel.ErrRecordNotFound) {
		t.Errorf("Get after retention error = %v, want ErrRecordNotFound", err)
	}
}
