package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

// fakeClock drives the poller without real waits: Sleep advances Now.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	sleepE error
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.sleepE != nil {
		return c.sleepE
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

type scriptedFetcher struct {
	statuses []domain.GenerationTask
	calls    int
}

func (f *scriptedFetcher) Status(ctx context.Context, taskID string) (domain.GenerationTask, error) {
	if f.calls >= len(f.statuses) {
		return f.statuses[len(f.statuses)-1], nil
	}
	task := f.statuses[f.calls]
	f.calls++
	return task, nil
}

func processing(id string) domain.GenerationTask {
	return domain.GenerationTask{ID: id, Status: domain.TaskStatusProcessing}
}

func completed(id, url string) domain.GenerationTask {
	return domain.GenerationTask{ID: id, Status: domain.TaskStatusCompleted, ImageURL: url}
}

func newTestPoller(clock *fakeClock, timeout time.Duration) *Poller {
	return NewPoller(PollerOptions{
		Timeout: timeout,
		Now:     clock.Now,
		Sleep:   clock.Sleep,
	})
}

func TestWaitCompletesAfterPolling(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{statuses: []domain.GenerationTask{
		processing("t1"),
		processing("t1"),
		completed("t1", "https://cdn.example.com/a.png"),
	}}

	task, elapsed, err := newTestPoller(clock, time.Minute).Wait(context.Background(), fetcher, processing("t1"))
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if task.Status != domain.TaskStatusCompleted {
		t.Fatalf("expected completed, got %q", task.Status)
	}
	if elapsed <= 0 {
		t.Fatalf("expected positive elapsed, got %v", elapsed)
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 status calls, got %d", fetcher.calls)
	}
}

func TestWaitIntervalGrowsAndCaps(t *testing.T) {
	clock := newFakeClock()
	statuses := make([]domain.GenerationTask, 0, 9)
	for i := 0; i < 8; i++ {
		statuses = append(statuses, processing("t1"))
	}
	statuses = append(statuses, completed("t1", "u"))
	fetcher := &scriptedFetcher{statuses: statuses}

	if _, _, err := newTestPoller(clock, time.Hour).Wait(context.Background(), fetcher, processing("t1")); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if len(clock.slept) == 0 {
		t.Fatal("expected sleeps to be recorded")
	}
	if clock.slept[0] != 2*time.Second {
		t.Fatalf("first interval should be 2s, got %v", clock.slept[0])
	}
	for i := 1; i < len(clock.slept); i++ {
		if clock.slept[i] < clock.slept[i-1] {
			t.Fatalf("interval shrank: %v after %v", clock.slept[i], clock.slept[i-1])
		}
		if clock.slept[i] > 10*time.Second {
			t.Fatalf("interval exceeded cap: %v", clock.slept[i])
		}
	}
	if last := clock.slept[len(clock.slept)-1]; last != 10*time.Second {
		t.Fatalf("expected interval to reach the 10s cap, got %v", last)
	}
}

func TestWaitTimesOutDistinctFromFailure(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{statuses: []domain.GenerationTask{processing("t1")}}

	_, _, err := newTestPoller(clock, 30*time.Second).Wait(context.Background(), fetcher, processing("t1"))
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
	if errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatal("timeout must not be a generation failure")
	}
}

func TestWaitRemoteFailureCarriesMessage(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{statuses: []domain.GenerationTask{
		{ID: "t1", Status: domain.TaskStatusFailed, ErrorMessage: "CONTENT_POLICY"},
	}}

	_, _, err := newTestPoller(clock, time.Minute).Wait(context.Background(), fetcher, processing("t1"))
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "CONTENT_POLICY") {
		t.Fatalf("expected remote message in error, got %q", got)
	}
}

func TestWaitShortCircuitsCompletedSubmission(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{statuses: []domain.GenerationTask{processing("t1")}}

	task, elapsed, err := newTestPoller(clock, time.Minute).Wait(context.Background(), fetcher, completed("t1", "u"))
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("expected no status calls, got %d", fetcher.calls)
	}
	if task.ImageURL != "u" || elapsed != 0 {
		t.Fatalf("unexpected result %+v elapsed %v", task, elapsed)
	}
}

func TestWaitCancelledContextStopsPolling(t *testing.T) {
	clock := newFakeClock()
	clock.sleepE = context.Canceled
	fetcher := &scriptedFetcher{statuses: []domain.GenerationTask{processing("t1")}}

	_, _, err := newTestPoller(clock, time.Minute).Wait(context.Background(), fetcher, processing("t1"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
