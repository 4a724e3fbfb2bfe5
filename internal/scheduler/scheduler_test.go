package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"scrapedesk/internal/codec"
	"scrapedesk/internal/scraper"
	"scrapedesk/internal/store"

	clocktesting "k8s.io/utils/clock/testing"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu      sync.Mutex
	active  []store.Job
	listErr error
	saveErr error
	saved   []store.Result
	listed  int
}

func (f *fakeStore) ListActiveJobs(ctx context.Context) ([]store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	return append([]store.Job(nil), f.active...), f.listErr
}

func (f *fakeStore) SaveResult(ctx context.Context, r *store.Result) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, *r)
	return int64(len(f.saved)), nil
}

type fakeScraper struct {
	items   []string
	err     error
	targets []scraper.Target
}

func (f *fakeScraper) Scrape(ctx context.Context, t scraper.Target) ([]string, error) {
	f.targets = append(f.targets, t)
	return f.items, f.err
}

func newTestScheduler(st *fakeStore, sc *fakeScraper) *Scheduler {
	return New(st, sc, Config{},
		WithClock(clocktesting.NewFakePassiveClock(now)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func job(id int64, schedule string) store.Job {
	return store.Job{
		ID:           id,
		Name:         "job",
		URL:          "https://example.com",
		SelectorType: "CSS",
		Selector:     "a",
		DataType:     "Attribute(href)",
		Schedule:     schedule,
		IsActive:     true,
		UpdatedAt:    now,
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"daily", "0 0 0 * * *", false},
		{"Hourly", "0 0 * * * *", false},
		{"weekly", "0 0 0 * * 0", false},
		{"monthly", "0 0 0 1 * *", false},
		{"0 30 14 * * *", "0 30 14 * * *", false},
		{"@every 1h", "@every 1h", false},
		{"*/5 * * * *", "", true},
		{"invalid", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSchedule(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSchedule(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTarget(t *testing.T) {
	ua, proxy := "bot/1", "http://proxy:3128"
	j := job(1, "daily")
	j.UserAgent = &ua
	j.ProxyURL = &proxy

	got := Target(j)
	want := scraper.Target{
		Name: "job", URL: "https://example.com", SelectorType: "CSS", Selector: "a",
		DataType: codec.Attribute("href"), UserAgent: "bot/1", ProxyURL: "http://proxy:3128",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Target = %+v, want %+v", got, want)
	}
}

func TestScheduler_ScheduleAndUnschedule(t *testing.T) {
	s := newTestScheduler(&fakeStore{}, &fakeScraper{})

	if err := s.Schedule(job(2, "hourly")); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := s.Schedule(job(1, "0 15 * * * *")); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := s.Schedule(job(3, "not a schedule")); err == nil {
		t.Error("expected error for invalid schedule")
	}
	inactive := job(4, "daily")
	inactive.IsActive = false
	if err := s.Schedule(inactive); err != nil {
		t.Errorf("inactive job should be skipped silently, got %v", err)
	}

	if got := s.Scheduled(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("Scheduled = %v, want [1 2]", got)
	}

	// scheduling again replaces rather than duplicates
	if err := s.Schedule(job(2, "daily")); err != nil {
		t.Fatal(err)
	}
	if n := len(s.cron.Entries()); n != 2 {
		t.Errorf("cron has %d entries, want 2", n)
	}

	s.Unschedule(2)
	s.Unschedule(99)
	if got := s.Scheduled(); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("Scheduled = %v, want [1]", got)
	}
	if _, ok := s.Next(2); ok {
		t.Error("unscheduled job should have no next run")
	}
}

func TestScheduler_Reschedule(t *testing.T) {
	s := newTestScheduler(&fakeStore{}, &fakeScraper{})
	j := job(1, "daily")
	if err := s.Schedule(j); err != nil {
		t.Fatal(err)
	}

	j.IsActive = false
	if err := s.Reschedule(j); err != nil {
		t.Fatal(err)
	}
	if got := s.Scheduled(); len(got) != 0 {
		t.Errorf("deactivated job still scheduled: %v", got)
	}

	j.IsActive = true
	if err := s.Reschedule(j); err != nil {
		t.Fatal(err)
	}
	if got := s.Scheduled(); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("Scheduled = %v, want [1]", got)
	}
}

func TestScheduler_Sync(t *testing.T) {
	st := &fakeStore{active: []store.Job{job(1, "daily"), job(2, "hourly")}}
	s := newTestScheduler(st, &fakeScraper{})

	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if got := s.Scheduled(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("Scheduled = %v", got)
	}
	firstEntry := s.entries[1].id

	changed := job(1, "weekly")
	changed.UpdatedAt = now.Add(time.Minute)
	st.active = []store.Job{changed, job(3, "monthly")}
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if got := s.Scheduled(); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Errorf("Scheduled = %v, want [1 3]", got)
	}
	if s.entries[1].id == firstEntry || s.entries[1].spec != "0 0 0 * * 0" {
		t.Errorf("changed job was not rescheduled: %+v", s.entries[1])
	}

	st.listErr = errors.New("db down")
	if err := s.Sync(context.Background()); err == nil {
		t.Error("expected error when listing fails")
	}
	if got := s.Scheduled(); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Errorf("failed sync changed entries: %v", got)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	st := &fakeStore{}
	sc := &fakeScraper{items: []string{"/a", `/b"q"`}}
	s := newTestScheduler(st, sc)

	items, err := s.RunNow(context.Background(), job(5, "daily"))
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if !reflect.DeepEqual(items, []string{"/a", `/b"q"`}) {
		t.Errorf("items = %v", items)
	}
	if len(st.saved) != 1 {
		t.Fatalf("saved %d results, want 1", len(st.saved))
	}
	r := st.saved[0]
	if r.JobID != 5 || !r.Success || r.ErrorMessage != nil || !r.Timestamp.Equal(now) {
		t.Errorf("unexpected result %+v", r)
	}
	if r.ScrapedData != `["/a","/b\"q\""]` {
		t.Errorf("ScrapedData = %s", r.ScrapedData)
	}
	if sc.targets[0].DataType != codec.Attribute("href") {
		t.Errorf("data type not decoded: %v", sc.targets[0].DataType)
	}
}

func TestScheduler_RunNowFailureIsNotStored(t *testing.T) {
	st := &fakeStore{}
	s := newTestScheduler(st, &fakeScraper{err: &scraper.StatusError{StatusCode: 404}})

	if _, err := s.RunNow(context.Background(), job(5, "daily")); err == nil {
		t.Fatal("expected error")
	}
	if len(st.saved) != 0 {
		t.Errorf("failed run was stored: %+v", st.saved)
	}
}

func TestScheduler_ExecuteStoresFailures(t *testing.T) {
	st := &fakeStore{}
	s := newTestScheduler(st, &fakeScraper{err: &scraper.StatusError{StatusCode: 500}})

	s.execute(context.Background(), job(7, "daily"))

	if len(st.saved) != 1 {
		t.Fatalf("saved %d results, want 1", len(st.saved))
	}
	r := st.saved[0]
	if r.Success || r.ScrapedData != "[]" {
		t.Errorf("unexpected result %+v", r)
	}
	if r.ErrorMessage == nil || *r.ErrorMessage != "HTTP error: 500 Internal Server Error" {
		t.Errorf("ErrorMessage = %v", r.ErrorMessage)
	}
}

func TestScheduler_ExecuteSkipsCancelledContext(t *testing.T) {
	st := &fakeStore{}
	sc := &fakeScraper{items: []string{"x"}}
	s := newTestScheduler(st, sc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.execute(ctx, job(7, "daily"))

	if len(sc.targets) != 0 || len(st.saved) != 0 {
		t.Error("cancelled run should not scrape or store")
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	st := &fakeStore{active: []store.Job{job(1, "daily")}}
	s := newTestScheduler(st, &fakeScraper{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := s.Next(1); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job was never scheduled")
		case <-time.After(10 * time.Millisecond):
		}
	}

	next, _ := s.Next(1)
	if next.Hour() != 0 || next.Minute() != 0 {
		t.Errorf("daily job next run = %v, want midnight", next)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
