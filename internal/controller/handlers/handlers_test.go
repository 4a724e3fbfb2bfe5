package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"scrapedesk/internal/export"
	"scrapedesk/internal/scraper"
	"scrapedesk/internal/store"
	"scrapedesk/pkg/api"

	clocktesting "k8s.io/utils/clock/testing"
)

// Mock Store
type mockStore struct {
	mu      sync.Mutex
	jobs    map[int64]store.Job
	results []store.Result
	email   *store.EmailConfig
	nextID  int64

	pingErr   error
	createErr error
	listErr   error

	// Spies
	capturedLimit    int
	capturedFrom     *time.Time
	capturedTo       *time.Time
	capturedCreated  *store.Job
	capturedUpdated  *store.Job
	deletedJobIDs    []int64
	savedEmailConfig *store.EmailConfig
}

func newMockStore() *mockStore {
	return &mockStore{jobs: map[int64]store.Job{}, nextID: 1}
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) CreateJob(ctx context.Context, job *store.Job) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	id := m.nextID
	m.nextID++
	j := *job
	j.ID = id
	m.jobs[id] = j
	m.capturedCreated = &j
	return id, nil
}

func (m *mockStore) GetJob(ctx context.Context, id int64) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (m *mockStore) ListJobs(ctx context.Context) ([]store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]store.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return out, nil
}

func (m *mockStore) ListActiveJobs(ctx context.Context) ([]store.Job, error) {
	return nil, nil
}

func (m *mockStore) UpdateJob(ctx context.Context, job *store.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return store.ErrNotFound
	}
	j := *job
	j.UpdatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	m.jobs[job.ID] = j
	m.capturedUpdated = &j
	return nil
}

func (m *mockStore) DeleteJob(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.jobs, id)
	m.deletedJobIDs = append(m.deletedJobIDs, id)
	return nil
}

func (m *mockStore) SaveResult(ctx context.Context, r *store.Result) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.results) + 1)
	m.results = append(m.results, *r)
	return r.ID, nil
}

func (m *mockStore) GetResult(ctx context.Context, id int64) (*store.Result, error) {
	for _, r := range m.results {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) ListResults(ctx context.Context, jobID int64, limit int) ([]store.Result, error) {
	m.capturedLimit = limit
	var out []store.Result
	for _, r := range m.results {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) ListResultsBetween(ctx context.Context, jobID int64, from, to *time.Time) ([]store.Result, error) {
	m.capturedFrom, m.capturedTo = from, to
	return m.ListResults(ctx, jobID, 0)
}

func (m *mockStore) GetJobStats(ctx context.Context) (*store.JobStats, error) {
	return &store.JobStats{TotalJobs: int64(len(m.jobs)), TotalResults: int64(len(m.results))}, nil
}

func (m *mockStore) SaveEmailConfig(ctx context.Context, cfg *store.EmailConfig) error {
	c := *cfg
	m.savedEmailConfig = &c
	m.email = &c
	return nil
}

func (m *mockStore) GetEmailConfig(ctx context.Context) (*store.EmailConfig, error) {
	return m.email, nil
}

type mockScraper struct {
	items   []string
	err     error
	valid   bool
	targets []scraper.Target
}

func (m *mockScraper) TestScrape(ctx context.Context, t scraper.Target) ([]string, error) {
	m.targets = append(m.targets, t)
	return m.items, m.err
}

func (m *mockScraper) ValidateURL(ctx context.Context, rawURL string) (bool, error) {
	return m.valid, m.err
}

type mockScheduler struct {
	scheduled   []store.Job
	rescheduled []store.Job
	unscheduled []int64
	runItems    []string
	runErr      error
}

func (m *mockScheduler) Schedule(job store.Job) error {
	m.scheduled = append(m.scheduled, job)
	return nil
}

func (m *mockScheduler) Unschedule(id int64) { m.unscheduled = append(m.unscheduled, id) }

func (m *mockScheduler) Reschedule(job store.Job) error {
	m.rescheduled = append(m.rescheduled, job)
	return nil
}

func (m *mockScheduler) RunNow(ctx context.Context, job store.Job) ([]string, error) {
	return m.runItems, m.runErr
}

type mockMailer struct {
	validateErr error
	testErr     error
	sentPath    string
}

func (m *mockMailer) Validate(cfg *api.EmailConfig) error { return m.validateErr }

func (m *mockMailer) TestConnection(cfg *api.EmailConfig) error { return m.testErr }

func (m *mockMailer) SendExport(cfg *api.EmailConfig, path, jobName, format string) error {
	m.sentPath = path
	return nil
}

type fixture struct {
	store     *mockStore
	scraper   *mockScraper
	scheduler *mockScheduler
	mailer    *mockMailer
	exporter  *export.Exporter
	opened    []string
	h         *Handlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	exp, err := export.New(t.TempDir(),
		export.WithClock(clocktesting.NewFakePassiveClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))),
		export.WithLogger(discard),
	)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		store:     newMockStore(),
		scraper:   &mockScraper{},
		scheduler: &mockScheduler{},
		mailer:    &mockMailer{},
		exporter:  exp,
	}
	f.h = New(Deps{
		Store:     f.store,
		Scraper:   f.scraper,
		Scheduler: f.scheduler,
		Exporter:  exp,
		Mailer:    f.mailer,
		OpenDir: func(dir string) error {
			f.opened = append(f.opened, dir)
			return nil
		},
		Logger: discard,
	})
	return f
}

// call posts args to /commands/{name} and returns the recorder.
func (f *fixture) call(t *testing.T, name string, args any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader = http.NoBody
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /commands/{name}", f.h.Command)

	req := httptest.NewRequest(http.MethodPost, "/commands/"+name, body)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[api.ErrorResponse](t, rr).Error
}
