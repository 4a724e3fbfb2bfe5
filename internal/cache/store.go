// Package cache keeps the last-fetched snapshot of jobs, results, stats,
// email settings and export files. Nothing refreshes on its own: callers
// reload explicitly after each mutation.
package cache

import (
	"context"
	"sync"

	"scrapedesk/pkg/api"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultContentEntries bounds the number of export file bodies kept in memory.
const DefaultContentEntries = 32

// Source is the read side of the command gateway.
type Source interface {
	GetAllJobs(ctx context.Context) ([]api.Job, error)
	GetJobStats(ctx context.Context) (api.JobStats, error)
	GetEmailConfig(ctx context.Context) (*api.EmailConfig, error)
	GetJobResults(ctx context.Context, jobID int64, limit int) ([]api.Result, error)
	ListExportFiles(ctx context.Context) ([]api.ExportFileInfo, error)
	ReadExportFile(ctx context.Context, path string) (string, error)
}

// Store is the in-memory snapshot. A failed reload leaves the previous
// snapshot in place.
type Store struct {
	src Source

	mu           sync.RWMutex
	jobs         []api.Job
	stats        api.JobStats
	email        *api.EmailConfig
	resultsJobID *int64
	results      []api.Result
	files        []api.ExportFileInfo
	filesLoaded  bool

	content *lru.Cache[string, string]
}

// New creates an empty store reading from src.
func New(src Source, contentEntries int) (*Store, error) {
	if contentEntries <= 0 {
		contentEntries = DefaultContentEntries
	}
	content, err := lru.New[string, string](contentEntries)
	if err != nil {
		return nil, err
	}
	return &Store{src: src, content: content}, nil
}

// ReloadJobs refreshes the job list.
func (s *Store) ReloadJobs(ctx context.Context) error {
	jobs, err := s.src.GetAllJobs(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs = jobs
	s.mu.Unlock()
	return nil
}

// ReloadStats refreshes the aggregate counters.
func (s *Store) ReloadStats(ctx context.Context) error {
	stats, err := s.src.GetJobStats(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return nil
}

// ReloadEmailConfig refreshes the saved SMTP settings.
func (s *Store) ReloadEmailConfig(ctx context.Context) error {
	cfg, err := s.src.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	s.SetEmailConfig(cfg)
	return nil
}

// SetEmailConfig records settings known to be saved.
func (s *Store) SetEmailConfig(cfg *api.EmailConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == nil {
		s.email = nil
		return
	}
	c := *cfg
	s.email = &c
}

// ReloadResults replaces the result list with up to limit results of jobID.
func (s *Store) ReloadResults(ctx context.Context, jobID int64, limit int) error {
	results, err := s.src.GetJobResults(ctx, jobID, limit)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.resultsJobID = &jobID
	s.results = results
	s.mu.Unlock()
	return nil
}

// ClearResults drops the result list.
func (s *Store) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultsJobID = nil
	s.results = nil
}

// ReloadFiles refreshes the export file listing. Cached bodies of files that
// disappeared are evicted.
func (s *Store) ReloadFiles(ctx context.Context) error {
	files, err := s.src.ListExportFiles(ctx)
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Path] = struct{}{}
	}
	for _, path := range s.content.Keys() {
		if _, ok := present[path]; !ok {
			s.content.Remove(path)
		}
	}

	s.mu.Lock()
	s.files = files
	s.filesLoaded = true
	s.mu.Unlock()
	return nil
}

// FileContent returns the body of an export file, reading it through the
// gateway on a cache miss.
func (s *Store) FileContent(ctx context.Context, path string) (string, error) {
	if body, ok := s.content.Get(path); ok {
		return body, nil
	}
	body, err := s.src.ReadExportFile(ctx, path)
	if err != nil {
		return "", err
	}
	s.content.Add(path, body)
	return body, nil
}

// ForgetFile drops a file from the listing and the content cache.
func (s *Store) ForgetFile(path string) {
	s.content.Remove(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.files[:0:0]
	for _, f := range s.files {
		if f.Path != path {
			kept = append(kept, f)
		}
	}
	s.files = kept
}

// Jobs returns a copy of the job list.
func (s *Store) Jobs() []api.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Job(nil), s.jobs...)
}

// Job returns the cached job with the given id.
func (s *Store) Job(id int64) (api.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.ID != nil && *j.ID == id {
			return j, true
		}
	}
	return api.Job{}, false
}

// Stats returns the last-fetched counters.
func (s *Store) Stats() api.JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// EmailConfig returns the saved SMTP settings, or nil.
func (s *Store) EmailConfig() *api.EmailConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.email == nil {
		return nil
	}
	c := *s.email
	return &c
}

// Results returns the cached results and the job they belong to.
func (s *Store) Results() ([]api.Result, *int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobID *int64
	if s.resultsJobID != nil {
		id := *s.resultsJobID
		jobID = &id
	}
	return append([]api.Result(nil), s.results...), jobID
}

// Result returns a cached result by id.
func (s *Store) Result(id int64) (api.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, true
		}
	}
	return api.Result{}, false
}

// Files returns the export listing and whether it has been loaded.
func (s *Store) Files() ([]api.ExportFileInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.ExportFileInfo(nil), s.files...), s.filesLoaded
}

// File returns the listed file with the given path.
func (s *Store) File(path string) (api.ExportFileInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.Path == path {
			return f, true
		}
	}
	return api.ExportFileInfo{}, false
}
