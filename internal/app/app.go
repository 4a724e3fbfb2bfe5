// Package app is the orchestration layer between the command gateway and a
// front end. It owns tab and selection state, runs every remote command,
// reports outcomes as transient messages and publishes all state changes as
// events to the views subscribed to it.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"scrapedesk/internal/cache"
	"scrapedesk/internal/gate"
	"scrapedesk/internal/notify"
	"scrapedesk/internal/preview"
	"scrapedesk/pkg/api"

	"github.com/go-playground/validator/v10"
	"k8s.io/utils/clock"
)

// DefaultResultsLimit is how many results are fetched for the selected job.
const DefaultResultsLimit = 100

var (
	// ErrBusy is returned when a command is started while another one is in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("operation cancelled")
	// ErrClosed is returned by operations started after Close.
	ErrClosed = errors.New("app is closed")
)

// Gateway is the set of commands the app issues.
type Gateway interface {
	cache.Source
	InitializeApp(ctx context.Context) error
	CreateJob(ctx context.Context, job api.Job) error
	UpdateJob(ctx context.Context, job api.Job) error
	DeleteJob(ctx context.Context, id int64) error
	RunJobNow(ctx context.Context, id int64) ([]string, error)
	TestScrapeJob(ctx context.Context, job api.Job) ([]string, error)
	ExportJobResults(ctx context.Context, req api.ExportRequest) (string, error)
	ExportIndividualResult(ctx context.Context, req api.IndividualExportRequest) (string, error)
	SaveEmailConfig(ctx context.Context, cfg api.EmailConfig) error
	TestEmailConnection(ctx context.Context) error
	SendExportEmail(ctx context.Context, args api.SendExportEmailArgs) error
	OpenExportDirectory(ctx context.Context) error
	DeleteExportFile(ctx context.Context, path string) error
}

// Confirmer asks the user a yes/no question before a destructive command.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Tab is a top-level view.
type Tab string

const (
	TabJobs     Tab = "jobs"
	TabResults  Tab = "results"
	TabFiles    Tab = "files"
	TabDocs     Tab = "documentation"
	TabSettings Tab = "settings"
)

// EventKind says what changed.
type EventKind int

const (
	ProgressChanged EventKind = iota
	LoadingChanged
	MessageChanged
	SplashChanged
	LoaderChanged
	TabChanged
	JobsChanged
	StatsChanged
	ResultsChanged
	FilesChanged
	SelectionChanged
	PreviewChanged
	EmailConfigChanged
	ThemeChanged
)

// Event is published to subscribers after every state change.
type Event struct {
	Kind EventKind

	// ProgressChanged
	Percent int
	Text    string

	// LoadingChanged, SplashChanged, LoaderChanged
	Visible bool

	// MessageChanged; nil when the message was dismissed.
	Message *notify.Message

	Tab   Tab
	Theme Theme
}

// App is one view tree's state and command dispatcher.
type App struct {
	gw        Gateway
	store     *cache.Store
	notifier  *notify.Notifier
	splash    *gate.Gate
	loader    *gate.Gate
	look      *Appearance
	renderer  *preview.Renderer
	confirmer Confirmer
	validate  *validator.Validate
	logger    *slog.Logger

	resultsLimit int
	stageDelays  bool
	clock        clock.WithDelayedExecution

	life   context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	tab          Tab
	selectedJob  *int64
	selectedFile *api.ExportFileInfo
	view         *preview.View
	percent      int
	stageText    string
	loading      int
	busy         bool
	closed       bool
	subs         []func(Event)
}

// Option configures an App.
type Option func(*App)

// WithConfirmer sets the confirmation prompt. Without one every destructive
// command is declined.
func WithConfirmer(c Confirmer) Option {
	return func(a *App) { a.confirmer = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithClock sets the clock driving gates, messages and stage waits.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(a *App) { a.clock = c }
}

// WithResultsLimit overrides DefaultResultsLimit.
func WithResultsLimit(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.resultsLimit = n
		}
	}
}

// WithoutStageDelays plays progress stages back to back.
func WithoutStageDelays() Option {
	return func(a *App) { a.stageDelays = false }
}

// WithRenderer sets the export preview renderer.
func WithRenderer(r *preview.Renderer) Option {
	return func(a *App) { a.renderer = r }
}

// WithAppearance shares a theme holder with the app.
func WithAppearance(look *Appearance) Option {
	return func(a *App) { a.look = look }
}

// New builds an App on top of gw.
func New(gw Gateway, opts ...Option) (*App, error) {
	a := &App{
		gw:           gw,
		resultsLimit: DefaultResultsLimit,
		stageDelays:  true,
		clock:        clock.RealClock{},
		tab:          TabJobs,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.confirmer == nil {
		a.confirmer = ConfirmFunc(func(string) bool { return false })
	}
	if a.renderer == nil {
		a.renderer = preview.NewRenderer()
	}
	if a.look == nil {
		a.look = NewAppearance(ThemeLight)
	}

	store, err := cache.New(gw, cache.DefaultContentEntries)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.validate = newValidator()
	a.notifier = notify.New(notify.WithClock(a.clock))
	a.splash = gate.New(gate.SplashDwell, gate.WithClock(a.clock))
	a.loader = gate.New(gate.LoaderDwell, gate.WithClock(a.clock))
	a.life, a.cancel = context.WithCancel(context.Background())

	a.notifier.Subscribe(func(m *notify.Message) {
		a.emit(Event{Kind: MessageChanged, Message: m})
	})
	a.splash.OnChange(func(s gate.State) {
		a.emit(Event{Kind: SplashChanged, Visible: s != gate.Hidden})
	})
	a.loader.OnChange(func(s gate.State) {
		a.emit(Event{Kind: LoaderChanged, Visible: s != gate.Hidden})
	})
	a.look.Subscribe(func(t Theme) {
		a.emit(Event{Kind: ThemeChanged, Theme: t})
	})

	return a, nil
}

// Subscribe registers fn for every event. Events are delivered synchronously
// on the goroutine that caused them.
func (a *App) Subscribe(fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
}

func (a *App) emit(e Event) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	subs := append([]func(Event){}, a.subs...)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Close cancels in-flight stage animations and every pending timer. No
// events are published afterwards.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.splash.Close()
	a.loader.Close()
	a.notifier.Close()
}

// Store exposes the cached snapshot.
func (a *App) Store() *cache.Store { return a.store }

// Notifier exposes the transient message holder.
func (a *App) Notifier() *notify.Notifier { return a.notifier }

// Appearance exposes the theme holder.
func (a *App) Appearance() *Appearance { return a.look }

// SplashVisible reports whether the startup splash is on screen.
func (a *App) SplashVisible() bool { return a.splash.Visible() }

// LoaderVisible reports whether the operation loader is on screen.
func (a *App) LoaderVisible() bool { return a.loader.Visible() }

// Tab returns the active tab.
func (a *App) Tab() Tab {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tab
}

// SelectedJob returns the focused job id.
func (a *App) SelectedJob() (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selectedJob == nil {
		return 0, false
	}
	return *a.selectedJob, true
}

// SelectedFile returns the focused export file.
func (a *App) SelectedFile() (api.ExportFileInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selectedFile == nil {
		return api.ExportFileInfo{}, false
	}
	return *a.selectedFile, true
}

// Preview returns the rendered content of the selected file.
func (a *App) Preview() (preview.View, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view == nil {
		return preview.View{}, false
	}
	return *a.view, true
}

// Progress returns the current stage announcement.
func (a *App) Progress() (int, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.percent, a.stageText
}

// Loading reports whether any command is in flight.
func (a *App) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading > 0
}

// begin marks a command in flight. exclusive commands fail with ErrBusy while
// another exclusive command runs.
func (a *App) begin(exclusive bool) (func(), error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	if exclusive {
		if a.busy {
			a.mu.Unlock()
			return nil, ErrBusy
		}
		a.busy = true
	}
	a.loading++
	first := a.loading == 1
	a.mu.Unlock()

	if first {
		a.loader.RequestShow()
		a.emit(Event{Kind: LoadingChanged, Visible: true})
	}

	return func() {
		a.mu.Lock()
		if exclusive {
			a.busy = false
		}
		a.loading--
		last := a.loading == 0
		a.mu.Unlock()

		if last {
			a.loader.RequestHide()
			a.emit(Event{Kind: LoadingChanged, Visible: false})
		}
	}, nil
}

// bind derives a context that is also cancelled by Close.
func (a *App) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(a.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (a *App) setProgress(percent int, text string) {
	a.mu.Lock()
	a.percent = percent
	a.stageText = text
	a.mu.Unlock()

	a.emit(Event{Kind: ProgressChanged, Percent: percent, Text: text})
}

func (a *App) fail(command, prefix string, err error) {
	a.logger.Warn("command failed", "command", command, "error", err)
	a.notifier.Error(prefix + err.Error())
}
