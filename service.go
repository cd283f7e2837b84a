// Package precis orchestrates the arXiv summarization client: search,
// manual uploads, task submission, and summary polling against the backend.
//
// A Service is the single orchestration context shared by every front end
// (terminal UI, MCP). Orchestrated operations — search, record resolution,
// upload, task submission — run under a single-flight lock that refuses
// concurrent work instead of queuing it; summary pollers run outside the
// lock, one goroutine per watched identifier.
package precis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/scrivano/precis/artifact"
	"github.com/scrivano/precis/history"
	"github.com/scrivano/precis/idgen"
	"github.com/scrivano/precis/objectstore"
	"github.com/scrivano/precis/papers"
	"github.com/scrivano/precis/safeid"
)

// Config wires the service's dependencies and policies.
type Config struct {
	// Papers is the backend client.
	Papers *papers.Client

	// Artifacts builds PDF artifacts from input files.
	Artifacts *artifact.Builder

	// History is the local upload ledger.
	History *history.Store

	// Objects stores produced artifacts.
	Objects objectstore.Uploader

	// Poll bounds the summary poll loop.
	Poll PollConfig

	// DedupStrict aborts an upload when the fingerprint probe fails for
	// transport reasons. The default keeps the fail-open policy: a failed
	// probe counts as a miss and the upload proceeds.
	DedupStrict bool
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEvents sets the event sink.
func WithEvents(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the upload identifier generator, for tests.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) { s.newID = g }
}

// Service is the orchestration core.
type Service struct {
	papers  *papers.Client
	builder *artifact.Builder
	ledger  *history.Store
	objects objectstore.Uploader
	pollCfg PollConfig
	strict  bool

	logger *slog.Logger
	sink   Sink
	now    func() time.Time
	newID  idgen.Generator

	lock opLock

	mu       sync.Mutex
	watchers map[string]context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Service.
func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.Papers == nil {
		return nil, errors.New("precis: papers client required")
	}
	if cfg.Artifacts == nil {
		return nil, errors.New("precis: artifact builder required")
	}
	if cfg.History == nil {
		return nil, errors.New("precis: history store required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("precis: object store required")
	}
	cfg.Poll.defaults()

	s := &Service{
		papers:   cfg.Papers,
		builder:  cfg.Artifacts,
		ledger:   cfg.History,
		objects:  cfg.Objects,
		pollCfg:  cfg.Poll,
		strict:   cfg.DedupStrict,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    idgen.Default,
		watchers: make(map[string]context.CancelFunc),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Busy reports whether an orchestrated operation is in flight. Front ends
// disable their controls while it returns true.
func (s *Service) Busy() bool { return s.lock.Held() }

// Search runs a backend query. Refused with ErrBusy while another
// orchestrated operation is in flight.
func (s *Service) Search(ctx context.Context, query string, page int, sort papers.Sort) (*papers.SearchPage, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrBusy
	}
	defer s.lock.Release()
	return s.papers.Search(ctx, query, page, sort)
}

// Paper resolves a record by identifier. Path-unsafe separators in the
// identifier are replaced before it reaches the backend.
func (s *Service) Paper(ctx context.Context, id string) (*papers.Record, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrBusy
	}
	defer s.lock.Release()
	return s.papers.Get(ctx, safeid.Sanitize(id))
}

// Uploads lists the local upload ledger, newest first.
func (s *Service) Uploads(ctx context.Context) ([]history.Record, error) {
	return s.ledger.List(ctx)
}

// Submit enqueues a summarization task for an existing backend record.
// Fire-and-confirm: one request, no retries.
func (s *Service) Submit(ctx context.Context, rec papers.Record) error {
	if !s.lock.TryAcquire() {
		return ErrBusy
	}
	defer s.lock.Release()

	task := papers.Task{
		ArxivID:    safeid.Sanitize(rec.ID),
		Title:      rec.Title,
		Authors:    rec.Authors,
		PDFURL:     rec.SourceURL,
		Processing: true,
	}
	if err := s.papers.Enqueue(ctx, task); err != nil {
		return err
	}
	s.logger.Info("submitted summarization task", "id", task.ArxivID)
	return nil
}

// emit delivers an event to the sink, if one is configured.
func (s *Service) emit(ev Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}
