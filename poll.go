package precis

import (
	"context"
	"errors"
	"time"

	"github.com/scrivano/precis/papers"
	"github.com/scrivano/precis/safeid"
)

// ErrWatchExpired reports that polling gave up before the backend resolved
// the record.
var ErrWatchExpired = errors.New("precis: gave up waiting for summary")

// PollConfig bounds the summary poll loop.
type PollConfig struct {
	// Interval between polls (default 5s).
	Interval time.Duration

	// MaxAttempts is the total number of polls before giving up
	// (default 60).
	MaxAttempts int

	// MaxBackoff caps the escalating delay applied after transport
	// failures (default 60s). Backend answers reset the delay to Interval.
	MaxBackoff time.Duration
}

func (c *PollConfig) defaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 60
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
}

// Watch starts polling the backend for id's summary. Watching an id that is
// already being watched is a no-op; polls for one id are strictly
// sequential, while different ids poll concurrently. The watcher stops on a
// terminal event, Unwatch, or Close, and reports through the event sink.
func (s *Service) Watch(id string) {
	id = safeid.Sanitize(id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.watchers[id]; ok {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.watchers[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("poll: watching", "id", id)
	go s.pollLoop(ctx, id)
}

// Unwatch cancels the poller for id, if any. Navigating away from a record
// is expected to call this so stale polls do not outlive their view.
func (s *Service) Unwatch(id string) {
	id = safeid.Sanitize(id)

	s.mu.Lock()
	cancel, ok := s.watchers[id]
	delete(s.watchers, id)
	s.mu.Unlock()

	if ok {
		cancel()
		s.logger.Debug("poll: unwatched", "id", id)
	}
}

// Watching reports whether id currently has an active poller.
func (s *Service) Watching(id string) bool {
	id = safeid.Sanitize(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watchers[id]
	return ok
}

// Close cancels every poller and waits for them to stop. The service must
// not be used afterwards.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for id, cancel := range s.watchers {
		cancel()
		delete(s.watchers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) pollLoop(ctx context.Context, id string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()

	delay := s.pollCfg.Interval
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		rec, err := s.papers.Get(ctx, id)
		switch {
		case err == nil && rec.Failed():
			s.logger.Info("poll: record failed", "id", id, "error", rec.Err)
			s.emit(Event{Kind: EventFailed, ID: id, Record: rec, Err: errors.New(rec.Err)})
			return

		case err == nil && rec.Ready():
			s.logger.Info("poll: summary ready", "id", id, "attempts", attempt)
			s.emit(Event{Kind: EventResolved, ID: id, Record: rec})
			return

		case err == nil:
			// Still processing, or resolved without a summary yet.
			s.emit(Event{Kind: EventPoll, ID: id, Record: rec})
			delay = s.pollCfg.Interval

		case errors.Is(err, papers.ErrNotFound):
			s.logger.Info("poll: record absent", "id", id)
			s.emit(Event{Kind: EventFailed, ID: id, Err: err})
			return

		case ctx.Err() != nil:
			return

		default:
			// Transport trouble: back off, keep trying within the budget.
			s.logger.Warn("poll: request failed", "id", id, "attempt", attempt, "error", err)
			delay = min(delay*2, s.pollCfg.MaxBackoff)
		}

		if attempt >= s.pollCfg.MaxAttempts {
			s.logger.Warn("poll: giving up", "id", id, "attempts", attempt)
			s.emit(Event{Kind: EventFailed, ID: id, Err: ErrWatchExpired})
			return
		}
		timer.Reset(delay)
	}
}
