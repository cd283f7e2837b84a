package precis

import "github.com/scrivano/precis/papers"

// EventKind classifies orchestration events.
type EventKind string

const (
	// EventNotice is a transient user-facing message.
	EventNotice EventKind = "notice"

	// EventStage marks an upload pipeline stage change.
	EventStage EventKind = "stage"

	// EventPoll reports an intermediate poll observation: the record exists
	// but has no usable summary yet.
	EventPoll EventKind = "poll"

	// EventResolved is terminal: the record has a summary.
	EventResolved EventKind = "resolved"

	// EventFailed is terminal: the record failed, vanished, or the poll
	// budget ran out.
	EventFailed EventKind = "failed"
)

// Stage is one step of the upload pipeline.
type Stage string

const (
	StageReading    Stage = "reading"
	StageConverting Stage = "converting"
	StageUploading  Stage = "uploading"
)

// Event is one orchestration signal delivered to the configured sink.
type Event struct {
	Kind EventKind

	// ID is the subject identifier: the watched record for poll events,
	// the file base name for stage events.
	ID string

	// Stage is set for EventStage.
	Stage Stage

	// Record is set for EventPoll and EventResolved, and for EventFailed
	// when the backend returned a failed record.
	Record *papers.Record

	// Err is set for EventFailed.
	Err error

	// Message is set for EventNotice.
	Message string
}

// Sink receives events from the service. Calls may come from poller
// goroutines; implementations must be safe for concurrent use and must not
// block.
type Sink func(Event)
