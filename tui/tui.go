// Package tui is the terminal front end: a three-view bubbletea program
// (search, paper detail, upload history) driving a precis.Service.
//
// All orchestration happens in the service; the model owns view state only.
// Keys that start an orchestrated operation are refused with a notice while
// one is already in flight, matching the service's single-flight lock.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	precis "github.com/scrivano/precis"
	"github.com/scrivano/precis/history"
	"github.com/scrivano/precis/papers"
	"github.com/scrivano/precis/safeid"
)

// Config wires runtime dependencies into the TUI program.
type Config struct {
	// Service is the orchestration core. Required.
	Service *precis.Service

	// Events carries service events (poll outcomes, upload stages) into the
	// program. The sender must never block; the channel should be buffered.
	Events <-chan precis.Event

	// InitialPaper opens this identifier's detail view on startup. The fetch
	// passes through the same lock rules as any interactive open.
	InitialPaper string

	// Logger receives diagnostics. Defaults to slog.Default; route it away
	// from the terminal while the program runs.
	Logger *slog.Logger
}

// New returns a tea.Model ready to be mounted into a Program.
func New(cfg Config) tea.Model {
	input := textinput.New()
	input.CharLimit = 512
	input.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(76, 14)

	m := &model{
		cfg:      cfg,
		logger:   cfg.Logger,
		view:     viewSearch,
		sort:     papers.SortRelevance,
		input:    input,
		spinner:  spin,
		viewport: vp,
		width:    80,
		height:   24,
		status:   "Press / to search, u for your uploads.",
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if cfg.InitialPaper != "" {
		m.pending = pendingOpen
	}
	return m
}

// view identifies the single active screen.
type view int

const (
	viewSearch view = iota
	viewDetail
	viewUploads
)

// inputMode says what the shared text prompt is collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputQuery
	inputOpenID
	inputUploadPath
)

// pendingOp names the orchestrated operation currently in flight, if any.
// While set, every operation-starting key is refused.
type pendingOp int

const (
	pendingNone pendingOp = iota
	pendingSearch
	pendingOpen
	pendingUpload
	pendingSubmit
	pendingUploads
)

const busyNotice = "operation in progress"

const requestTimeout = 30 * time.Second

// uploadTimeout bounds the whole pipeline: read, convert, probe, store,
// enqueue.
const uploadTimeout = 5 * time.Minute

type model struct {
	cfg    Config
	logger *slog.Logger

	view       view
	returnView view

	input     textinput.Model
	inputMode inputMode
	spinner   spinner.Model
	viewport  viewport.Model

	width  int
	height int

	// search state
	query    string
	page     int
	sort     papers.Sort
	searched bool
	results  []papers.Record
	cursor   int
	total    int
	hasNext  bool

	// detail state
	detail        *papers.Record
	detailPolling bool
	pollTicks     int

	// uploads state
	uploads       []history.Record
	uploadsCursor int

	pending     pendingOp
	uploadStage precis.Stage

	status    string
	statusErr bool
	quitting  bool
}

type searchResultMsg struct {
	query  string
	page   int
	sort   papers.Sort
	result *papers.SearchPage
	err    error
}

type paperResultMsg struct {
	id  string
	rec *papers.Record
	err error
}

type uploadResultMsg struct {
	path string
	res  *precis.UploadResult
	err  error
}

type submitResultMsg struct {
	rec papers.Record
	err error
}

type uploadsResultMsg struct {
	records []history.Record
	err     error
}

type serviceEventMsg struct {
	event precis.Event
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.listenEvents()}
	if m.cfg.InitialPaper != "" {
		cmds = append(cmds, m.spinner.Tick, m.openPaperCmd(m.cfg.InitialPaper))
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.busy() || m.detailPolling {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case serviceEventMsg:
		m.handleEvent(msg.event)
		return m, m.listenEvents()

	case searchResultMsg:
		m.handleSearchResult(msg)
		return m, nil

	case paperResultMsg:
		m.handlePaperResult(msg)
		return m, nil

	case uploadResultMsg:
		m.handleUploadResult(msg)
		return m, nil

	case submitResultMsg:
		m.handleSubmitResult(msg)
		return m, nil

	case uploadsResultMsg:
		m.handleUploadsResult(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.inputMode != inputNone {
			return m.handleInputKey(msg)
		}
		return m.handleViewKey(msg)
	}

	// Component housekeeping (cursor blinks and the like) goes to the
	// focused prompt.
	if m.inputMode != inputNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// listenEvents re-arms the service event subscription. Each delivered event
// returns here via serviceEventMsg.
func (m *model) listenEvents() tea.Cmd {
	events := m.cfg.Events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return serviceEventMsg{event: ev}
	}
}

// busy reports whether an orchestrated operation is in flight, either one
// started here or one holding the service lock from another front end.
func (m *model) busy() bool {
	return m.pending != pendingNone || m.cfg.Service.Busy()
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	vw := width - 4
	if vw < 20 {
		vw = 20
	}
	vh := height - 10
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = vw
	m.viewport.Height = vh
	iw := width - 20
	if iw > 60 {
		iw = 60
	}
	if iw < 20 {
		iw = 20
	}
	m.input.Width = iw
	m.refreshDetail()
}

func (m *model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *model) setError(s string) {
	m.status = s
	m.statusErr = true
}

// openDetail switches to the detail view for rec. Records still waiting on a
// summary are watched; the poller is cancelled again when the view is left.
func (m *model) openDetail(rec papers.Record) {
	if m.view == viewDetail && m.detail != nil {
		if safeid.Sanitize(m.detail.ID) != safeid.Sanitize(rec.ID) {
			m.cfg.Service.Unwatch(m.detail.ID)
		}
	} else {
		m.returnView = m.view
	}
	r := rec
	m.detail = &r
	m.view = viewDetail
	m.pollTicks = 0
	m.detailPolling = false
	if !rec.Ready() && !rec.Failed() {
		m.cfg.Service.Watch(rec.ID)
		m.detailPolling = true
	}
	m.refreshDetail()
	m.viewport.GotoTop()
}

func (m *model) leaveDetail() {
	if m.detail != nil {
		m.cfg.Service.Unwatch(m.detail.ID)
	}
	m.detail = nil
	m.detailPolling = false
	m.view = m.returnView
}

// detailShowing reports whether the detail view is open on the identifier an
// event refers to. Event identifiers arrive sanitized.
func (m *model) detailShowing(id string) bool {
	return m.view == viewDetail && m.detail != nil && safeid.Sanitize(m.detail.ID) == id
}

func (m *model) handleEvent(ev precis.Event) {
	switch ev.Kind {
	case precis.EventNotice:
		m.setStatus(ev.Message)
	case precis.EventStage:
		m.uploadStage = ev.Stage
	case precis.EventPoll:
		if m.detailShowing(ev.ID) {
			m.pollTicks++
		}
	case precis.EventResolved:
		if m.detailShowing(ev.ID) && ev.Record != nil {
			rec := *ev.Record
			m.detail = &rec
			m.detailPolling = false
			m.refreshDetail()
			m.viewport.GotoTop()
			m.setStatus("Summary ready.")
			return
		}
		m.setStatus("Summary ready for " + ev.ID + ".")
	case precis.EventFailed:
		text := "Summarization failed"
		if ev.Err != nil {
			text += ": " + ev.Err.Error()
		}
		if m.detailShowing(ev.ID) {
			m.detailPolling = false
			if ev.Record != nil {
				rec := *ev.Record
				m.detail = &rec
				m.refreshDetail()
			}
		}
		m.setError(text)
	}
}

func (m *model) searchCmd(query string, page int, sort papers.Sort) tea.Cmd {
	svc := m.cfg.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		result, err := svc.Search(ctx, query, page, sort)
		return searchResultMsg{query: query, page: page, sort: sort, result: result, err: err}
	}
}

func (m *model) openPaperCmd(id string) tea.Cmd {
	svc := m.cfg.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rec, err := svc.Paper(ctx, id)
		return paperResultMsg{id: id, rec: rec, err: err}
	}
}

func (m *model) uploadCmd(path string) tea.Cmd {
	svc := m.cfg.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		res, err := svc.Upload(ctx, path)
		return uploadResultMsg{path: path, res: res, err: err}
	}
}

func (m *model) submitCmd(rec papers.Record) tea.Cmd {
	svc := m.cfg.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := svc.Submit(ctx, rec)
		return submitResultMsg{rec: rec, err: err}
	}
}

func (m *model) uploadsCmd() tea.Cmd {
	svc := m.cfg.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		records, err := svc.Uploads(ctx)
		return uploadsResultMsg{records: records, err: err}
	}
}
