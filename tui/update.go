package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	precis "github.com/scrivano/precis"
	"github.com/scrivano/precis/artifact"
	"github.com/scrivano/precis/history"
	"github.com/scrivano/precis/papers"
)

// handleViewKey dispatches normal-mode keys. Every key that would start an
// orchestrated operation or change views is refused with a notice while one
// is in flight; quitting is always allowed.
func (m *model) handleViewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "q" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy() {
		m.setStatus(busyNotice)
		return m, nil
	}
	switch m.view {
	case viewSearch:
		return m.handleSearchKey(msg)
	case viewDetail:
		return m.handleDetailKey(msg)
	case viewUploads:
		return m.handleUploadsKey(msg)
	}
	return m, nil
}

func (m *model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.openInput(inputQuery, "search arXiv", m.query)
		return m, textinput.Blink

	case "i":
		m.openInput(inputOpenID, "paper identifier", "")
		return m, textinput.Blink

	case "j", "down":
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return m, nil

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "enter":
		rec, ok := m.selectedResult()
		if !ok {
			m.setStatus("No result selected.")
			return m, nil
		}
		m.pending = pendingOpen
		return m, tea.Batch(m.spinner.Tick, m.openPaperCmd(rec.ID))

	case "s":
		rec, ok := m.selectedResult()
		if !ok {
			m.setStatus("No result selected.")
			return m, nil
		}
		if rec.Ready() {
			m.setStatus("Already summarized; press enter to open it.")
			return m, nil
		}
		if rec.Processing {
			m.setStatus("Summarization already running; press enter to follow it.")
			return m, nil
		}
		m.pending = pendingSubmit
		return m, tea.Batch(m.spinner.Tick, m.submitCmd(rec))

	case "o":
		if !m.paginationActive() {
			m.setStatus("Run a search before changing the sort order.")
			return m, nil
		}
		next := nextSort(m.sort)
		m.pending = pendingSearch
		return m, tea.Batch(m.spinner.Tick, m.searchCmd(m.query, 0, next))

	case "right", "n":
		if !m.nextEnabled() {
			return m, nil
		}
		m.pending = pendingSearch
		return m, tea.Batch(m.spinner.Tick, m.searchCmd(m.query, m.page+1, m.sort))

	case "left", "p":
		if !m.prevEnabled() {
			return m, nil
		}
		m.pending = pendingSearch
		return m, tea.Batch(m.spinner.Tick, m.searchCmd(m.query, m.page-1, m.sort))

	case "u":
		m.pending = pendingUploads
		return m, tea.Batch(m.spinner.Tick, m.uploadsCmd())
	}
	return m, nil
}

func (m *model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.leaveDetail()
		return m, nil

	case "s":
		if m.detail == nil || m.detail.Ready() || m.detailPolling {
			return m, nil
		}
		m.pending = pendingSubmit
		return m, tea.Batch(m.spinner.Tick, m.submitCmd(*m.detail))

	case "g":
		m.viewport.GotoTop()
		return m, nil

	case "G":
		m.viewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) handleUploadsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = viewSearch
		return m, nil

	case "j", "down":
		if m.uploadsCursor < len(m.uploads)-1 {
			m.uploadsCursor++
		}
		return m, nil

	case "k", "up":
		if m.uploadsCursor > 0 {
			m.uploadsCursor--
		}
		return m, nil

	case "enter":
		rec, ok := m.selectedUpload()
		if !ok {
			m.setStatus("No upload selected.")
			return m, nil
		}
		m.pending = pendingOpen
		return m, tea.Batch(m.spinner.Tick, m.openPaperCmd(rec.ID))

	case "a":
		m.openInput(inputUploadPath, "path to a PDF, Markdown, text, HTML, or DOCX file", "")
		return m, textinput.Blink

	case "r":
		m.pending = pendingUploads
		return m, tea.Batch(m.spinner.Tick, m.uploadsCmd())
	}
	return m, nil
}

func (m *model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submitInput()
	case tea.KeyEsc:
		m.closeInput()
		m.setStatus("Cancelled.")
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput dispatches the prompt value. The lock is re-checked here: it
// may have been taken by another front end while the user typed.
func (m *model) submitInput() (tea.Model, tea.Cmd) {
	mode := m.inputMode
	value := strings.TrimSpace(m.input.Value())
	m.closeInput()

	if value == "" {
		m.setStatus("Nothing entered.")
		return m, nil
	}
	if m.busy() {
		m.setStatus(busyNotice)
		return m, nil
	}

	switch mode {
	case inputQuery:
		m.pending = pendingSearch
		return m, tea.Batch(m.spinner.Tick, m.searchCmd(value, 0, m.sort))
	case inputOpenID:
		m.pending = pendingOpen
		return m, tea.Batch(m.spinner.Tick, m.openPaperCmd(value))
	case inputUploadPath:
		m.pending = pendingUpload
		m.uploadStage = ""
		return m, tea.Batch(m.spinner.Tick, m.uploadCmd(value))
	}
	return m, nil
}

func (m *model) openInput(mode inputMode, placeholder, prefill string) {
	m.inputMode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(prefill)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *model) closeInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *model) selectedResult() (papers.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return papers.Record{}, false
	}
	return m.results[m.cursor], true
}

func (m *model) selectedUpload() (history.Record, bool) {
	if m.uploadsCursor < 0 || m.uploadsCursor >= len(m.uploads) {
		return history.Record{}, false
	}
	return m.uploads[m.uploadsCursor], true
}

// paginationActive reports whether pagination and sort controls apply:
// search view with a completed non-empty query.
func (m *model) paginationActive() bool {
	return m.view == viewSearch && m.searched && m.query != ""
}

func (m *model) prevEnabled() bool {
	return m.paginationActive() && m.page > 0
}

func (m *model) nextEnabled() bool {
	return m.paginationActive() && m.hasNext
}

func nextSort(s papers.Sort) papers.Sort {
	sorts := papers.Sorts()
	for i, v := range sorts {
		if v == s {
			return sorts[(i+1)%len(sorts)]
		}
	}
	return sorts[0]
}

func (m *model) handleSearchResult(msg searchResultMsg) {
	m.pending = pendingNone
	if msg.err != nil {
		m.setError(describeError(msg.err, "search failed"))
		return
	}
	m.searched = true
	m.query = msg.query
	m.page = msg.page
	m.sort = msg.sort
	m.results = msg.result.Papers
	m.total = msg.result.TotalResults
	m.hasNext = msg.result.HasNextPage
	m.cursor = 0
	if len(m.results) == 0 {
		m.setStatus(fmt.Sprintf("No results for %q.", msg.query))
		return
	}
	m.setStatus(fmt.Sprintf("%d of %d results.", len(m.results), m.total))
}

func (m *model) handlePaperResult(msg paperResultMsg) {
	m.pending = pendingNone
	if msg.err != nil {
		if errors.Is(msg.err, papers.ErrNotFound) {
			m.setError(fmt.Sprintf("No paper found for %q.", msg.id))
			return
		}
		m.setError(describeError(msg.err, "could not load paper"))
		return
	}
	m.setStatus("")
	m.openDetail(*msg.rec)
}

func (m *model) handleUploadResult(msg uploadResultMsg) {
	m.pending = pendingNone
	m.uploadStage = ""
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, artifact.ErrUnsupportedFormat):
			m.setError("Unsupported file type. Use PDF, Markdown, text, HTML, or DOCX.")
		case msg.res != nil:
			// Artifact stored and recorded locally; only the task submission
			// failed.
			m.setError(describeError(msg.err, "task submission failed") + " The upload is kept in your history.")
		default:
			m.setError(describeError(msg.err, "upload failed"))
		}
		return
	}
	if msg.res.Deduplicated {
		m.setStatus("Matched an existing paper.")
	} else {
		m.setStatus("Upload submitted; waiting for the summary.")
	}
	m.openDetail(msg.res.Record)
}

func (m *model) handleSubmitResult(msg submitResultMsg) {
	m.pending = pendingNone
	if msg.err != nil {
		m.setError(describeError(msg.err, "could not queue summarization"))
		return
	}
	rec := msg.rec
	rec.Processing = true
	rec.Err = ""
	m.setStatus("Summarization queued.")
	m.openDetail(rec)
}

func (m *model) handleUploadsResult(msg uploadsResultMsg) {
	m.pending = pendingNone
	if msg.err != nil {
		m.setError(describeError(msg.err, "could not load upload history"))
		return
	}
	m.uploads = msg.records
	m.uploadsCursor = 0
	if m.view != viewUploads {
		m.view = viewUploads
	}
	m.setStatus("")
}

// describeError renders an error for the status line, folding the service's
// busy refusal into the standard notice.
func describeError(err error, prefix string) string {
	if errors.Is(err, precis.ErrBusy) {
		return busyNotice
	}
	return prefix + ": " + err.Error()
}
