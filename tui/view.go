package tui

import (
	"fmt"
	"strings"

	precis "github.com/scrivano/precis"
	"github.com/scrivano/precis/papers"
)

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	var body string
	switch m.view {
	case viewSearch:
		body = m.searchView()
	case viewDetail:
		body = m.detailView()
	case viewUploads:
		body = m.uploadsView()
	}
	return m.headerView() + "\n\n" + body + "\n" + m.footerView()
}

func (m *model) headerView() string {
	parts := []string{titleBarStyle.Render("precis"), crumbStyle.Render(m.viewTitle())}
	if m.busy() {
		parts = append(parts, m.spinner.View()+" "+m.busyLabel())
	} else if m.detailPolling {
		parts = append(parts, m.spinner.View()+" waiting for summary")
	}
	return strings.Join(parts, "  ")
}

func (m *model) viewTitle() string {
	switch m.view {
	case viewDetail:
		return "Paper"
	case viewUploads:
		return "My Uploads"
	default:
		return "Search"
	}
}

func (m *model) busyLabel() string {
	switch m.pending {
	case pendingSearch:
		return "searching"
	case pendingOpen:
		return "loading paper"
	case pendingSubmit:
		return "queueing summarization"
	case pendingUploads:
		return "loading uploads"
	case pendingUpload:
		switch m.uploadStage {
		case precis.StageConverting:
			return "converting to PDF"
		case precis.StageUploading:
			return "uploading artifact"
		default:
			return "reading document"
		}
	}
	return "working"
}

func (m *model) searchView() string {
	var b strings.Builder
	if m.searched {
		b.WriteString(fmt.Sprintf("Query: %q · sort: %s\n\n", m.query, m.sort))
	} else {
		b.WriteString(faintStyle.Render("No query yet. Press / to search arXiv.") + "\n\n")
	}
	if m.searched && len(m.results) == 0 {
		b.WriteString(faintStyle.Render("Nothing found.") + "\n")
	}
	for i, rec := range m.results {
		title := truncate(rec.Title, m.width-6)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("› "+title) + "\n")
		} else {
			b.WriteString("  " + title + "\n")
		}
		b.WriteString("    " + faintStyle.Render(resultMeta(rec, m.width-8)) + "\n")
	}
	if pagination := m.paginationView(); pagination != "" {
		b.WriteString("\n" + pagination + "\n")
	}
	return b.String()
}

// paginationView renders only once a non-empty query has been issued. The
// prev control is disabled on the first page, next when the last response
// reported no further pages.
func (m *model) paginationView() string {
	if !m.paginationActive() {
		return ""
	}
	prev := "← prev"
	if m.prevEnabled() {
		prev = pageStyle.Render(prev)
	} else {
		prev = disabledStyle.Render(prev)
	}
	next := "next →"
	if m.nextEnabled() {
		next = pageStyle.Render(next)
	} else {
		next = disabledStyle.Render(next)
	}
	return fmt.Sprintf("%s · %s · %s", pageStyle.Render(fmt.Sprintf("Page %d", m.page+1)), prev, next)
}

func resultMeta(rec papers.Record, width int) string {
	state := "no summary"
	switch {
	case rec.Ready():
		state = "summarized"
	case rec.Failed():
		state = "failed"
	case rec.Processing:
		state = "processing"
	}
	meta := state
	if len(rec.Authors) > 0 {
		meta = truncate(strings.Join(rec.Authors, ", "), width-len(state)-3) + " · " + state
	}
	return meta
}

func (m *model) detailView() string {
	if m.detail == nil {
		return faintStyle.Render("Nothing open.")
	}
	rec := m.detail
	var b strings.Builder
	b.WriteString(headingStyle.Render(rec.Title) + "\n")
	if len(rec.Authors) > 0 {
		b.WriteString(faintStyle.Render(strings.Join(rec.Authors, ", ")) + "\n")
	}
	switch {
	case rec.Failed():
		b.WriteString("\n" + errorStyle.Render("Processing failed: "+rec.Err) + "\n")
	case m.detailPolling:
		note := "Summary in progress."
		if m.pollTicks > 0 {
			note = fmt.Sprintf("Summary in progress, checked %d times.", m.pollTicks)
		}
		b.WriteString("\n" + noticeStyle.Render(note) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	return b.String()
}

// refreshDetail rewraps the summary into the viewport. Called on open, on
// poll resolution, and on resize.
func (m *model) refreshDetail() {
	if m.detail == nil {
		return
	}
	if m.detail.Summary == "" {
		m.viewport.SetContent(faintStyle.Render("No summary yet."))
		return
	}
	m.viewport.SetContent(renderMarkup(m.detail.Summary, m.viewport.Width))
}

func (m *model) uploadsView() string {
	var b strings.Builder
	if len(m.uploads) == 0 {
		b.WriteString(faintStyle.Render("No uploads yet. Press a to add a document.") + "\n")
		return b.String()
	}
	for i, rec := range m.uploads {
		title := rec.Title
		if title == "" {
			title = rec.FileName
		}
		title = truncate(title, m.width-6)
		if i == m.uploadsCursor {
			b.WriteString(selectedStyle.Render("› "+title) + "\n")
		} else {
			b.WriteString("  " + title + "\n")
		}
		meta := fmt.Sprintf("%s · %s", rec.FileName, rec.UploadedAt.Format("2006-01-02 15:04"))
		b.WriteString("    " + faintStyle.Render(meta) + "\n")
	}
	return b.String()
}

func (m *model) footerView() string {
	if m.inputMode != inputNone {
		return promptStyle.Render(m.inputLabel()+":") + " " + m.input.View() + "\n" +
			faintStyle.Render("enter to confirm · esc to cancel")
	}
	var b strings.Builder
	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(noticeStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(faintStyle.Render(m.hintsLine()))
	return b.String()
}

func (m *model) inputLabel() string {
	switch m.inputMode {
	case inputQuery:
		return "Search"
	case inputOpenID:
		return "Open paper"
	case inputUploadPath:
		return "Upload file"
	}
	return "Input"
}

func (m *model) hintsLine() string {
	switch m.view {
	case viewDetail:
		return "↑/↓ scroll · s summarize · esc back · q quit"
	case viewUploads:
		return "enter open · a upload · r refresh · esc back · q quit"
	default:
		if m.paginationActive() {
			return "/ query · enter open · s summarize · o sort · ←/→ pages · u uploads · q quit"
		}
		return "/ query · i open by id · u uploads · q quit"
	}
}

func truncate(s string, width int) string {
	if width < 8 {
		width = 8
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
