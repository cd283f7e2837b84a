package papers

import (
	"encoding/json"
	"strings"
)

// Origin distinguishes backend-confirmed records from local placeholders.
type Origin string

const (
	// OriginBackend marks a record decoded from a backend response.
	OriginBackend Origin = "backend"
	// OriginLocalPending marks a client-fabricated placeholder shown while
	// an upload's task has been submitted but not yet confirmed.
	OriginLocalPending Origin = "local_pending"
)

// Record is the canonical paper record. Every backend response shape is
// normalized into this form at the client boundary; no other package decodes
// wire payloads.
type Record struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	SourceURL  string   `json:"source_url,omitempty"`
	Processing bool     `json:"processing"`
	Err        string   `json:"error,omitempty"`
	Origin     Origin   `json:"origin"`
}

// Ready reports whether the record carries a resolved summary.
func (r Record) Ready() bool {
	return !r.Processing && r.Summary != "" && r.Err == ""
}

// Failed reports whether the backend recorded a processing error.
func (r Record) Failed() bool {
	return r.Err != ""
}

// LocalPending fabricates the optimistic placeholder record for a submitted
// upload. It is never confusable with a backend record: its Origin is
// OriginLocalPending and it always reports Processing.
func LocalPending(id, title string) Record {
	return Record{
		ID:         id,
		Title:      title,
		Processing: true,
		Origin:     OriginLocalPending,
	}
}

// Task is the descriptor submitted to the enqueue endpoint.
type Task struct {
	ArxivID      string   `json:"arxiv_id"`
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Summary      string   `json:"summary"`
	PDFURL       string   `json:"pdf_url"`
	Processing   bool     `json:"processing"`
	ManualUpload bool     `json:"manual_upload,omitempty"`
	HashString   string   `json:"hash_string,omitempty"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Papers       []Record `json:"papers"`
	TotalResults int      `json:"total_results"`
	Page         int      `json:"page"`
	PageSize     int      `json:"page_size"`
	HasNextPage  bool     `json:"has_next_page"`
}

// Sort enumerates the backend's search orderings.
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortSubmitted Sort = "submitted_date"
	SortUpdated   Sort = "last_updated"
)

// Sorts lists the valid orderings in display order.
func Sorts() []Sort {
	return []Sort{SortRelevance, SortSubmitted, SortUpdated}
}

// wirePaper mirrors the backend's paper shape. Two layouts exist: a flat
// object, and an envelope whose metadata sits under "arxivReference" (the
// enqueue handler stores the submitted descriptor there verbatim). merged
// flattens both into one view before normalization.
type wirePaper struct {
	ArxivID         string     `json:"arxiv_id"`
	Title           string     `json:"title"`
	Authors         authorList `json:"authors"`
	Summary         string     `json:"summary"`
	PDFURL          string     `json:"pdf_url"`
	Processing      bool       `json:"processing"`
	ProcessingError string     `json:"processing_error"`
	HashString      string     `json:"hash_string"`
	ManualUpload    bool       `json:"manual_upload"`
	TaskID          string     `json:"task_id"`
	Published       string     `json:"published"`
	Updated         string     `json:"updated"`
	Categories      []string   `json:"categories"`
	Message         string     `json:"message"`

	ArxivReference *wirePaper `json:"arxivReference"`
}

// merged resolves the envelope shape: fields absent at the top level fall
// back to the nested reference; boolean flags OR together so a processing
// envelope around a finished reference still reads as processing.
func (w wirePaper) merged() wirePaper {
	if w.ArxivReference == nil {
		return w
	}
	ref := w.ArxivReference.merged()
	out := w
	out.ArxivReference = nil
	if out.ArxivID == "" {
		out.ArxivID = ref.ArxivID
	}
	if out.Title == "" {
		out.Title = ref.Title
	}
	if len(out.Authors) == 0 {
		out.Authors = ref.Authors
	}
	if out.Summary == "" {
		out.Summary = ref.Summary
	}
	if out.PDFURL == "" {
		out.PDFURL = ref.PDFURL
	}
	if out.ProcessingError == "" {
		out.ProcessingError = ref.ProcessingError
	}
	out.Processing = out.Processing || ref.Processing
	return out
}

// record normalizes a wire paper into the canonical Record. ok is false when
// the payload carries no identity at all (treated as not-found upstream).
func (w wirePaper) record() (Record, bool) {
	m := w.merged()
	if m.ArxivID == "" && m.Title == "" {
		return Record{}, false
	}
	return Record{
		ID:         m.ArxivID,
		Title:      m.Title,
		Authors:    m.Authors,
		Summary:    m.Summary,
		SourceURL:  m.PDFURL,
		Processing: m.Processing,
		Err:        m.ProcessingError,
		Origin:     OriginBackend,
	}, true
}

// authorList accepts both wire encodings of the author field: a JSON array
// of names, or a single comma-separated string.
type authorList []string

func (a *authorList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if strings.TrimSpace(single) == "" {
		*a = nil
		return nil
	}
	parts := strings.Split(single, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*a = out
	return nil
}
