package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	precis "github.com/scrivano/precis"
	"github.com/scrivano/precis/artifact"
	"github.com/scrivano/precis/history"
	"github.com/scrivano/precis/objectstore"
	"github.com/scrivano/precis/papers"
)

// fixture drives the model against a real Service wired to one fake HTTP
// server playing both the summarization backend and the artifact store.
// Commands returned by Update are executed synchronously through feed, so by
// the time a press call returns the keystroke's whole round trip has landed.
type fixture struct {
	t     *testing.T
	m     *model
	svc   *precis.Service
	store *history.Store

	events chan precis.Event

	searches, gets, hashes, enqueues, puts atomic.Int32

	mu      sync.Mutex
	tasks   []papers.Task
	queries []url.Values

	onSearch http.HandlerFunc
	onGet    http.HandlerFunc
	onHash   http.HandlerFunc

	// searchGate, when set before the first request, blocks /search until
	// closed. Used to hold the service lock from outside the model.
	searchGate chan struct{}
}

var fixedStamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, events: make(chan precis.Event, 64)}
	f.onSearch = serveResults
	f.onGet = servePaper(false)
	f.onHash = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no match", http.StatusNotFound)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if gate := f.searchGate; gate != nil {
			<-gate
		}
		f.searches.Add(1)
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query())
		f.mu.Unlock()
		f.onSearch(w, r)
	})
	mux.HandleFunc("/paper/hash", func(w http.ResponseWriter, r *http.Request) {
		f.hashes.Add(1)
		f.onHash(w, r)
	})
	mux.HandleFunc("/paper/", func(w http.ResponseWriter, r *http.Request) {
		f.gets.Add(1)
		f.onGet(w, r)
	})
	mux.HandleFunc("/enqueue", func(w http.ResponseWriter, r *http.Request) {
		f.enqueues.Add(1)
		var task papers.Task
		if err := json.NewDecoder(r.Body).Decode(&task); err == nil {
			f.mu.Lock()
			f.tasks = append(f.tasks, task)
			f.mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		f.puts.Add(1)
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := papers.New(papers.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	f.store, err = history.Open(history.Config{Path: filepath.Join(t.TempDir(), "uploads.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.store.Close() })
	uploader, err := objectstore.NewHTTP(objectstore.HTTPConfig{BaseURL: srv.URL + "/artifacts"})
	if err != nil {
		t.Fatal(err)
	}

	f.svc, err = precis.New(precis.Config{
		Papers:    client,
		Artifacts: artifact.New(artifact.Config{}),
		History:   f.store,
		Objects:   uploader,
		// The long interval keeps real polls out of these tests: watch state
		// is asserted directly and poll outcomes are injected as events.
		Poll: precis.PollConfig{Interval: time.Minute, MaxAttempts: 3, MaxBackoff: time.Minute},
	},
		precis.WithEvents(func(ev precis.Event) {
			select {
			case f.events <- ev:
			default:
			}
		}),
		precis.WithIDGenerator(func() string { return "up-fixed" }),
		precis.WithClock(func() time.Time { return fixedStamp }),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.svc.Close)

	f.m = New(Config{Service: f.svc, Events: f.events}).(*model)
	return f
}

// serveResults answers /search with a full page of ten bare records; pages 0
// through 2 report another page after them.
func serveResults(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	list := make([]map[string]any, 0, 10)
	for i := 0; i < 10; i++ {
		n := page*10 + i + 1
		list = append(list, map[string]any{
			"arxiv_id": fmt.Sprintf("2401.%05d", n),
			"title":    fmt.Sprintf("Result %d", n),
			"authors":  []string{"Ada Lovelace", "Grace Hopper"},
		})
	}
	json.NewEncoder(w).Encode(map[string]any{
		"papers":        list,
		"total_results": 42,
		"page":          page,
		"page_size":     10,
		"has_next_page": page < 3,
	})
}

func servePaper(processing bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/paper/")
		body := map[string]any{
			"arxiv_id": id,
			"title":    "Paper " + id,
			"authors":  []string{"Ada Lovelace"},
		}
		if processing {
			body["processing"] = true
		} else {
			body["summary"] = "## Findings\n\nResidual connections ease optimization of **deep** networks."
		}
		json.NewEncoder(w).Encode(body)
	}
}

// key builds the KeyMsg a terminal would deliver for a key name.
func key(name string) tea.KeyMsg {
	switch name {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(name)}
}

// press sends keys through Update, running each returned command to
// completion before the next key.
func (f *fixture) press(keys ...string) {
	f.t.Helper()
	for _, k := range keys {
		_, cmd := f.m.Update(key(k))
		f.feed(cmd)
	}
}

// feed executes a command pipeline synchronously. Only messages produced by
// this package's own commands are fed back into Update; component messages
// (spinner ticks, cursor blinks) are dropped because executing their
// follow-ups would sleep, and the event subscription is never executed here —
// tests inject service events with deliver instead.
func (f *fixture) feed(cmd tea.Cmd) {
	f.t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			f.feed(c)
		}
	case searchResultMsg, paperResultMsg, uploadResultMsg, submitResultMsg, uploadsResultMsg:
		_, next := f.m.Update(msg)
		f.feed(next)
	}
}

// search opens the query prompt, fills it, and submits.
func (f *fixture) search(query string) {
	f.t.Helper()
	f.press("/")
	f.m.input.SetValue(query)
	f.press("enter")
}

// deliver injects a service event as if the subscription had produced it;
// the re-armed subscription command is dropped.
func (f *fixture) deliver(ev precis.Event) {
	f.m.Update(serviceEventMsg{event: ev})
}

func (f *fixture) lastQuery() url.Values {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		f.t.Fatal("no search request was made")
	}
	return f.queries[len(f.queries)-1]
}

func (f *fixture) lastTask() papers.Task {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tasks) == 0 {
		f.t.Fatal("no task was enqueued")
	}
	return f.tasks[len(f.tasks)-1]
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const docMarkdown = "# Attention Is All You Need\n\nWe propose the Transformer, a network architecture based solely on attention."

func TestInitialState(t *testing.T) {
	f := newFixture(t)

	if f.m.view != viewSearch {
		t.Fatalf("initial view = %d, want search", f.m.view)
	}
	out := f.m.View()
	if !strings.Contains(out, "No query yet") {
		t.Errorf("missing empty-search hint:\n%s", out)
	}
	if strings.Contains(out, "Page ") {
		t.Errorf("pagination rendered before any search:\n%s", out)
	}
	if !strings.Contains(out, "i open by id") {
		t.Errorf("missing key hints:\n%s", out)
	}
}

func TestSearchShowsFirstPage(t *testing.T) {
	f := newFixture(t)
	f.search("machine learning")

	if !f.m.searched {
		t.Fatal("search did not complete")
	}
	if f.m.pending != pendingNone {
		t.Fatalf("pending = %d after the search settled", f.m.pending)
	}
	if got := len(f.m.results); got != 10 {
		t.Fatalf("got %d results, want 10", got)
	}
	if f.m.page != 0 || !f.m.hasNext {
		t.Fatalf("page = %d hasNext = %v, want first page with more", f.m.page, f.m.hasNext)
	}
	if f.m.prevEnabled() {
		t.Error("previous-page control enabled on the first page")
	}
	if !f.m.nextEnabled() {
		t.Error("next-page control disabled although more pages exist")
	}

	q := f.lastQuery()
	if q.Get("query") != "machine learning" || q.Get("page") != "0" || q.Get("sort_by") != "relevance" {
		t.Errorf("request params = %v", q)
	}

	out := f.m.View()
	for _, want := range []string{`Query: "machine learning"`, "Result 1", "Page 1", "10 of 42 results."} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestSearchNoResults(t *testing.T) {
	f := newFixture(t)
	f.onSearch = func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"papers": []any{}})
	}
	f.search("nadazilch")

	if len(f.m.results) != 0 || !f.m.searched {
		t.Fatalf("results = %d searched = %v", len(f.m.results), f.m.searched)
	}
	if f.m.status != `No results for "nadazilch".` {
		t.Errorf("status = %q", f.m.status)
	}
	if !strings.Contains(f.m.View(), "Nothing found.") {
		t.Errorf("view missing empty marker:\n%s", f.m.View())
	}
}

func TestPaginationKeys(t *testing.T) {
	f := newFixture(t)
	f.search("transformers")

	f.press("right")
	if f.m.page != 1 {
		t.Fatalf("page after next = %d, want 1", f.m.page)
	}
	if got := f.lastQuery().Get("page"); got != "1" {
		t.Errorf("requested page = %q, want 1", got)
	}
	if !strings.Contains(f.m.View(), "Page 2") {
		t.Errorf("label not advanced:\n%s", f.m.View())
	}

	f.press("left")
	if f.m.page != 0 {
		t.Fatalf("page after prev = %d, want 0", f.m.page)
	}

	before := f.searches.Load()
	f.press("left")
	if f.searches.Load() != before || f.m.page != 0 {
		t.Error("previous page requested even though the control is disabled")
	}
}

func TestNextInertOnLastPage(t *testing.T) {
	f := newFixture(t)
	f.onSearch = func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"papers": []map[string]any{{
				"arxiv_id": "2401.00001",
				"title":    "Only Result",
			}},
			"total_results": 1,
			"page":          0,
			"page_size":     10,
			"has_next_page": false,
		})
	}
	f.search("singleton")

	if f.m.hasNext || f.m.nextEnabled() {
		t.Fatal("next-page control enabled on the last page")
	}
	before := f.searches.Load()
	f.press("right")
	if f.searches.Load() != before || f.m.page != 0 {
		t.Error("next page requested even though the control is disabled")
	}
}

func TestPaginationOnlyInSearchView(t *testing.T) {
	f := newFixture(t)
	f.search("graph networks")
	if !strings.Contains(f.m.View(), "Page 1") {
		t.Fatalf("pagination missing after search:\n%s", f.m.View())
	}

	f.press("u")
	if f.m.view != viewUploads {
		t.Fatalf("view = %d after u, want uploads", f.m.view)
	}
	if strings.Contains(f.m.View(), "Page ") {
		t.Errorf("pagination rendered outside the search view:\n%s", f.m.View())
	}

	f.press("esc")
	if f.m.view != viewSearch {
		t.Fatalf("view = %d after esc, want search", f.m.view)
	}
	if !strings.Contains(f.m.View(), "Page 1") {
		t.Errorf("search context lost on return:\n%s", f.m.View())
	}
}

func TestSortCycle(t *testing.T) {
	f := newFixture(t)

	f.press("o")
	if f.searches.Load() != 0 || f.m.sort != papers.SortRelevance {
		t.Fatal("sort cycled before any query existed")
	}
	if !strings.Contains(f.m.status, "Run a search") {
		t.Errorf("status = %q", f.m.status)
	}

	f.search("diffusion")
	f.press("right")
	f.press("o")
	if f.m.sort != papers.SortSubmitted {
		t.Fatalf("sort = %q, want %q", f.m.sort, papers.SortSubmitted)
	}
	if f.m.page != 0 {
		t.Fatalf("page = %d after sort change, want 0", f.m.page)
	}
	q := f.lastQuery()
	if q.Get("sort_by") != "submitted_date" || q.Get("page") != "0" {
		t.Errorf("request params = %v", q)
	}

	f.press("o", "o")
	if f.m.sort != papers.SortRelevance {
		t.Fatalf("sort = %q after a full cycle, want relevance", f.m.sort)
	}
}

func TestNextSortWraps(t *testing.T) {
	order := []papers.Sort{papers.SortRelevance, papers.SortSubmitted, papers.SortUpdated, papers.SortRelevance}
	for i := 0; i < len(order)-1; i++ {
		if got := nextSort(order[i]); got != order[i+1] {
			t.Errorf("nextSort(%q) = %q, want %q", order[i], got, order[i+1])
		}
	}
	if got := nextSort(""); got != papers.SortRelevance {
		t.Errorf("nextSort of unknown value = %q, want relevance", got)
	}
}

func TestOpenSelectedResult(t *testing.T) {
	f := newFixture(t)
	f.search("resnets")
	f.press("j")
	f.press("enter")

	if got := f.gets.Load(); got != 1 {
		t.Fatalf("record fetches = %d, want 1", got)
	}
	if f.m.view != viewDetail || f.m.detail == nil {
		t.Fatal("detail view did not open")
	}
	if f.m.detail.ID != "2401.00002" {
		t.Fatalf("opened %q, want the second result", f.m.detail.ID)
	}
	if f.m.returnView != viewSearch {
		t.Errorf("returnView = %d, want search", f.m.returnView)
	}
	if f.m.detailPolling || f.svc.Watching("2401.00002") {
		t.Error("resolved record should not be watched")
	}

	out := f.m.View()
	if !strings.Contains(out, "Paper 2401.00002") || !strings.Contains(out, "Residual connections") {
		t.Errorf("detail content missing:\n%s", out)
	}
	if strings.Contains(out, "**") || strings.Contains(out, "##") {
		t.Errorf("markup markers leaked into the viewport:\n%s", out)
	}

	f.press("esc")
	if f.m.view != viewSearch || f.m.detail != nil {
		t.Error("esc did not return to the search view")
	}
}

func TestOpenProcessingResultWatches(t *testing.T) {
	f := newFixture(t)
	f.onGet = servePaper(true)
	f.search("pending")
	f.press("enter")

	if f.m.view != viewDetail || f.m.detail == nil {
		t.Fatal("detail view did not open")
	}
	if !f.m.detail.Processing {
		t.Fatal("record should still be processing")
	}
	if !f.m.detailPolling {
		t.Error("detail is not marked as waiting")
	}
	if !f.svc.Watching("2401.00001") {
		t.Error("no poller was started for the open record")
	}
	if !strings.Contains(f.m.View(), "Summary in progress") {
		t.Errorf("progress note missing:\n%s", f.m.View())
	}

	f.press("esc")
	if f.svc.Watching("2401.00001") {
		t.Error("poller survived leaving the detail view")
	}
	if f.m.view != viewSearch {
		t.Errorf("view = %d after esc, want search", f.m.view)
	}
}

func TestPollAndResolveEvents(t *testing.T) {
	f := newFixture(t)
	f.onGet = servePaper(true)
	f.search("pending")
	f.press("enter")

	f.deliver(precis.Event{Kind: precis.EventPoll, ID: "2401.00001"})
	f.deliver(precis.Event{Kind: precis.EventPoll, ID: "2401.00001"})
	if f.m.pollTicks != 2 {
		t.Fatalf("pollTicks = %d, want 2", f.m.pollTicks)
	}
	if !strings.Contains(f.m.View(), "checked 2 times") {
		t.Errorf("poll count missing:\n%s", f.m.View())
	}

	done := papers.Record{ID: "2401.00001", Title: "Paper 2401.00001", Summary: "All done **here**."}
	f.deliver(precis.Event{Kind: precis.EventResolved, ID: "2401.00001", Record: &done})

	if f.m.detailPolling {
		t.Error("still marked waiting after resolution")
	}
	if f.m.status != "Summary ready." {
		t.Errorf("status = %q", f.m.status)
	}
	if !strings.Contains(f.m.View(), "All done here.") {
		t.Errorf("resolved summary not rendered:\n%s", f.m.View())
	}
}

func TestResolvedEventOffScreen(t *testing.T) {
	f := newFixture(t)
	f.search("elsewhere")

	rec := papers.Record{ID: "2404.12345", Title: "Other Paper", Summary: "Done."}
	f.deliver(precis.Event{Kind: precis.EventResolved, ID: "2404.12345", Record: &rec})

	if f.m.view != viewSearch {
		t.Fatal("a background resolution must not steal the view")
	}
	if f.m.status != "Summary ready for 2404.12345." {
		t.Errorf("status = %q", f.m.status)
	}
}

func TestFailedEventMarksDetail(t *testing.T) {
	f := newFixture(t)
	f.onGet = servePaper(true)
	f.search("pending")
	f.press("enter")

	f.deliver(precis.Event{Kind: precis.EventFailed, ID: "2401.00001", Err: errors.New("render farm on fire")})

	if f.m.detailPolling {
		t.Error("still marked waiting after failure")
	}
	if !f.m.statusErr || !strings.Contains(f.m.status, "render farm on fire") {
		t.Errorf("status = %q (err=%v)", f.m.status, f.m.statusErr)
	}
}

func TestBusyRefusesEveryAction(t *testing.T) {
	f := newFixture(t)
	f.searchGate = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		f.svc.Search(ctx, "slow", 0, papers.SortRelevance)
	}()
	waitUntil(t, "service busy", f.svc.Busy)

	for _, k := range []string{"/", "i", "u", "s", "o", "j"} {
		f.m.setStatus("")
		_, cmd := f.m.Update(key(k))
		if cmd != nil {
			t.Errorf("key %q produced a command while busy", k)
		}
		if f.m.status != busyNotice {
			t.Errorf("key %q: status = %q, want the busy notice", k, f.m.status)
		}
	}
	if f.m.inputMode != inputNone {
		t.Error("a prompt opened while busy")
	}
	if f.m.view != viewSearch {
		t.Error("the view changed while busy")
	}

	close(f.searchGate)
	<-done
	waitUntil(t, "lock release", func() bool { return !f.svc.Busy() })

	f.press("u")
	if f.m.view != viewUploads {
		t.Error("interaction still refused after the lock was released")
	}
}

func TestQuitAlwaysAvailable(t *testing.T) {
	f := newFixture(t)
	f.searchGate = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		f.svc.Search(ctx, "slow", 0, papers.SortRelevance)
	}()
	waitUntil(t, "service busy", f.svc.Busy)

	_, cmd := f.m.Update(key("q"))
	if cmd == nil || !f.m.quitting {
		t.Error("q must quit even while an operation is running")
	}
	if f.m.View() != "" {
		t.Error("quitting view should render empty")
	}

	close(f.searchGate)
	<-done

	other := New(Config{Service: f.svc}).(*model)
	_, cmd = other.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || !other.quitting {
		t.Error("ctrl+c must quit")
	}
}

func TestPromptCancelAndEmptySubmit(t *testing.T) {
	f := newFixture(t)

	f.press("/")
	if f.m.inputMode != inputQuery {
		t.Fatal("query prompt did not open")
	}
	f.m.input.SetValue("half typed")
	f.press("esc")
	if f.m.inputMode != inputNone || f.searches.Load() != 0 {
		t.Fatal("esc must cancel without searching")
	}
	if f.m.status != "Cancelled." {
		t.Errorf("status = %q", f.m.status)
	}

	f.press("/", "enter")
	if f.searches.Load() != 0 {
		t.Fatal("an empty prompt must not search")
	}
	if f.m.status != "Nothing entered." {
		t.Errorf("status = %q", f.m.status)
	}
}

func TestOpenByID(t *testing.T) {
	f := newFixture(t)

	f.press("i")
	if f.m.inputMode != inputOpenID {
		t.Fatal("identifier prompt did not open")
	}
	f.m.input.SetValue("1706.03762")
	f.press("enter")

	if f.m.view != viewDetail || f.m.detail == nil || f.m.detail.ID != "1706.03762" {
		t.Fatalf("detail not opened for the entered id (view=%d)", f.m.view)
	}
	if f.gets.Load() != 1 || f.hashes.Load() != 0 {
		t.Errorf("gets = %d hashes = %d, want one plain fetch", f.gets.Load(), f.hashes.Load())
	}
}

func TestOpenByIDNotFound(t *testing.T) {
	f := newFixture(t)
	f.onGet = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}

	f.press("i")
	f.m.input.SetValue("9999.00000")
	f.press("enter")

	if f.m.view != viewSearch {
		t.Fatal("view must stay put on a miss")
	}
	if !f.m.statusErr || !strings.Contains(f.m.status, "No paper found") {
		t.Errorf("status = %q", f.m.status)
	}
}

func TestUploadFlow(t *testing.T) {
	f := newFixture(t)
	path := writeDoc(t, "attention.md", docMarkdown)

	f.press("u")
	if f.m.view != viewUploads {
		t.Fatalf("view = %d, want uploads", f.m.view)
	}
	if !strings.Contains(f.m.View(), "No uploads yet") {
		t.Errorf("empty uploads hint missing:\n%s", f.m.View())
	}

	f.press("a")
	if f.m.inputMode != inputUploadPath {
		t.Fatal("upload prompt did not open")
	}
	f.m.input.SetValue(path)
	f.press("enter")

	if f.puts.Load() != 1 || f.enqueues.Load() != 1 {
		t.Fatalf("puts = %d enqueues = %d, want 1 and 1", f.puts.Load(), f.enqueues.Load())
	}
	task := f.lastTask()
	if !task.ManualUpload || task.ArxivID != "up-fixed" || task.Title != "attention" {
		t.Errorf("task = %+v", task)
	}

	if f.m.view != viewDetail || f.m.detail == nil || f.m.detail.ID != "up-fixed" {
		t.Fatal("upload did not open its placeholder detail")
	}
	if !f.m.detail.Processing || !f.m.detailPolling {
		t.Error("placeholder must be shown as processing")
	}
	if !f.svc.Watching("up-fixed") {
		t.Error("no poller for the fresh upload")
	}
	if !strings.Contains(f.m.status, "waiting for the summary") {
		t.Errorf("status = %q", f.m.status)
	}
	if f.m.returnView != viewUploads {
		t.Errorf("returnView = %d, want uploads", f.m.returnView)
	}

	f.press("esc")
	if f.m.view != viewUploads {
		t.Fatal("esc did not return to uploads")
	}
	if f.svc.Watching("up-fixed") {
		t.Error("poller survived leaving the detail view")
	}

	f.press("r")
	if len(f.m.uploads) != 1 {
		t.Fatalf("uploads = %d after refresh, want 1", len(f.m.uploads))
	}
	out := f.m.View()
	for _, want := range []string{"attention.md", "2026-03-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("uploads list missing %q:\n%s", want, out)
		}
	}
}

func TestUploadDedupShowsExisting(t *testing.T) {
	f := newFixture(t)
	f.onHash = func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"arxiv_id": "1512.03385",
			"title":    "Deep Residual Learning",
			"summary":  "Already summarized.",
		})
	}
	path := writeDoc(t, "resnet.md", docMarkdown)

	f.press("u", "a")
	f.m.input.SetValue(path)
	f.press("enter")

	if f.puts.Load() != 0 || f.enqueues.Load() != 0 {
		t.Fatalf("puts = %d enqueues = %d, want no backend writes", f.puts.Load(), f.enqueues.Load())
	}
	if f.m.view != viewDetail || f.m.detail == nil || f.m.detail.ID != "1512.03385" {
		t.Fatal("existing record not opened")
	}
	if f.m.detailPolling || f.svc.Watching("1512.03385") {
		t.Error("resolved duplicate must not be watched")
	}
	if f.m.status != "Matched an existing paper." {
		t.Errorf("status = %q", f.m.status)
	}
}

func TestUploadUnsupportedFile(t *testing.T) {
	f := newFixture(t)
	path := writeDoc(t, "table.csv", "a,b\n1,2\n")

	f.press("u", "a")
	f.m.input.SetValue(path)
	f.press("enter")

	if !f.m.statusErr || !strings.Contains(f.m.status, "Unsupported file type") {
		t.Errorf("status = %q", f.m.status)
	}
	if f.m.view != viewUploads {
		t.Errorf("view = %d, want uploads", f.m.view)
	}
	if f.m.pending != pendingNone || f.svc.Busy() {
		t.Error("model stuck busy after a refused upload")
	}
}

func TestUploadsSelectReResolves(t *testing.T) {
	f := newFixture(t)
	err := f.store.Append(context.Background(), history.Record{
		ID:          "up-abc",
		Title:       "My Notes",
		FileName:    "notes.md",
		Fingerprint: "feedface",
		UploadedAt:  fixedStamp,
	})
	if err != nil {
		t.Fatal(err)
	}

	f.press("u")
	if len(f.m.uploads) != 1 {
		t.Fatalf("uploads = %d, want the seeded record", len(f.m.uploads))
	}
	if !strings.Contains(f.m.View(), "My Notes") {
		t.Errorf("uploads list missing the record:\n%s", f.m.View())
	}

	f.press("enter")
	if f.m.view != viewDetail || f.m.detail == nil || f.m.detail.ID != "up-abc" {
		t.Fatal("selection did not resolve into the detail view")
	}
	if f.gets.Load() != 1 || f.hashes.Load() != 0 {
		t.Errorf("gets = %d hashes = %d, want one plain fetch and no dedup probe", f.gets.Load(), f.hashes.Load())
	}
	if f.m.returnView != viewUploads {
		t.Errorf("returnView = %d, want uploads", f.m.returnView)
	}

	f.press("esc")
	if f.m.view != viewUploads {
		t.Error("esc did not return to uploads")
	}
}

func TestSummarizeFromSearch(t *testing.T) {
	f := newFixture(t)
	f.search("resnets")
	f.press("s")

	if f.enqueues.Load() != 1 {
		t.Fatalf("enqueues = %d, want 1", f.enqueues.Load())
	}
	task := f.lastTask()
	if task.ArxivID != "2401.00001" || task.ManualUpload {
		t.Errorf("task = %+v", task)
	}
	if f.m.view != viewDetail || f.m.detail == nil || !f.m.detail.Processing {
		t.Fatal("submission did not open a processing detail")
	}
	if !f.m.detailPolling || !f.svc.Watching("2401.00001") {
		t.Error("submitted record is not being watched")
	}
	if f.m.status != "Summarization queued." {
		t.Errorf("status = %q", f.m.status)
	}
}

func TestSummarizeGuards(t *testing.T) {
	f := newFixture(t)
	f.onSearch = func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"papers": []map[string]any{{
				"arxiv_id": "1512.03385",
				"title":    "Deep Residual Learning",
				"summary":  "Done.",
			}},
			"total_results": 1,
			"page":          0,
			"page_size":     10,
			"has_next_page": false,
		})
	}
	f.search("resnet")
	f.press("s")
	if f.enqueues.Load() != 0 {
		t.Fatal("summarized record was enqueued again")
	}
	if !strings.Contains(f.m.status, "Already summarized") {
		t.Errorf("status = %q", f.m.status)
	}

	f.onSearch = func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"papers": []map[string]any{{
				"arxiv_id":   "2402.11111",
				"title":      "In Flight",
				"processing": true,
			}},
			"total_results": 1,
			"page":          0,
			"page_size":     10,
			"has_next_page": false,
		})
	}
	f.search("inflight")
	f.press("s")
	if f.enqueues.Load() != 0 {
		t.Fatal("processing record was enqueued again")
	}
	if !strings.Contains(f.m.status, "already running") {
		t.Errorf("status = %q", f.m.status)
	}
}

func TestDeepLinkOpensOnStartup(t *testing.T) {
	f := newFixture(t)
	m := New(Config{Service: f.svc, InitialPaper: "2105.01601"}).(*model)
	if !m.busy() {
		t.Fatal("startup fetch must hold the interaction lock")
	}

	f.m = m
	f.feed(m.Init())

	if m.view != viewDetail || m.detail == nil || m.detail.ID != "2105.01601" {
		t.Fatal("deep link did not open the detail view")
	}
	if m.pending != pendingNone {
		t.Errorf("pending = %d after the startup fetch", m.pending)
	}
}

func TestWindowResize(t *testing.T) {
	f := newFixture(t)

	f.m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if f.m.viewport.Width != 116 || f.m.viewport.Height != 30 {
		t.Errorf("viewport = %dx%d, want 116x30", f.m.viewport.Width, f.m.viewport.Height)
	}
	if f.m.input.Width != 60 {
		t.Errorf("input width = %d, want the 60 cap", f.m.input.Width)
	}

	f.m.Update(tea.WindowSizeMsg{Width: 10, Height: 5})
	if f.m.viewport.Width != 20 || f.m.viewport.Height != 3 {
		t.Errorf("viewport = %dx%d, want the 20x3 floor", f.m.viewport.Width, f.m.viewport.Height)
	}
	if f.m.input.Width != 20 {
		t.Errorf("input width = %d, want the 20 floor", f.m.input.Width)
	}
}
