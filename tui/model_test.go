package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
	"github/itish2003/notehub/services"
)

type fakeAPI struct {
	mu         sync.Mutex
	fetches    []models.FetchNotesRequest
	created    []models.CreateNoteRequest
	totalPages int
	fetchErr   error
	createErr  error
}

func (f *fakeAPI) FetchNotes(_ context.Context, req models.FetchNotesRequest) (*models.FetchNotesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, req)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	title := fmt.Sprintf("page %d note", req.Page)
	if req.Search != "" {
		title += " for " + req.Search
	}
	return &models.FetchNotesResponse{
		Notes:      []models.Note{{ID: fmt.Sprint(req.Page), Title: title, Tag: models.TagWork}},
		TotalPages: f.totalPages,
	}, nil
}

func (f *fakeAPI) CreateNote(_ context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &models.Note{ID: "new", Title: req.Title, Content: req.Content, Tag: req.Tag}, nil
}

func (f *fakeAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func (f *fakeAPI) lastFetch() models.FetchNotesRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[len(f.fetches)-1]
}

func newTestModel(api *fakeAPI) Model {
	return NewModel(context.Background(), api, querycache.New(), Options{
		Debounce:      time.Millisecond,
		ToastDuration: time.Minute,
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loaded returns a model whose first page was fetched.
func loaded(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	m := newTestModel(api)
	m, _ = update(t, m, m.Init()())
	return m
}

func TestModelInitialLoad(t *testing.T) {
	api := &fakeAPI{totalPages: 3}
	m := newTestModel(api)

	assert.Contains(t, m.View(), "Loading, please wait...")

	m, _ = update(t, m, m.Init()())
	view := m.View()
	assert.Contains(t, view, "page 1 note")
	assert.Contains(t, view, "1/3")
	assert.Contains(t, view, "[All]")
}

func TestModelPagingKeepsPreviousPage(t *testing.T) {
	api := &fakeAPI{totalPages: 3}
	m := loaded(t, api)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Nil(t, cmd, "no page before the first")

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	require.NotNil(t, cmd)
	assert.Equal(t, 2, m.view.Page())

	// Until page 2 arrives the previous page stays on screen.
	view := m.View()
	assert.Contains(t, view, "page 1 note")
	assert.Contains(t, view, "2/3")

	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), "page 2 note")
	assert.Equal(t, 2, api.lastFetch().Page)
}

func TestModelPagingBackRefetches(t *testing.T) {
	api := &fakeAPI{totalPages: 3}
	m := loaded(t, api)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	require.NotNil(t, cmd, "page 1 is cached but refetched")
	assert.Contains(t, m.View(), "page 1 note", "cached page shows while it refetches")

	m, _ = update(t, m, cmd())
	assert.Equal(t, 3, api.fetchCount())
	assert.Equal(t, 1, api.lastFetch().Page)
	assert.Contains(t, m.View(), "page 1 note")
}

func TestModelHydratedPageRefetches(t *testing.T) {
	cache := querycache.New()
	n := cache.Hydrate(querycache.Snapshot{Queries: []querycache.DehydratedQuery{{
		Key:       services.NoteListKey("", 2, ""),
		Data:      json.RawMessage(`{"notes":[{"id":"old","title":"yesterday's note","tag":"Work"}],"totalPages":3}`),
		UpdatedAt: time.Now().Add(-24 * time.Hour),
	}}})
	require.Equal(t, 1, n)

	api := &fakeAPI{totalPages: 3}
	m := NewModel(context.Background(), api, cache, Options{Debounce: time.Millisecond, ToastDuration: time.Minute})
	m, _ = update(t, m, m.Init()())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "yesterday's note")

	m, _ = update(t, m, cmd())
	assert.Equal(t, 2, api.fetchCount())
	assert.Equal(t, 2, api.lastFetch().Page)
	view := m.View()
	assert.Contains(t, view, "page 2 note")
	assert.NotContains(t, view, "yesterday's note")
}

func TestModelNoPageAfterLast(t *testing.T) {
	m := loaded(t, &fakeAPI{totalPages: 1})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.view.Page())
}

func TestModelSearchDebounce(t *testing.T) {
	api := &fakeAPI{totalPages: 3}
	m := loaded(t, api)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = update(t, m, cmd())
	require.Equal(t, 2, m.view.Page())

	m, _ = update(t, m, runes("/"))
	require.Equal(t, modeSearch, m.mode)
	m, cmd = update(t, m, runes("g"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, runes("o"))

	// The first keystroke was superseded.
	m, cmd = update(t, m, searchSettledMsg{ticket: 1})
	assert.Nil(t, cmd)
	assert.Equal(t, "", m.view.Search())

	m, cmd = update(t, m, searchSettledMsg{ticket: 2})
	require.NotNil(t, cmd)
	assert.Equal(t, "go", m.view.Search())
	assert.Equal(t, 1, m.view.Page(), "a new search starts at page 1")

	m, _ = update(t, m, cmd())
	assert.Equal(t, models.FetchNotesRequest{Search: "go", Page: 1}, api.lastFetch())
	assert.Contains(t, m.View(), "page 1 note for go")

	// A settled ticket never fires twice.
	_, cmd = update(t, m, searchSettledMsg{ticket: 2})
	assert.Nil(t, cmd)
}

func TestModelSearchEnterCommits(t *testing.T) {
	m := loaded(t, &fakeAPI{totalPages: 1})

	m, _ = update(t, m, runes("/"))
	m, _ = update(t, m, runes("x"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "x", m.view.Search())
}

func TestModelCreateNote(t *testing.T) {
	api := &fakeAPI{totalPages: 1}
	m := loaded(t, api)

	m, _ = update(t, m, runes("n"))
	require.Equal(t, modeForm, m.mode)
	assert.True(t, m.view.ModalOpen())

	m, _ = update(t, m, runes("Groceries"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, runes("milk"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})

	m, submit := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, submit)
	assert.Contains(t, m.View(), "creating note...")

	m, again := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, again, "submit is inert while a request runs")

	m, cmd := update(t, m, submit())
	assert.NotNil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
	assert.False(t, m.view.ModalOpen())
	assert.Contains(t, m.View(), "you created a new note Groceries")

	require.Len(t, api.created, 1)
	assert.Equal(t, models.CreateNoteRequest{Title: "Groceries", Content: "milk", Tag: models.TagWork}, api.created[0])
	assert.True(t, m.cache.State(services.NoteListKey("", 1, "")).Invalidated)
}

func TestModelCreateNoteInvalid(t *testing.T) {
	api := &fakeAPI{totalPages: 1}
	m := loaded(t, api)

	m, _ = update(t, m, runes("n"))
	m, _ = update(t, m, runes("ab"))
	m, submit := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, submit)

	m, cmd := update(t, m, submit())
	assert.Nil(t, cmd)
	assert.Equal(t, modeForm, m.mode)
	assert.False(t, m.submitting)
	assert.Contains(t, m.View(), "Please, make up longer title")
	assert.Empty(t, api.created)
}

func TestModelCreateNoteFailure(t *testing.T) {
	api := &fakeAPI{totalPages: 1, createErr: errors.New("backend down")}
	m := loaded(t, api)

	m, _ = update(t, m, runes("n"))
	m, _ = update(t, m, runes("Groceries"))
	m, submit := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = update(t, m, submit())

	assert.Equal(t, modeForm, m.mode)
	assert.Equal(t, "Groceries", m.title.Value())
	assert.Contains(t, m.View(), "Your new note was not created because of the error")
}

func TestModelCancelResetsForm(t *testing.T) {
	m := loaded(t, &fakeAPI{totalPages: 1})

	m, _ = update(t, m, runes("n"))
	m, _ = update(t, m, runes("draft"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeBrowse, m.mode)
	assert.False(t, m.view.ModalOpen())

	m, _ = update(t, m, runes("n"))
	assert.Equal(t, "", m.title.Value())
	assert.Equal(t, 0, m.tagIdx)
}

func TestModelReadError(t *testing.T) {
	m := loaded(t, &fakeAPI{fetchErr: errors.New("backend down")})

	assert.Contains(t, m.View(), "Could not load notes")
}

func TestModelQuit(t *testing.T) {
	m := loaded(t, &fakeAPI{totalPages: 1})

	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelLogRecord(t *testing.T) {
	m := loaded(t, &fakeAPI{totalPages: 1})

	m, cmd := update(t, m, logRecordMsg{Summary: "prefetch failed", Level: slog.LevelWarn})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "prefetch failed")

	m, _ = update(t, m, logRecordFadeMsg{seq: m.statusSeq})
	assert.NotContains(t, m.View(), "prefetch failed")
}

func TestLogHandlerSummary(t *testing.T) {
	h := NewLogHandler(slog.LevelWarn)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "fetch failed", 0)
	record.AddAttrs(slog.Int("page", 2))

	// Without a program records are dropped.
	require.NoError(t, h.Handle(context.Background(), record))

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("component", "tui")}).(*LogHandler)
	assert.Equal(t, "fetch failed (component=tui, page=2)", withAttrs.summary(record))

	grouped := h.WithGroup("query").(*LogHandler)
	assert.Equal(t, "fetch failed (query.page=2)", grouped.summary(record))
}

func TestProgramLogsFromViewWithoutBlocking(t *testing.T) {
	handler := NewLogHandler(slog.LevelWarn)
	logger := slog.New(handler)

	// Decoding this entry fails during the first render and logs a warning.
	cache := querycache.New(querycache.WithLogger(logger))
	cache.Hydrate(querycache.Snapshot{Queries: []querycache.DehydratedQuery{{
		Key:       services.NoteListKey("", 1, ""),
		Data:      json.RawMessage(`"not a page"`),
		UpdatedAt: time.Now(),
	}}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := NewModel(ctx, &fakeAPI{totalPages: 1}, cache, Options{Logger: logger})
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	handler.SetProgram(p)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()
	go func() {
		time.Sleep(100 * time.Millisecond)
		p.Quit()
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("program did not quit")
	}
}
