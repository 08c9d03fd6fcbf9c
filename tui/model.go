// Package tui is the terminal front end of notehub: the notes list with
// debounced search, paging, tag filter and the create-note modal, driven
// by the same query cache and form as the web pages.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
	"github/itish2003/notehub/services"
)

type mode int
type formField int

const (
	modeBrowse mode = iota
	modeSearch
	modeForm
)

const (
	fieldTitle formField = iota
	fieldContent
	fieldTag
	fieldCount
)

// notesFetchedMsg reports a finished list fetch for key.
type notesFetchedMsg struct {
	key querycache.Key
	err error
}

// searchSettledMsg fires when the debounce delay of a keystroke passed.
type searchSettledMsg struct {
	ticket uint64
}

type noteSubmittedMsg struct {
	note *models.Note
	err  error
}

// toastExpiredMsg redraws once a toast may have expired.
type toastExpiredMsg struct{}

// Options configure a Model. Zero durations take the package defaults.
type Options struct {
	Search        string
	Page          int
	Tag           string
	Debounce      time.Duration
	ToastDuration time.Duration
	Logger        *slog.Logger
}

type Model struct {
	ctx    context.Context
	logger *slog.Logger

	cache    *querycache.Client
	view     *services.NotesView
	form     *services.NoteForm
	toaster  *services.Toaster
	debounce *services.Debounce

	toastDuration time.Duration

	mode       mode
	search     textinput.Model
	title      textinput.Model
	content    textarea.Model
	tagIdx     int
	field      formField
	submitting bool

	pager    paginator.Model
	help     help.Model
	keys     KeyMap
	showHelp bool

	status    string
	statusLvl slog.Level
	statusSeq int

	width  int
	height int
}

// NewModel creates the notes screen over cache. Fetches and submissions
// run with ctx.
func NewModel(ctx context.Context, api services.NotesAPI, cache *querycache.Client, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = services.DefaultDebounce
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = services.DefaultToastDuration
	}

	toaster := services.NewToaster(opts.ToastDuration)

	si := textinput.New()
	si.Placeholder = "Search notes"
	si.Prompt = "/ "
	si.SetValue(opts.Search)

	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.Prompt = ""

	ta := textarea.New()
	ta.Placeholder = "Content"
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(5)

	pager := paginator.New()
	pager.Type = paginator.Arabic

	h := help.New()
	h.ShowAll = false

	return Model{
		ctx:      ctx,
		logger:   logger.With("component", "tui"),
		cache:    cache,
		view:     services.NewNotesView(cache, api, opts.Search, opts.Page, services.NormalizeTag(opts.Tag)),
		form:     services.NewNoteForm(api, cache, toaster, nil, logger),
		toaster:  toaster,
		debounce: services.NewDebounce(opts.Debounce),

		toastDuration: opts.ToastDuration,

		mode:    modeBrowse,
		search:  si,
		title:   ti,
		content: ta,
		pager:   pager,
		help:    h,
		keys:    DefaultKeyMap(),
	}
}

// Init revalidates the current page, so data hydrated from disk is shown
// at once and refreshed in the background.
func (m Model) Init() tea.Cmd {
	return m.fetch()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.search.Width = min(40, max(msg.Width-4, 10))
		m.content.SetWidth(min(60, max(msg.Width-6, 10)))
		return m, nil

	case notesFetchedMsg:
		// A failed read of the current key is shown by View; results for
		// other keys only land in the cache.
		if msg.err != nil {
			m.logger.Debug("note list fetch failed", "key", msg.key.Hash(), "error", msg.err)
		}
		return m, nil

	case searchSettledMsg:
		query, ok := m.debounce.Settle(msg.ticket)
		if !ok {
			return m, nil
		}
		if m.view.CommitSearch(query) {
			return m, m.fetch()
		}
		return m, nil

	case noteSubmittedMsg:
		m.submitting = false
		if msg.err == nil {
			m.closeForm()
			return m, tea.Batch(m.fetchIfNeeded(), m.expireToasts())
		}
		var verr *services.ValidationError
		if errors.As(msg.err, &verr) {
			return m, nil
		}
		return m, m.expireToasts()

	case toastExpiredMsg:
		return m, nil

	case logRecordMsg:
		m.statusSeq++
		m.status = msg.Summary
		m.statusLvl = msg.Level
		seq := m.statusSeq
		return m, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{seq: seq}
		})

	case logRecordFadeMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeSearch:
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.PrevPage):
		if m.view.Page() > 1 {
			m.view.PageClick(m.view.Page() - 2)
			return m, m.fetch()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		r, _ := m.view.Render()
		if m.view.Page() < r.PageCount {
			m.view.PageClick(m.view.Page())
			return m, m.fetch()
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m.openForm()

	case key.Matches(msg, m.keys.Refresh):
		m.cache.Invalidate(services.NoteListPrefix())
		return m, m.fetch()

	case key.Matches(msg, m.keys.Dismiss):
		for _, t := range m.toaster.Active() {
			m.toaster.Dismiss(t.ID)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Done) {
		m.mode = modeBrowse
		m.search.Blur()
		// Leaving the input commits what was typed without waiting.
		ticket := m.debounce.Push(m.search.Value())
		return m.Update(searchSettledMsg{ticket: ticket})
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}

	ticket := m.debounce.Push(m.search.Value())
	settle := tea.Tick(m.debounce.Delay(), func(time.Time) tea.Msg {
		return searchSettledMsg{ticket: ticket}
	})
	return m, tea.Batch(cmd, settle)
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.form.Reset()
		m.closeForm()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		// The submit control is inert until the running request returns.
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		values := m.formValues()
		form, ctx := m.form, m.ctx
		return m, func() tea.Msg {
			note, err := form.Submit(ctx, values)
			return noteSubmittedMsg{note: note, err: err}
		}

	case key.Matches(msg, m.keys.NextFld):
		m.field = (m.field + 1) % fieldCount
		return m, m.focusField()
	}

	if m.field == fieldTag {
		tags := models.Tags()
		switch {
		case key.Matches(msg, m.keys.PrevTag):
			m.tagIdx = (m.tagIdx + len(tags) - 1) % len(tags)
		case key.Matches(msg, m.keys.NextTag):
			m.tagIdx = (m.tagIdx + 1) % len(tags)
		}
		return m, nil
	}
	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.mode == modeSearch:
		m.search, cmd = m.search.Update(msg)
	case m.mode == modeForm && m.field == fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case m.mode == modeForm && m.field == fieldContent:
		m.content, cmd = m.content.Update(msg)
	}
	return m, cmd
}

func (m Model) openForm() (tea.Model, tea.Cmd) {
	m.view.OpenModal()
	m.form.Reset()

	values := m.form.Values()
	m.title.SetValue(values.Title)
	m.content.SetValue(values.Content)
	m.tagIdx = tagIndex(values.Tag)
	m.field = fieldTitle
	m.mode = modeForm
	return m, m.focusField()
}

func (m *Model) closeForm() {
	m.view.CloseModal()
	m.title.Blur()
	m.content.Blur()
	m.mode = modeBrowse
}

func (m *Model) focusField() tea.Cmd {
	m.title.Blur()
	m.content.Blur()
	switch m.field {
	case fieldTitle:
		return m.title.Focus()
	case fieldContent:
		return m.content.Focus()
	}
	return nil
}

func (m Model) formValues() models.CreateNoteRequest {
	return models.CreateNoteRequest{
		Title:   m.title.Value(),
		Content: m.content.Value(),
		Tag:     models.Tags()[m.tagIdx],
	}
}

func tagIndex(tag models.Tag) int {
	for i, t := range models.Tags() {
		if t == tag {
			return i
		}
	}
	return 0
}

// fetch loads the current key. Every key change refetches: cached data
// for the key is shown meanwhile but may come from an old run. The key is
// fixed when the command is built, so a late result never lands on a
// newer page.
func (m Model) fetch() tea.Cmd {
	queryKey, fetch := m.view.FetchCurrent()
	ctx := m.ctx
	return func() tea.Msg {
		return notesFetchedMsg{key: queryKey, err: fetch(ctx)}
	}
}

func (m Model) fetchIfNeeded() tea.Cmd {
	if !m.view.NeedsFetch() {
		return nil
	}
	return m.fetch()
}

func (m Model) expireToasts() tea.Cmd {
	return tea.Tick(m.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{}
	})
}

var (
	border = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))

	titleStyle   = lipgloss.NewStyle().Bold(true)
	blurStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func (m Model) View() string {
	r, err := m.view.Render()

	sections := []string{m.renderHeader(r)}

	switch {
	case err != nil:
		sections = append(sections,
			errorStyle.Render("Could not load notes: "+err.Error()),
			blurStyle.Render("press r to try again"))
	case r.Loading:
		sections = append(sections, blurStyle.Render("Loading, please wait..."))
	case r.ShowList:
		sections = append(sections, m.renderNotes(r))
	default:
		sections = append(sections, blurStyle.Render("No notes found"))
	}

	if r.ShowPagination {
		pager := m.pager
		pager.TotalPages = max(r.PageCount, 1)
		pager.Page = r.ForcePage
		line := "page " + pager.View()
		if r.Fetching {
			line += " " + statusStyle.Render("updating...")
		}
		sections = append(sections, line)
	}

	if toasts := m.renderToasts(); toasts != "" {
		sections = append(sections, toasts)
	}
	if r.ModalOpen {
		sections = append(sections, m.renderForm())
	}
	sections = append(sections, m.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(r services.NotesRender) string {
	tag := r.Tag
	if tag == "" {
		tag = models.TagFilterAll
	}
	search := m.search.View()
	if m.mode != modeSearch {
		search = blurStyle.Render(search)
	}
	return titleStyle.Render("NoteHub") + " " + tagStyle.Render("["+tag+"]") + "\n" + search
}

func (m Model) renderNotes(r services.NotesRender) string {
	var b strings.Builder
	for i, n := range r.Notes {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleStyle.Render(n.Title))
		b.WriteString(" ")
		b.WriteString(tagStyle.Render(string(n.Tag)))
		if first, _, _ := strings.Cut(n.Content, "\n"); first != "" {
			b.WriteString("\n  ")
			b.WriteString(blurStyle.Render(first))
		}
	}
	return b.String()
}

func (m Model) renderToasts() string {
	var lines []string
	for _, t := range m.toaster.Active() {
		style := successStyle
		if t.Kind == services.ToastError {
			style = errorStyle
		}
		lines = append(lines, style.Render(t.Message))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderForm() string {
	errs := m.form.Errors()
	fieldLabel := func(f formField, label string) string {
		if m.field == f {
			return focusStyle.Render(label)
		}
		return titleStyle.Render(label)
	}
	fieldError := func(name string) string {
		if msg, ok := errs[name]; ok {
			return "\n" + errorStyle.Render(msg)
		}
		return ""
	}

	var tags []string
	for i, t := range models.Tags() {
		if i == m.tagIdx {
			tags = append(tags, focusStyle.Render("["+string(t)+"]"))
		} else {
			tags = append(tags, blurStyle.Render(string(t)))
		}
	}

	submit := "ctrl+s create note"
	if m.submitting {
		submit = blurStyle.Render("creating note...")
	}

	body := fmt.Sprintf("%s\n%s%s\n\n%s\n%s%s\n\n%s\n%s%s\n\n%s",
		fieldLabel(fieldTitle, "Title"), m.title.View(), fieldError("title"),
		fieldLabel(fieldContent, "Content"), m.content.View(), fieldError("content"),
		fieldLabel(fieldTag, "Tag"), strings.Join(tags, " "), fieldError("tag"),
		submit)
	return border.Padding(0, 1).Render(body)
}

func (m Model) renderHelp() string {
	var line string
	if m.mode == modeForm {
		line = m.help.View(formKeyMap{KeyMap: m.keys})
	} else {
		line = m.help.View(m.keys)
	}
	if m.status != "" {
		style := statusStyle
		if m.statusLvl >= slog.LevelError {
			style = errorStyle
		}
		line = style.Render(m.status) + "\n" + line
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(line)
}
