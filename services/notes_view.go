package services

import (
	"context"
	"fmt"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
)

// NotesView is the state of the notes screen: committed search text,
// current page, whether the create modal is open, and the tag it was
// opened for. It reads the note list through an observer that keeps the
// previous page visible while the next one loads.
//
// A NotesView belongs to one UI loop and is not safe for concurrent use.
type NotesView struct {
	api      NotesAPI
	cache    *querycache.Client
	observer *querycache.Observer[models.FetchNotesResponse]

	tag       string
	search    string
	page      int
	modalOpen bool
}

// NotesRender is everything the screen shows, derived from the cache on
// each Render call.
type NotesRender struct {
	Search         string
	Tag            string
	Page           int
	Notes          []models.Note
	ShowList       bool
	ShowPagination bool
	PageCount      int
	// ForcePage is the zero-based page the pagination control selects.
	ForcePage int
	Loading   bool
	Fetching  bool
	State     querycache.DisplayState
	ModalOpen bool
}

// NewNotesView creates the view with the server-provided initial search
// and page. tag is the already normalised filter ("" for all).
func NewNotesView(cache *querycache.Client, api NotesAPI, initialSearch string, initialPage int, tag string) *NotesView {
	if initialPage < 1 {
		initialPage = 1
	}
	v := &NotesView{
		api:    api,
		cache:  cache,
		tag:    tag,
		search: initialSearch,
		page:   initialPage,
	}
	v.observer = querycache.NewObserver[models.FetchNotesResponse](cache, v.Key(), querycache.KeepPreviousData())
	return v
}

func (v *NotesView) Search() string  { return v.search }
func (v *NotesView) Page() int       { return v.page }
func (v *NotesView) Tag() string     { return v.tag }
func (v *NotesView) ModalOpen() bool { return v.modalOpen }

// Key is the note-list key for the current search, page and tag.
func (v *NotesView) Key() querycache.Key {
	return NoteListKey(v.search, v.page, v.tag)
}

// CommitSearch applies a debounced search value. Nothing changes when the
// value equals the current search; otherwise search is updated and page
// goes back to 1. It reports whether the state changed.
func (v *NotesView) CommitSearch(query string) bool {
	if query == v.search {
		return false
	}
	v.search = query
	v.page = 1
	v.observer.SetKey(v.Key())
	return true
}

// PageClick applies a zero-based page selection from the pagination
// control.
func (v *NotesView) PageClick(selected int) {
	if selected < 0 {
		selected = 0
	}
	v.page = selected + 1
	v.observer.SetKey(v.Key())
}

func (v *NotesView) OpenModal()  { v.modalOpen = true }
func (v *NotesView) CloseModal() { v.modalOpen = false }

// NeedsFetch reports whether the current key has no usable data and no
// fetch running for it.
func (v *NotesView) NeedsFetch() bool {
	return v.observer.NeedsFetch()
}

// FetchCurrent returns a function that fetches the current key. The key is
// captured now, so a result that arrives after the view moved on is cached
// under its own key and never shown for the new one.
func (v *NotesView) FetchCurrent() (querycache.Key, func(ctx context.Context) error) {
	key := v.Key()
	fn := NoteListQuery(v.api, v.search, v.page, v.tag)
	return key, func(ctx context.Context) error {
		_, err := querycache.Fetch(ctx, v.cache, key, fn)
		return err
	}
}

// Refresh fetches the current key synchronously.
func (v *NotesView) Refresh(ctx context.Context) error {
	_, fetch := v.FetchCurrent()
	return fetch(ctx)
}

// Render derives the screen from the cache. A failed read of the current
// key is returned as an error for the caller to propagate.
func (v *NotesView) Render() (NotesRender, error) {
	res := v.observer.Result()

	r := NotesRender{
		Search:    v.search,
		Tag:       v.tag,
		Page:      v.page,
		ForcePage: v.page - 1,
		Loading:   res.State == querycache.DisplayLoading,
		Fetching:  res.IsFetching,
		State:     res.State,
		ModalOpen: v.modalOpen,
	}
	if res.HasData {
		r.Notes = res.Data.Notes
		r.PageCount = res.Data.TotalPages
	}
	r.ShowList = len(r.Notes) > 0
	r.ShowPagination = len(r.Notes) > 0

	if res.Err != nil {
		return r, fmt.Errorf("could not load notes for %s: %w", res.Key.Hash(), res.Err)
	}
	return r, nil
}
