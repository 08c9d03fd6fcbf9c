package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
)

// NoteListNamespace is the first element of every note-list query key.
const NoteListNamespace = "noteList"

// NoteListKey builds the cache key of one page of the note list. Without a
// tag the key has three elements, with a tag four.
func NoteListKey(search string, page int, tag string) querycache.Key {
	if tag != "" {
		return querycache.Key{NoteListNamespace, search, page, tag}
	}
	return querycache.Key{NoteListNamespace, search, page}
}

// NoteListPrefix matches every note-list key.
func NoteListPrefix() querycache.Key {
	return querycache.Key{NoteListNamespace}
}

// NoteListQuery returns the fetch function for one note-list key.
func NoteListQuery(api NotesAPI, search string, page int, tag string) querycache.QueryFunc[models.FetchNotesResponse] {
	return func(ctx context.Context) (models.FetchNotesResponse, error) {
		resp, err := api.FetchNotes(ctx, models.FetchNotesRequest{
			Search: search,
			Page:   page,
			Tag:    tag,
		})
		if err != nil {
			return models.FetchNotesResponse{}, err
		}
		return *resp, nil
	}
}

// NormalizeTag maps the tag path segment onto a filter: "All" and "" mean
// no filter.
func NormalizeTag(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" || segment == models.TagFilterAll {
		return ""
	}
	return segment
}

// NotesParams are the request-time inputs of the notes page.
type NotesParams struct {
	Search string
	Page   int
	Tag    string
}

// ParseNotesParams reads search and page from the query string and the tag
// from the first segment of slug. A missing, non-numeric or non-positive
// page means page 1.
func ParseNotesParams(query url.Values, slug string) NotesParams {
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	first, _, _ := strings.Cut(strings.Trim(slug, "/"), "/")

	return NotesParams{
		Search: query.Get("search"),
		Page:   page,
		Tag:    NormalizeTag(first),
	}
}

// Key returns the note-list key of the params.
func (p NotesParams) Key() querycache.Key {
	return NoteListKey(p.Search, p.Page, p.Tag)
}

// NotesPage is what the page loader hands to the renderer: the params, the
// key they map to and the dehydrated request cache.
type NotesPage struct {
	Params   NotesParams
	Key      querycache.Key
	Snapshot querycache.Snapshot
}

// NotesLoader prefetches the note list for a page request.
type NotesLoader struct {
	api    NotesAPI
	logger *slog.Logger
}

// NewNotesLoader creates a loader over api.
func NewNotesLoader(api NotesAPI, logger *slog.Logger) *NotesLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NotesLoader{api: api, logger: logger.With("component", "loader")}
}

// Load prefetches params into a request-scoped cache and dehydrates it. A
// failed prefetch leaves the snapshot without the entry; it is not an
// error.
func (l *NotesLoader) Load(ctx context.Context, params NotesParams) (*NotesPage, error) {
	cache := querycache.New(querycache.WithLogger(l.logger))
	key := params.Key()

	querycache.Prefetch(ctx, cache, key, NoteListQuery(l.api, params.Search, params.Page, params.Tag))

	snap, err := cache.Dehydrate()
	if err != nil {
		return nil, fmt.Errorf("could not dehydrate notes cache: %w", err)
	}

	l.logger.Debug("loaded notes page", "key", key.Hash(), "queries", len(snap.Queries))
	return &NotesPage{
		Params:   params,
		Key:      key,
		Snapshot: snap,
	}, nil
}
