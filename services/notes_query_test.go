package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
)

func TestParseNotesParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		slug  string
		want  NotesParams
	}{
		{"defaults", "", "", NotesParams{Search: "", Page: 1}},
		{"search and page", "search=milk&page=3", "", NotesParams{Search: "milk", Page: 3}},
		{"tag segment", "", "/Work", NotesParams{Page: 1, Tag: "Work"}},
		{"All is unfiltered", "page=2", "/All", NotesParams{Page: 2}},
		{"only first segment", "", "/Meeting/extra", NotesParams{Page: 1, Tag: "Meeting"}},
		{"non-numeric page", "page=abc", "", NotesParams{Page: 1}},
		{"zero page", "page=0", "", NotesParams{Page: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ParseNotesParams(q, tt.slug))
		})
	}
}

func TestNoteListKey_AllEqualsNoTag(t *testing.T) {
	fromAll := ParseNotesParams(url.Values{}, "/All").Key()
	fromNone := ParseNotesParams(url.Values{}, "").Key()
	noTagArg := NoteListKey("", 1, "")

	assert.True(t, fromAll.Equal(noTagArg))
	assert.True(t, fromNone.Equal(noTagArg))
	assert.Len(t, noTagArg, 3)
	assert.Len(t, NoteListKey("", 1, "Work"), 4)
	assert.True(t, NoteListKey("x", 2, "Work").HasPrefix(NoteListPrefix()))
}

func TestNotesLoader_PrefetchesIntoSnapshot(t *testing.T) {
	api := &fakeNotesAPI{fetchNotesFn: func(req models.FetchNotesRequest) (*models.FetchNotesResponse, error) {
		return pageOf(2, 5), nil
	}}
	loader := NewNotesLoader(api, nil)

	page, err := loader.Load(context.Background(), NotesParams{Search: "milk", Page: 2, Tag: "Shopping"})
	require.NoError(t, err)

	require.Equal(t, []models.FetchNotesRequest{{Search: "milk", Page: 2, Tag: "Shopping"}}, api.fetches())
	assert.True(t, page.Key.Equal(NoteListKey("milk", 2, "Shopping")))
	require.Len(t, page.Snapshot.Queries, 1)

	// The browser side hydrates and reads without another fetch.
	client := querycache.New()
	client.Hydrate(page.Snapshot)
	view := NewNotesView(client, api, "milk", 2, "Shopping")
	assert.False(t, view.NeedsFetch())
	r, err := view.Render()
	require.NoError(t, err)
	assert.Len(t, r.Notes, 2)
	assert.Equal(t, 5, r.PageCount)
	assert.Len(t, api.fetches(), 1)
}

func TestNotesLoader_PrefetchFailureIsNotFatal(t *testing.T) {
	api := &fakeNotesAPI{fetchNotesFn: func(models.FetchNotesRequest) (*models.FetchNotesResponse, error) {
		return nil, errors.New("backend down")
	}}
	loader := NewNotesLoader(api, nil)

	page, err := loader.Load(context.Background(), NotesParams{Page: 1})
	require.NoError(t, err)
	assert.Empty(t, page.Snapshot.Queries)

	client := querycache.New()
	client.Hydrate(page.Snapshot)
	view := NewNotesView(client, api, "", 1, "")
	assert.True(t, view.NeedsFetch())
}
