package querycache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_LoadingWithoutPredecessor(t *testing.T) {
	c := New()
	o := NewObserver[page](c, Key{"noteList", "", 1}, KeepPreviousData())

	res := o.Result()
	assert.Equal(t, DisplayLoading, res.State)
	assert.False(t, res.HasData)
	assert.True(t, o.NeedsFetch())
}

func TestObserver_KeepsPreviousDataWhileNextKeyLoads(t *testing.T) {
	c := New()
	first := Key{"noteList", "", 1}
	second := Key{"noteList", "", 2}
	o := NewObserver[page](c, first, KeepPreviousData())

	_, err := o.Fetch(context.Background(), staticQuery(page{Items: []string{"p1"}, TotalPages: 2}))
	require.NoError(t, err)
	res := o.Result()
	require.Equal(t, DisplayFresh, res.State)

	require.True(t, o.SetKey(second))
	res = o.Result()
	assert.Equal(t, DisplayStale, res.State)
	assert.True(t, res.IsPlaceholder)
	assert.Equal(t, []string{"p1"}, res.Data.Items)

	_, err = o.Fetch(context.Background(), staticQuery(page{Items: []string{"p2"}, TotalPages: 2}))
	require.NoError(t, err)
	res = o.Result()
	assert.Equal(t, DisplayFresh, res.State)
	assert.False(t, res.IsPlaceholder)
	assert.Equal(t, []string{"p2"}, res.Data.Items)
}

func TestObserver_WithoutPlaceholderShowsLoading(t *testing.T) {
	c := New()
	o := NewObserver[page](c, Key{"noteList", "", 1})
	_, err := o.Fetch(context.Background(), staticQuery(page{Items: []string{"p1"}}))
	require.NoError(t, err)
	o.Result()

	o.SetKey(Key{"noteList", "", 2})
	assert.Equal(t, DisplayLoading, o.Result().State)
}

func TestObserver_IgnoresResultsForOlderKeys(t *testing.T) {
	c := New()
	older := Key{"noteList", "a", 1}
	latest := Key{"noteList", "ab", 1}
	o := NewObserver[page](c, latest, KeepPreviousData())

	// A response for a key the observer already moved away from lands in
	// the cache but is not what the observer shows.
	SetQueryData(c, older, page{Items: []string{"stale search"}})
	assert.Equal(t, DisplayLoading, o.Result().State)

	SetQueryData(c, latest, page{Items: []string{"latest search"}})
	res := o.Result()
	assert.Equal(t, DisplayFresh, res.State)
	assert.Equal(t, []string{"latest search"}, res.Data.Items)
}

func TestObserver_InvalidatedDataIsStale(t *testing.T) {
	c := New()
	key := Key{"noteList", "", 1}
	SetQueryData(c, key, page{Items: []string{"x"}})
	o := NewObserver[page](c, key)

	c.Invalidate(Key{"noteList"})
	res := o.Result()
	assert.Equal(t, DisplayStale, res.State)
	assert.False(t, res.IsPlaceholder)
	assert.True(t, o.NeedsFetch())
}

func TestObserver_ReportsReadError(t *testing.T) {
	c := New()
	boom := errors.New("list failed")
	o := NewObserver[page](c, Key{"noteList", "", 1}, KeepPreviousData())

	_, err := o.Fetch(context.Background(), func(context.Context) (page, error) {
		return page{}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, o.Result().Err, boom)
}

func TestObserver_SetKeySameKey(t *testing.T) {
	o := NewObserver[page](New(), Key{"noteList", "", 1})
	assert.False(t, o.SetKey(Key{"noteList", "", 1}))
}
