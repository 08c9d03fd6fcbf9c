package querycache

import "context"

// DisplayState says what an observer can show for its current key.
type DisplayState int

const (
	// DisplayLoading: no data for the key and nothing to show in its place.
	DisplayLoading DisplayState = iota
	// DisplayStale: data is shown but it is either a previous key's data
	// kept as a placeholder or the key's own data after invalidation.
	DisplayStale
	// DisplayFresh: the key's own, valid data.
	DisplayFresh
)

func (s DisplayState) String() string {
	switch s {
	case DisplayFresh:
		return "fresh"
	case DisplayStale:
		return "stale"
	default:
		return "loading"
	}
}

// Result is what an observer renders for its current key.
type Result[T any] struct {
	Key           Key
	Data          T
	HasData       bool
	State         DisplayState
	IsPlaceholder bool
	IsFetching    bool
	Err           error
}

// Observer follows one key at a time over a Client. With placeholder data
// enabled, the last data it displayed stays visible while a new key loads.
// An Observer belongs to a single owner and is not safe for concurrent use.
type Observer[T any] struct {
	client       *Client
	key          Key
	keepPrevious bool

	lastData T
	hasLast  bool
}

// ObserverOption configures an Observer.
type ObserverOption func(*observerConfig)

type observerConfig struct {
	keepPrevious bool
}

// KeepPreviousData keeps the last displayed data as a placeholder while the
// observer's new key has no data.
func KeepPreviousData() ObserverOption {
	return func(o *observerConfig) { o.keepPrevious = true }
}

// NewObserver creates an observer of key.
func NewObserver[T any](c *Client, key Key, opts ...ObserverOption) *Observer[T] {
	var cfg observerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Observer[T]{
		client:       c,
		key:          key,
		keepPrevious: cfg.keepPrevious,
	}
}

// Key returns the key currently observed.
func (o *Observer[T]) Key() Key {
	return o.key
}

// SetKey switches the observed key and reports whether it changed.
func (o *Observer[T]) SetKey(key Key) bool {
	if o.key.Equal(key) {
		return false
	}
	if data, ok := GetQueryData[T](o.client, o.key); ok {
		o.lastData, o.hasLast = data, true
	}
	o.key = key
	return true
}

// Fetch loads the observed key through the client.
func (o *Observer[T]) Fetch(ctx context.Context, fn QueryFunc[T]) (T, error) {
	return Fetch(ctx, o.client, o.key, fn)
}

// NeedsFetch reports whether the observed key has no usable data and no
// fetch running.
func (o *Observer[T]) NeedsFetch() bool {
	st := o.client.State(o.key)
	if st.Fetching {
		return false
	}
	return o.client.IsStale(o.key)
}

// Result derives the display state from the client. It is recomputed on
// every call.
func (o *Observer[T]) Result() Result[T] {
	st := o.client.State(o.key)
	res := Result[T]{
		Key:        o.key,
		IsFetching: st.Fetching,
	}
	if st.Status == StatusError {
		res.Err = st.Err
	}

	if data, ok := GetQueryData[T](o.client, o.key); ok {
		res.Data = data
		res.HasData = true
		res.State = DisplayFresh
		if st.Invalidated {
			res.State = DisplayStale
		}
		o.lastData, o.hasLast = data, true
		return res
	}

	if o.keepPrevious && o.hasLast {
		res.Data = o.lastData
		res.HasData = true
		res.State = DisplayStale
		res.IsPlaceholder = true
		return res
	}

	res.State = DisplayLoading
	return res
}
