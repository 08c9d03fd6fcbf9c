package querycache

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Snapshot is the serialisable state of a Client. Only entries holding data
// are included.
type Snapshot struct {
	Queries []DehydratedQuery `json:"queries"`
}

// DehydratedQuery is one entry of a Snapshot.
type DehydratedQuery struct {
	Key       Key             `json:"queryKey"`
	Hash      string          `json:"queryHash"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"dataUpdatedAt"`
}

// Dehydrate captures every entry that holds data, ordered by key hash.
func (c *Client) Dehydrate() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Queries: make([]DehydratedQuery, 0, len(c.entries))}
	for hash, e := range c.entries {
		if !e.hasData {
			continue
		}
		raw := e.raw
		if raw == nil {
			b, err := json.Marshal(e.data)
			if err != nil {
				return Snapshot{}, fmt.Errorf("failed to encode query %s: %w", hash, err)
			}
			raw = b
		}
		snap.Queries = append(snap.Queries, DehydratedQuery{
			Key:       append(Key(nil), e.key...),
			Hash:      hash,
			Data:      raw,
			UpdatedAt: e.updatedAt,
		})
	}
	sort.Slice(snap.Queries, func(i, j int) bool {
		return snap.Queries[i].Hash < snap.Queries[j].Hash
	})
	return snap, nil
}

// Hydrate merges a snapshot into the client. An entry is written when the
// client has no data for its key or the snapshot's data is newer. It
// returns the number of entries written.
func (c *Client) Hydrate(snap Snapshot) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, q := range snap.Queries {
		if len(q.Key) == 0 || len(q.Data) == 0 {
			continue
		}
		hash := q.Key.Hash()
		e := c.entryLocked(q.Key, hash)
		if e.hasData && !q.UpdatedAt.After(e.updatedAt) {
			continue
		}
		e.data = nil
		e.raw = append(json.RawMessage(nil), q.Data...)
		e.hasData = true
		e.status = StatusSuccess
		e.err = nil
		e.invalidated = false
		e.updatedAt = q.UpdatedAt
		n++
	}
	if n > 0 {
		c.logger.Debug("hydrated queries", "count", n)
	}
	return n
}

// MarshalJSON encodes an empty snapshot as {"queries":[]} rather than null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	if s.Queries == nil {
		s.Queries = []DehydratedQuery{}
	}
	return json.Marshal(plain(s))
}
