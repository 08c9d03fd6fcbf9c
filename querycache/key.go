package querycache

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Key identifies a cached query. Elements are compared by their JSON
// encoding, so a page number decoded from a snapshot (float64) still equals
// the int it was built from.
type Key []any

// Hash returns the canonical string form of the key.
func (k Key) Hash() string {
	b, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%#v", []any(k))
	}
	return string(b)
}

// Equal reports whether both keys have the same length and elements.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// HasPrefix reports whether every element of prefix matches the element
// at the same position of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if !elementEqual(k[i], prefix[i]) {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return k.Hash()
}

func elementEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
