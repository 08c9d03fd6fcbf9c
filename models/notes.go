package models

import "time"

// Tag is the category a note belongs to. The backend accepts exactly the
// values listed in Tags.
type Tag string

const (
	TagTodo     Tag = "Todo"
	TagWork     Tag = "Work"
	TagPersonal Tag = "Personal"
	TagMeeting  Tag = "Meeting"
	TagShopping Tag = "Shopping"
)

// TagFilterAll is the path segment that selects every tag. It is a filter
// value only and never stored on a note.
const TagFilterAll = "All"

// Tags returns the accepted tags in display order.
func Tags() []Tag {
	return []Tag{TagTodo, TagWork, TagPersonal, TagMeeting, TagShopping}
}

// Valid reports whether t is one of the accepted tags.
func (t Tag) Valid() bool {
	for _, v := range Tags() {
		if t == v {
			return true
		}
	}
	return false
}

// Note represents a single note as returned by the notes API.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tag       Tag       `json:"tag"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
