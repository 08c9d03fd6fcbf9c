package models

// FetchNotesRequest holds the parameters of a list call. An empty Search or
// Tag means "no filter".
type FetchNotesRequest struct {
	Search  string
	Page    int
	PerPage int
	Tag     string
}

// CreateNoteRequest is the body of the create call and the values of the
// create-note form.
type CreateNoteRequest struct {
	Title   string `json:"title" form:"title" validate:"required,min=3,max=50"`
	Content string `json:"content" form:"content" validate:"max=500"`
	Tag     Tag    `json:"tag" form:"tag" validate:"required,oneof=Todo Work Personal Meeting Shopping"`
}
