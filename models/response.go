package models

// FetchNotesResponse is one page of the note list.
type FetchNotesResponse struct {
	Notes      []Note `json:"notes"`
	TotalPages int    `json:"totalPages"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorResponse is the JSON body of a failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
