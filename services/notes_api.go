package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github/itish2003/notehub/models"
)

// NotesAPI is the remote notes backend.
type NotesAPI interface {
	FetchNotes(ctx context.Context, req models.FetchNotesRequest) (*models.FetchNotesResponse, error)
	CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error)
}

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notes api %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// notesAPIImpl talks JSON over HTTP to the notes backend.
type notesAPIImpl struct {
	httpClient *http.Client
	baseURL    string
	token      string
	perPage    int
	logger     *slog.Logger
}

// NewNotesAPI creates a client for the backend at baseURL. The token, when
// set, is sent as a bearer token on every call.
func NewNotesAPI(client *http.Client, baseURL, token string, perPage int, logger *slog.Logger) NotesAPI {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &notesAPIImpl{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		perPage:    perPage,
		logger:     logger.With("component", "notes-api"),
	}
}

// FetchNotes implements NotesAPI. Empty search and tag are left out of the
// query string.
func (a *notesAPIImpl) FetchNotes(ctx context.Context, req models.FetchNotesRequest) (*models.FetchNotesResponse, error) {
	q := url.Values{}
	page := req.Page
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	perPage := req.PerPage
	if perPage < 1 {
		perPage = a.perPage
	}
	if perPage > 0 {
		q.Set("perPage", strconv.Itoa(perPage))
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Tag != "" {
		q.Set("tag", req.Tag)
	}

	a.logger.Debug("fetching notes", "search", req.Search, "page", page, "tag", req.Tag)

	var resp models.FetchNotesResponse
	if err := a.do(ctx, http.MethodGet, "/notes?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}
	if resp.Notes == nil {
		resp.Notes = []models.Note{}
	}
	return &resp, nil
}

// CreateNote implements NotesAPI.
func (a *notesAPIImpl) CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create request: %w", err)
	}

	var note models.Note
	if err := a.do(ctx, http.MethodPost, "/notes", reqBody, &note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	a.logger.Info("created note", "id", note.ID, "title", note.Title)
	return &note, nil
}

func (a *notesAPIImpl) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call notes api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Method:     method,
			Path:       strings.SplitN(path, "?", 2)[0],
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode notes api response: %w", err)
	}
	return nil
}
