package services

import (
	"context"
	"sync"

	"github/itish2003/notehub/models"
)

// fakeNotesAPI records calls and answers from its function fields.
type fakeNotesAPI struct {
	mu           sync.Mutex
	fetchCalls   []models.FetchNotesRequest
	createCalls  []models.CreateNoteRequest
	fetchNotesFn func(req models.FetchNotesRequest) (*models.FetchNotesResponse, error)
	createNoteFn func(req models.CreateNoteRequest) (*models.Note, error)
}

func (f *fakeNotesAPI) FetchNotes(_ context.Context, req models.FetchNotesRequest) (*models.FetchNotesResponse, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, req)
	fn := f.fetchNotesFn
	f.mu.Unlock()

	if fn == nil {
		return &models.FetchNotesResponse{Notes: []models.Note{}, TotalPages: 0}, nil
	}
	return fn(req)
}

func (f *fakeNotesAPI) CreateNote(_ context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	f.mu.Lock()
	f.createCalls = append(f.createCalls, req)
	fn := f.createNoteFn
	f.mu.Unlock()

	if fn == nil {
		return &models.Note{ID: "note-1", Title: req.Title, Content: req.Content, Tag: req.Tag}, nil
	}
	return fn(req)
}

func (f *fakeNotesAPI) fetches() []models.FetchNotesRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FetchNotesRequest(nil), f.fetchCalls...)
}

func (f *fakeNotesAPI) creates() []models.CreateNoteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CreateNoteRequest(nil), f.createCalls...)
}

// pageOf returns a response holding n notes.
func pageOf(n, totalPages int) *models.FetchNotesResponse {
	notes := make([]models.Note, 0, n)
	for i := range n {
		notes = append(notes, models.Note{
			ID:    string(rune('a' + i)),
			Title: "note " + string(rune('a'+i)),
			Tag:   models.TagTodo,
		})
	}
	return &models.FetchNotesResponse{Notes: notes, TotalPages: totalPages}
}
