package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
)

// ErrSubmitInFlight is returned by Submit while an earlier submission of
// the same form has not finished. The submit control is disabled in that
// state.
var ErrSubmitInFlight = errors.New("a note is already being created")

const (
	createdToastPrefix = "you created a new note "
	createFailedToast  = "Your new note was not created because of the error"
)

// FieldErrors maps a form field (its JSON name) to the message shown
// under it.
type FieldErrors map[string]string

// ValidationError is returned by Submit when the values do not pass
// validation. No request was sent.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid note: " + strings.Join(parts, "; ")
}

// FormState is the submit state of the create form.
type FormState int

const (
	FormIdle FormState = iota
	FormSubmitting
)

// InitialNoteValues are the values of an empty create form.
func InitialNoteValues() models.CreateNoteRequest {
	return models.CreateNoteRequest{Tag: models.TagTodo}
}

// fieldMessages holds the message per field and failed rule.
var fieldMessages = map[string]map[string]string{
	"title": {
		"required": "It is required field",
		"min":      "Please, make up longer title",
		"max":      "Too long title",
	},
	"content": {
		"max": "Too much of text",
	},
	"tag": {
		"required": "It is required",
		"oneof":    "Choose one of: Todo, Work, Personal, Meeting, Shopping",
	},
}

// NewNoteValidator returns a validator that reports fields by their JSON
// names.
func NewNoteValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NoteForm is the create-note flow: validate, create through the API,
// then notify, reset, close and invalidate the note list. It is safe for
// concurrent use; a second Submit during a running one is rejected.
type NoteForm struct {
	mu       sync.Mutex
	api      NotesAPI
	cache    *querycache.Client
	notifier Notifier
	onClose  func()
	validate *validator.Validate
	logger   *slog.Logger

	values models.CreateNoteRequest
	errors FieldErrors
	state  FormState
}

// NewNoteForm creates a form that writes through api and invalidates cache
// on success. onClose may be nil.
func NewNoteForm(api NotesAPI, cache *querycache.Client, notifier Notifier, onClose func(), logger *slog.Logger) *NoteForm {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NoteForm{
		api:      api,
		cache:    cache,
		notifier: notifier,
		onClose:  onClose,
		validate: NewNoteValidator(),
		logger:   logger.With("component", "note-form"),
		values:   InitialNoteValues(),
	}
}

// Values returns the current form values.
func (f *NoteForm) Values() models.CreateNoteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Errors returns the field errors of the last validation.
func (f *NoteForm) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(FieldErrors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// State returns the submit state.
func (f *NoteForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reset restores the initial values and clears errors.
func (f *NoteForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = InitialNoteValues()
	f.errors = nil
}

// Validate checks values and returns nil when they are valid.
func (f *NoteForm) Validate(values models.CreateNoteRequest) FieldErrors {
	err := f.validate.Struct(values)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		msg, ok := fieldMessages[name][fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		fields[name] = msg
	}
	return fields
}

// Submit validates values and creates the note.
//
// On success the form is reset, closed, a success toast names the new
// note and every note-list query is invalidated. On failure an error toast
// is shown and the entered values stay in the form.
func (f *NoteForm) Submit(ctx context.Context, values models.CreateNoteRequest) (*models.Note, error) {
	f.mu.Lock()
	if f.state == FormSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	f.values = values
	if errs := f.Validate(values); errs != nil {
		f.errors = errs
		f.mu.Unlock()
		return nil, &ValidationError{Fields: errs}
	}
	f.errors = nil
	f.state = FormSubmitting
	f.mu.Unlock()

	note, err := f.api.CreateNote(ctx, values)

	f.mu.Lock()
	f.state = FormIdle
	if err != nil {
		f.mu.Unlock()
		f.logger.Error("note was not created", "title", values.Title, "error", err)
		f.notifier.Error(createFailedToast)
		return nil, fmt.Errorf("could not create note: %w", err)
	}
	f.values = InitialNoteValues()
	f.mu.Unlock()

	f.logger.Info("note created", "id", note.ID, "title", note.Title)
	if f.onClose != nil {
		f.onClose()
	}
	f.notifier.Success(createdToastPrefix + note.Title)
	n := f.cache.Invalidate(NoteListPrefix())
	f.logger.Debug("invalidated note lists", "count", n)

	return note, nil
}
