package controller

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
	"github/itish2003/notehub/services"
)

// SessionCookie carries the id of the browser's session.
const SessionCookie = "notehub_session"

const defaultReturnTo = "/notes/filter/All"

// NotesController handles the notes pages and the JSON surface. It
// depends on the loader for server-side prefetch and on the session store
// for the per-browser cache, toasts and form.
type NotesController struct {
	api       services.NotesAPI
	loader    *services.NotesLoader
	sessions  *services.SessionStore
	templates atomic.Pointer[template.Template]
	version   string
	logger    *slog.Logger
}

// NewNotesController wires the controller. tmpl must define notes.html and
// error.html.
func NewNotesController(api services.NotesAPI, loader *services.NotesLoader, sessions *services.SessionStore, tmpl *template.Template, version string, logger *slog.Logger) *NotesController {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &NotesController{
		api:      api,
		loader:   loader,
		sessions: sessions,
		version:  version,
		logger:   logger.With("component", "controller"),
	}
	c.templates.Store(tmpl)
	return c
}

// SetTemplates swaps the templates used for rendering. Safe to call while
// requests are served.
func (c *NotesController) SetTemplates(tmpl *template.Template) {
	c.templates.Store(tmpl)
}

// Health is the handler for GET /health.
func (c *NotesController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Service: "notehub",
		Version: c.version,
	})
}

// NotesPage is the handler for GET /notes and GET /notes/filter/*slug. It
// prefetches the requested page, hydrates the session cache with the
// result and renders it.
func (c *NotesController) NotesPage(ctx *gin.Context) {
	params := services.ParseNotesParams(ctx.Request.URL.Query(), ctx.Param("slug"))
	sess := c.session(ctx)
	modal := ctx.Query("modal") == "open"
	if modal {
		// A freshly opened modal starts from the initial values.
		sess.Form.Reset()
	}
	c.renderNotes(ctx, sess, params, http.StatusOK, modal, nil)
}

// CreateNote is the handler for POST /notes (the create-note form).
func (c *NotesController) CreateNote(ctx *gin.Context) {
	var values models.CreateNoteRequest
	if err := ctx.ShouldBind(&values); err != nil {
		ctx.String(http.StatusBadRequest, "Invalid form: "+err.Error())
		return
	}

	returnTo := safeReturnTo(ctx.PostForm("return_to"))
	sess := c.session(ctx)

	_, err := sess.Form.Submit(ctx.Request.Context(), values)
	if err == nil {
		ctx.Redirect(http.StatusSeeOther, returnTo)
		return
	}

	// The modal stays open with the entered values. A rejected concurrent
	// submit never reached the form, so its values are rendered directly.
	status := http.StatusBadGateway
	var posted *models.CreateNoteRequest
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrSubmitInFlight):
		status = http.StatusConflict
		posted = &values
	}

	u, _ := url.Parse(returnTo)
	slug := strings.TrimPrefix(strings.TrimPrefix(u.Path, "/notes"), "/filter")
	params := services.ParseNotesParams(u.Query(), slug)
	c.renderNotes(ctx, sess, params, status, true, posted)
}

// ListNotes is the handler for GET /api/notes. It answers from the
// session cache and fetches when the entry is missing or stale.
func (c *NotesController) ListNotes(ctx *gin.Context) {
	params := services.ParseNotesParams(ctx.Request.URL.Query(), ctx.Query("tag"))
	sess := c.session(ctx)

	data, err := querycache.EnsureData(ctx.Request.Context(), sess.Cache, params.Key(),
		services.NoteListQuery(c.api, params.Search, params.Page, params.Tag))
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, data)
}

// CreateNoteJSON is the handler for POST /api/notes.
func (c *NotesController) CreateNoteJSON(ctx *gin.Context) {
	var req models.CreateNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	sess := c.session(ctx)
	note, err := sess.Form.Submit(ctx.Request.Context(), req)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid note", "fields": verr.Fields})
		case errors.Is(err, services.ErrSubmitInFlight):
			ctx.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		default:
			ctx.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "Failed to create note"})
		}
		return
	}

	// The session's toasts are for the HTML pages; a JSON client gets the
	// note itself.
	sess.Toaster.Drain()
	ctx.JSON(http.StatusCreated, note)
}

// renderNotes renders the notes page for params. Form values come from the
// session form unless values is set.
func (c *NotesController) renderNotes(ctx *gin.Context, sess *services.Session, params services.NotesParams, status int, modal bool, values *models.CreateNoteRequest) {
	reqCtx := ctx.Request.Context()

	page, err := c.loader.Load(reqCtx, params)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	sess.Cache.Hydrate(page.Snapshot)

	view := services.NewNotesView(sess.Cache, c.api, params.Search, params.Page, params.Tag)
	if modal {
		view.OpenModal()
	}
	// Hydration found nothing (the prefetch failed): fetch once more and
	// let a second failure surface.
	if view.NeedsFetch() {
		if err := view.Refresh(reqCtx); err != nil {
			_ = ctx.Error(err)
			return
		}
	}

	r, err := view.Render()
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	hydration, err := hydrationScript(page.Snapshot)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	formValues := sess.Form.Values()
	if values != nil {
		formValues = *values
	}

	current := notesURL(params.Search, params.Page, params.Tag, false)
	pages, prev, next := buildPageLinks(r)
	data := notesPageData{
		Render:        r,
		BasePath:      notesPath(params.Tag),
		TagLinks:      buildTagLinks(params.Tag),
		Pages:         pages,
		Prev:          prev,
		Next:          next,
		OpenModalURL:  notesURL(params.Search, params.Page, params.Tag, true),
		CloseModalURL: current,
		Toasts:        sess.Toaster.Drain(),
		Form: formData{
			Values:     formValues,
			Errors:     sess.Form.Errors(),
			Tags:       models.Tags(),
			Submitting: sess.Form.State() == services.FormSubmitting,
			ReturnTo:   current,
		},
		Hydration: hydration,
	}
	c.html(ctx, status, "notes.html", data)
}

func (c *NotesController) html(ctx *gin.Context, status int, name string, data any) {
	ctx.Render(status, render.HTML{
		Template: c.templates.Load(),
		Name:     name,
		Data:     data,
	})
}

// session returns the caller's session, issuing a cookie for a new one.
func (c *NotesController) session(ctx *gin.Context) *services.Session {
	id, _ := ctx.Cookie(SessionCookie)
	sess, created := c.sessions.Get(id)
	if created {
		ctx.SetSameSite(http.SameSiteLaxMode)
		ctx.SetCookie(SessionCookie, sess.ID, 0, "/", "", false, true)
	}
	return sess
}

// safeReturnTo keeps redirects on the notes pages of this site.
func safeReturnTo(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || strings.HasPrefix(raw, "//") {
		return defaultReturnTo
	}
	if u.Path != "/notes" && !strings.HasPrefix(u.Path, "/notes/filter/") {
		return defaultReturnTo
	}
	return u.RequestURI()
}
