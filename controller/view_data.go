package controller

import (
	"encoding/json"
	"html/template"
	"net/url"
	"strconv"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/querycache"
	"github/itish2003/notehub/services"
)

// notesPageData is the data of notes.html.
type notesPageData struct {
	Render        services.NotesRender
	BasePath      string
	TagLinks      []tagLink
	Pages         []pageLink
	Prev          string
	Next          string
	OpenModalURL  string
	CloseModalURL string
	Toasts        []services.Toast
	Form          formData
	Hydration     template.JS
}

type tagLink struct {
	Label  string
	URL    string
	Active bool
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
	Gap     bool
}

type formData struct {
	Values     models.CreateNoteRequest
	Errors     services.FieldErrors
	Tags       []models.Tag
	Submitting bool
	ReturnTo   string
}

// errorPageData is the data of error.html.
type errorPageData struct {
	Message string
	Retry   string
}

// notesPath is the path of the notes page for a tag filter.
func notesPath(tag string) string {
	if tag == "" {
		tag = models.TagFilterAll
	}
	return "/notes/filter/" + url.PathEscape(tag)
}

// notesURL is the full URL of a notes page. Default values are left out.
func notesURL(search string, page int, tag string, modal bool) string {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if modal {
		q.Set("modal", "open")
	}
	if len(q) == 0 {
		return notesPath(tag)
	}
	return notesPath(tag) + "?" + q.Encode()
}

func buildTagLinks(current string) []tagLink {
	links := []tagLink{{
		Label:  models.TagFilterAll,
		URL:    notesPath(""),
		Active: current == "",
	}}
	for _, tag := range models.Tags() {
		links = append(links, tagLink{
			Label:  string(tag),
			URL:    notesPath(string(tag)),
			Active: current == string(tag),
		})
	}
	return links
}

// pageWindow is how many pages are shown on each side of the current one.
const pageWindow = 2

// buildPageLinks lists the first and last page and a window around the
// current one, with gaps in between.
func buildPageLinks(r services.NotesRender) (pages []pageLink, prev, next string) {
	current := r.ForcePage + 1
	lastShown := 0
	for n := 1; n <= r.PageCount; n++ {
		if n != 1 && n != r.PageCount && (n < current-pageWindow || n > current+pageWindow) {
			continue
		}
		if lastShown != 0 && n > lastShown+1 {
			pages = append(pages, pageLink{Gap: true})
		}
		pages = append(pages, pageLink{
			Number:  n,
			URL:     notesURL(r.Search, n, r.Tag, false),
			Current: n == current,
		})
		lastShown = n
	}
	if current > 1 {
		prev = notesURL(r.Search, current-1, r.Tag, false)
	}
	if current < r.PageCount {
		next = notesURL(r.Search, current+1, r.Tag, false)
	}
	return pages, prev, next
}

// hydrationScript encodes the snapshot for the page. encoding/json escapes
// <, > and &, so the result is safe inside a script element.
func hydrationScript(snap querycache.Snapshot) (template.JS, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
