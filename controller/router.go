package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin engine with every route of the notes front
// end.
func SetupRouter(c *NotesController) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(c.logger), c.ErrorBoundary())

	router.GET("/health", c.Health)
	router.GET("/", func(ctx *gin.Context) {
		ctx.Redirect(http.StatusFound, defaultReturnTo)
	})

	router.GET("/notes", c.NotesPage)
	router.GET("/notes/filter/*slug", c.NotesPage)
	router.POST("/notes", c.CreateNote)

	api := router.Group("/api", CORS())
	{
		api.GET("/notes", c.ListNotes)
		api.POST("/notes", c.CreateNoteJSON)
		api.OPTIONS("/notes", func(*gin.Context) {})
	}

	return router
}
