package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/store"
	"github.com/stemsi/testdesk/internal/view"
)

const msgInvalidTestID = "Enter a numeric test id."

// LookupHandler serves the read-only test lookup page.
type LookupHandler struct {
	registry *store.Registry
	log      zerolog.Logger
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(registry *store.Registry, log zerolog.Logger) *LookupHandler {
	return &LookupHandler{
		registry: registry,
		log:      log.With().Str("component", "lookup_handler").Logger(),
	}
}

type lookupPage struct {
	Title  string
	ChatID model.ChatID
	Query  string
	Error  string
	Result *store.LookupResult
}

// Lookup godoc
// GET /:chat_id/user?test_id=N
// Looks the id up in the loaded list. The list is fetched only when this
// store has never loaded one.
func (h *LookupHandler) Lookup(c *gin.Context) {
	ctx := c.Request.Context()
	s := h.registry.Get(ctx, model.ChatID(c.Param("chat_id")))
	loadErr := ensureLoaded(ctx, s)
	if loadErr != nil && (store.IsAccessError(loadErr) || s.User() == nil) {
		status := accessStatus(loadErr)
		RenderError(c, status, http.StatusText(status), s.State().Error, "")
		return
	}

	page := lookupPage{
		Title:  "Look up a test",
		ChatID: s.ChatID(),
		Query:  strings.TrimSpace(c.Query("test_id")),
	}
	if loadErr != nil {
		page.Error = s.State().Error
	}
	if page.Query == "" {
		c.HTML(http.StatusOK, view.PageLookup, page)
		return
	}

	id, err := strconv.Atoi(page.Query)
	if err != nil {
		page.Error = msgInvalidTestID
		c.HTML(http.StatusBadRequest, view.PageLookup, page)
		return
	}

	result := s.Lookup(id)
	page.Result = &result
	h.log.Debug().Str("chat_id", s.ChatID().String()).Int("test_id", id).Str("status", string(result.Status)).Msg("Test lookup")
	c.HTML(http.StatusOK, view.PageLookup, page)
}
