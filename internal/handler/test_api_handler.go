package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/form"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/response"
	"github.com/stemsi/testdesk/internal/service"
	"github.com/stemsi/testdesk/internal/store"
	"github.com/stemsi/testdesk/internal/validator"
)

// TestAPIHandler exposes the store actions as JSON.
type TestAPIHandler struct {
	registry *store.Registry
	sessions *service.SessionService
	pageSize int
	log      zerolog.Logger
}

// NewTestAPIHandler creates a new TestAPIHandler.
func NewTestAPIHandler(registry *store.Registry, sessions *service.SessionService, cfg *config.Config, log zerolog.Logger) *TestAPIHandler {
	return &TestAPIHandler{
		registry: registry,
		sessions: sessions,
		pageSize: cfg.PageSize,
		log:      log.With().Str("component", "test_api_handler").Logger(),
	}
}

// SetActiveRequest is the payload for toggling a test.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// CreateSession godoc
// POST /api/v1/:chat_id/session
// Resolves the admin and returns a session token for the other endpoints.
func (h *TestAPIHandler) CreateSession(c *gin.Context) {
	s := h.registry.Get(c.Request.Context(), model.ChatID(c.Param("chat_id")))
	user, err := s.FetchUser(c.Request.Context())
	if err != nil {
		status, code := accessCode(err)
		response.Fail(c, status, code)
		return
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		h.log.Error().Err(err).Msg("Issue session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":      token,
		"expires_in": int(h.sessions.Expiry().Seconds()),
		"user":       user,
	})
}

// ListTests godoc
// GET /api/v1/:chat_id/tests?page=&per_page=&refresh=
// Pages through the loaded list. refresh=1 reloads it from the API first.
func (h *TestAPIHandler) ListTests(c *gin.Context) {
	s, ok := h.loadedStore(c)
	if !ok {
		return
	}
	if c.Query("refresh") == "1" {
		if _, err := s.FetchTests(c.Request.Context()); err != nil {
			response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, s.State().Error)
			return
		}
	}

	tests := s.Tests()
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	p, start, end := response.Paginate(len(tests), parsePage(c.Query("page")), perPage, h.pageSize)
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests[start:end]}, p)
}

// GetTest godoc
// GET /api/v1/:chat_id/tests/:id
func (h *TestAPIHandler) GetTest(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	s, ok := h.loadedStore(c)
	if !ok {
		return
	}

	t, found := s.FindTest(id)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// LookupTest godoc
// GET /api/v1/:chat_id/tests/:id/lookup
// Returns the answers of an open test. Closed tests expose nothing.
func (h *TestAPIHandler) LookupTest(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	s, ok := h.loadedStore(c)
	if !ok {
		return
	}

	result := s.Lookup(id)
	switch result.Status {
	case store.LookupNotFound:
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case store.LookupClosed:
		response.Fail(c, http.StatusConflict, response.ErrTestClosed)
	default:
		response.Success(c, http.StatusOK, gin.H{
			"id":      result.Test.ID,
			"name":    result.Test.Name,
			"answers": result.Answers,
		})
	}
}

// CreateTest godoc
// POST /api/v1/:chat_id/tests
// Applies the same rules as the add form before calling the API.
func (h *TestAPIHandler) CreateTest(c *gin.Context) {
	var in model.TestInput
	if fields := validator.Bind(c, &in); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx := c.Request.Context()
	s := h.registry.Get(ctx, model.ChatID(c.Param("chat_id")))
	draft := form.DraftFromInput(in)
	owner := ownerOf(ctx, s)
	if ferr := draft.Validate(owner); ferr != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{ferr.Field: ferr.Message})
		return
	}

	t, err := s.AddTest(ctx, draft.CreateRequest(owner))
	if err != nil {
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, form.MsgAddFailed)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"test": t})
}

// UpdateTest godoc
// PUT /api/v1/:chat_id/tests/:id
// Full replace. Omitted is_active keeps the test active.
func (h *TestAPIHandler) UpdateTest(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var in model.TestInput
	if fields := validator.Bind(c, &in); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx := c.Request.Context()
	s := h.registry.Get(ctx, model.ChatID(c.Param("chat_id")))
	draft := form.DraftFromInput(in)
	draft.ID = id
	owner := ownerOf(ctx, s)
	if ferr := draft.Validate(owner); ferr != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{ferr.Field: ferr.Message})
		return
	}

	t, err := s.UpdateTest(ctx, id, draft.UpdateRequest(owner))
	if err != nil {
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, form.MsgSaveFailed)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// SetActive godoc
// PATCH /api/v1/:chat_id/tests/:id/active
func (h *TestAPIHandler) SetActive(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req SetActiveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	s, ok := h.loadedStore(c)
	if !ok {
		return
	}

	t, err := s.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, store.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, s.State().Error)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// DeleteTest godoc
// DELETE /api/v1/:chat_id/tests/:id
// Deleting an id that is not loaded succeeds without calling the API.
func (h *TestAPIHandler) DeleteTest(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	s := h.registry.Get(c.Request.Context(), model.ChatID(c.Param("chat_id")))
	if err := s.DeleteTest(c.Request.Context(), id); err != nil {
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, s.State().Error)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// loadedStore is DashboardHandler.loadedStore for JSON clients. Unlike the
// page, a failed list fetch is an error here.
func (h *TestAPIHandler) loadedStore(c *gin.Context) (*store.Store, bool) {
	s := h.registry.Get(c.Request.Context(), model.ChatID(c.Param("chat_id")))
	if err := ensureLoaded(c.Request.Context(), s); err != nil {
		status, code := accessCode(err)
		if msg := s.State().Error; msg != "" {
			response.FailWithMessage(c, status, code, msg)
		} else {
			response.Fail(c, status, code)
		}
		return nil, false
	}
	return s, true
}
