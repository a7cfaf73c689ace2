package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/form"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/response"
	"github.com/stemsi/testdesk/internal/service"
	"github.com/stemsi/testdesk/internal/store"
	"github.com/stemsi/testdesk/internal/view"
)

// DashboardHandler serves the server-rendered test dashboard and its forms.
type DashboardHandler struct {
	registry      *store.Registry
	sessions      *service.SessionService
	pageSize      int
	defaultChatID string
	log           zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(registry *store.Registry, sessions *service.SessionService, cfg *config.Config, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		registry:      registry,
		sessions:      sessions,
		pageSize:      cfg.PageSize,
		defaultChatID: cfg.DefaultChatID,
		log:           log.With().Str("component", "dashboard_handler").Logger(),
	}
}

type dashboardPage struct {
	Title      string
	ChatID     model.ChatID
	User       *model.User
	Tests      []model.Test
	Pagination *response.Pagination
	Error      string
}

type formPage struct {
	Title    string
	ChatID   model.ChatID
	Action   string
	Editing  bool
	Draft    form.Draft
	Error    string
	MaxCount int
}

type confirmPage struct {
	Title  string
	ChatID model.ChatID
	Test   model.Test
	Error  string
}

// Index godoc
// GET /
// Redirects to the dashboard of ?chat_id= or the configured default admin.
func (h *DashboardHandler) Index(c *gin.Context) {
	chatID, err := store.Resolve(c.Query("chat_id"), h.defaultChatID)
	if err != nil {
		RenderError(c, http.StatusBadRequest, "Chat id required", response.GetMessage(response.ErrChatIDRequired), "")
		return
	}
	c.Redirect(http.StatusFound, "/"+chatID.String())
}

// Show godoc
// GET /:chat_id
// Resolves the admin, reloads the test list and renders page ?page= of it.
// A successful resolution also issues the session cookie.
func (h *DashboardHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()
	chatID, err := store.Resolve(c.Param("chat_id"), c.Query("chat_id"), h.defaultChatID)
	if err != nil {
		RenderError(c, http.StatusBadRequest, "Chat id required", response.GetMessage(response.ErrChatIDRequired), "")
		return
	}

	s := h.registry.Get(ctx, chatID)
	user, err := s.FetchUser(ctx)
	if err != nil {
		h.renderAccessError(c, s, err)
		return
	}

	if err := h.setSession(c, user); err != nil {
		h.log.Error().Err(err).Str("chat_id", chatID.String()).Msg("Issue session failed")
	}

	// A failed reload keeps whatever was loaded and shows the error inline.
	_, _ = s.FetchTests(ctx)
	h.renderDashboard(c, http.StatusOK, s, parsePage(c.Query("page")))
}

// ShowPage godoc
// GET /:chat_id/page/:page
// Renders another page of the loaded list without calling the API.
func (h *DashboardHandler) ShowPage(c *gin.Context) {
	s, ok := h.loadedStore(c)
	if !ok {
		return
	}
	h.renderDashboard(c, http.StatusOK, s, parsePage(c.Param("page")))
}

// NewTestForm godoc
// GET /:chat_id/tests/new
func (h *DashboardHandler) NewTestForm(c *gin.Context) {
	s := h.registry.Get(c.Request.Context(), model.ChatID(c.Param("chat_id")))
	s.ClearError()
	h.renderForm(c, http.StatusOK, s, form.NewDraft(), "")
}

// CreateTest godoc
// POST /:chat_id/tests/new
// action=resize re-renders the form with the answer fields fitted to the
// count; anything else validates and saves.
func (h *DashboardHandler) CreateTest(c *gin.Context) {
	ctx := c.Request.Context()
	s := h.registry.Get(ctx, model.ChatID(c.Param("chat_id")))

	draft, resize, err := h.parseDraft(c)
	if err != nil {
		h.badForm(c, err)
		return
	}
	if resize {
		h.renderForm(c, http.StatusOK, s, draft, "")
		return
	}

	owner := ownerOf(ctx, s)
	if ferr := draft.Validate(owner); ferr != nil {
		h.renderForm(c, http.StatusUnprocessableEntity, s, draft, ferr.Message)
		return
	}

	if _, err := s.AddTest(ctx, draft.CreateRequest(owner)); err != nil {
		h.renderForm(c, http.StatusBadGateway, s, draft, form.MsgAddFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, "/"+s.ChatID().String())
}

// EditTestForm godoc
// GET /:chat_id/tests/:id/edit
func (h *DashboardHandler) EditTestForm(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		h.invalidID(c)
		return
	}
	s, ok := h.loadedStore(c)
	if !ok {
		return
	}

	t, found := s.FindTest(id)
	if !found {
		h.testNotFound(c, s)
		return
	}
	s.ClearError()
	h.renderForm(c, http.StatusOK, s, form.DraftFromTest(t), "")
}

// UpdateTest godoc
// POST /:chat_id/tests/:id/edit
// Same resize/save flow as CreateTest; saving replaces the whole record.
func (h *DashboardHandler) UpdateTest(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		h.invalidID(c)
		return
	}
	ctx := c.Request.Context()
	s := h.registry.Get(ctx, model.ChatID(c.Param("chat_id")))

	draft, resize, err := h.parseDraft(c)
	if err != nil {
		h.badForm(c, err)
		return
	}
	draft.ID = id
	if resize {
		h.renderForm(c, http.StatusOK, s, draft, "")
		return
	}

	owner := ownerOf(ctx, s)
	if ferr := draft.Validate(owner); ferr != nil {
		h.renderForm(c, http.StatusUnprocessableEntity, s, draft, ferr.Message)
		return
	}

	if _, err := s.UpdateTest(ctx, id, draft.UpdateRequest(owner)); err != nil {
		h.renderForm(c, http.StatusBadGateway, s, draft, form.MsgSaveFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, "/"+s.ChatID().String())
}

// ToggleTest godoc
// POST /:chat_id/tests/:id/toggle
// Flips is_active and returns to the page the admin was on.
func (h *DashboardHandler) ToggleTest(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		h.invalidID(c)
		return
	}
	s, ok := h.loadedStore(c)
	if !ok {
		return
	}
	page := parsePage(c.PostForm("page"))

	t, found := s.FindTest(id)
	if !found {
		h.testNotFound(c, s)
		return
	}
	if _, err := s.SetActive(c.Request.Context(), id, !t.IsActive); err != nil {
		h.renderDashboard(c, http.StatusBadGateway, s, page)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/%s/page/%d", s.ChatID(), page))
}

// ConfirmDelete godoc
// GET /:chat_id/tests/:id/delete
// Asks for confirmation, naming the test id.
func (h *DashboardHandler) ConfirmDelete(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		h.invalidID(c)
		return
	}
	s, ok := h.loadedStore(c)
	if !ok {
		return
	}

	t, found := s.FindTest(id)
	if !found {
		t = model.Test{ID: id}
	}
	c.HTML(http.StatusOK, view.PageConfirm, confirmPage{
		Title:  "Delete test",
		ChatID: s.ChatID(),
		Test:   t,
	})
}

// DeleteTest godoc
// POST /:chat_id/tests/:id/delete
// The test leaves the list at once. If the API call fails the error is shown
// and the next dashboard load brings the record back.
func (h *DashboardHandler) DeleteTest(c *gin.Context) {
	id, ok := parseTestID(c)
	if !ok {
		h.invalidID(c)
		return
	}
	s := h.registry.Get(c.Request.Context(), model.ChatID(c.Param("chat_id")))

	if err := s.DeleteTest(c.Request.Context(), id); err != nil {
		h.renderDashboard(c, http.StatusBadGateway, s, 1)
		return
	}
	c.Redirect(http.StatusSeeOther, "/"+s.ChatID().String())
}

// ─── Helpers ────────────────────────────────────────────────────────

// loadedStore returns the path's store after making sure its admin and list
// are loaded. On failure the error page has already been written.
func (h *DashboardHandler) loadedStore(c *gin.Context) (*store.Store, bool) {
	s := h.registry.Get(c.Request.Context(), model.ChatID(c.Param("chat_id")))
	if err := ensureLoaded(c.Request.Context(), s); err != nil {
		if store.IsAccessError(err) || s.User() == nil {
			h.renderAccessError(c, s, err)
			return nil, false
		}
		// List fetch failed: carry on with the error shown inline.
	}
	return s, true
}

func (h *DashboardHandler) parseDraft(c *gin.Context) (form.Draft, bool, error) {
	if err := c.Request.ParseForm(); err != nil {
		return form.Draft{}, false, err
	}
	draft := form.ParseDraft(c.Request.PostForm)
	if c.Request.PostForm.Get("action") == "resize" {
		draft.Resize(draft.Count)
		return draft, true, nil
	}
	return draft, false, nil
}

func (h *DashboardHandler) badForm(c *gin.Context, err error) {
	h.log.Warn().Err(err).Str("path", c.FullPath()).Msg("Unreadable form body")
	back := "/" + c.Param("chat_id")
	RenderError(c, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), response.GetMessage(response.ErrInvalidPayload), back)
}

func (h *DashboardHandler) setSession(c *gin.Context, user *model.User) error {
	token, err := h.sessions.Issue(user)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(config.SessionCookieName, token, int(h.sessions.Expiry().Seconds()), "/", "", c.Request.TLS != nil, true)
	return nil
}

func (h *DashboardHandler) renderDashboard(c *gin.Context, status int, s *store.Store, page int) {
	state := s.State()
	p, start, end := response.Paginate(len(state.Tests), page, h.pageSize, 10)
	c.HTML(status, view.PageDashboard, dashboardPage{
		Title:      "Tests",
		ChatID:     state.ChatID,
		User:       state.User,
		Tests:      state.Tests[start:end],
		Pagination: p,
		Error:      state.Error,
	})
}

func (h *DashboardHandler) renderForm(c *gin.Context, status int, s *store.Store, draft form.Draft, errMsg string) {
	page := formPage{
		Title:    "Add test",
		ChatID:   s.ChatID(),
		Action:   fmt.Sprintf("/%s/tests/new", s.ChatID()),
		Draft:    draft,
		Error:    errMsg,
		MaxCount: form.MaxCount,
	}
	if draft.ID > 0 {
		page.Title = fmt.Sprintf("Edit test #%d", draft.ID)
		page.Action = fmt.Sprintf("/%s/tests/%d/edit", s.ChatID(), draft.ID)
		page.Editing = true
	}
	c.HTML(status, view.PageForm, page)
}

func (h *DashboardHandler) renderAccessError(c *gin.Context, s *store.Store, err error) {
	status := accessStatus(err)
	msg := s.State().Error
	if msg == "" {
		msg = err.Error()
	}
	RenderError(c, status, http.StatusText(status), msg, "")
}

func (h *DashboardHandler) testNotFound(c *gin.Context, s *store.Store) {
	RenderError(c, http.StatusNotFound, "Test not found", response.GetMessage(response.ErrNotFound), "/"+s.ChatID().String())
}

func (h *DashboardHandler) invalidID(c *gin.Context) {
	back := "/" + c.Param("chat_id")
	RenderError(c, http.StatusBadRequest, "Invalid test id", response.GetMessage(response.ErrInvalidID), back)
}
