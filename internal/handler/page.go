package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/response"
	"github.com/stemsi/testdesk/internal/store"
	"github.com/stemsi/testdesk/internal/view"
)

type errorPage struct {
	Title   string
	Message string
	BackURL string
}

// RenderError renders the full-page error view.
func RenderError(c *gin.Context, status int, title, message, backURL string) {
	c.HTML(status, view.PageError, errorPage{Title: title, Message: message, BackURL: backURL})
}

// HTMLFail is the page counterpart of response.AbortFail, used by middleware
// guarding dashboard routes.
func HTMLFail(c *gin.Context, statusCode int, code response.ErrCode) {
	back := ""
	if chatID := c.Param("chat_id"); chatID != "" {
		back = "/" + chatID
	}
	RenderError(c, statusCode, http.StatusText(statusCode), response.GetMessage(code), back)
	c.Abort()
}

// accessStatus maps a FetchUser failure to the status of its full-page error.
func accessStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrMissingChatID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// accessCode is accessStatus for the JSON API.
func accessCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, store.ErrMissingChatID):
		return http.StatusBadRequest, response.ErrChatIDRequired
	case errors.Is(err, store.ErrNotAdmin):
		return http.StatusForbidden, response.ErrAdminAccessOnly
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, response.ErrUserNotFound
	case errors.Is(err, store.ErrNoUser):
		return http.StatusConflict, response.ErrUserNotLoaded
	default:
		return http.StatusBadGateway, response.ErrUpstream
	}
}

// ensureLoaded fetches the admin and the test list unless the store already
// holds them. The returned error is either an access error from FetchUser or
// a FetchTests failure.
func ensureLoaded(ctx context.Context, s *store.Store) error {
	if s.User() == nil {
		if _, err := s.FetchUser(ctx); err != nil {
			return err
		}
	}
	if !s.State().Loaded {
		if _, err := s.FetchTests(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ownerOf returns the loaded admin's chat id, fetching the admin if needed.
// An empty result fails form validation.
func ownerOf(ctx context.Context, s *store.Store) model.ChatID {
	user := s.User()
	if user == nil {
		var err error
		if user, err = s.FetchUser(ctx); err != nil {
			return ""
		}
	}
	return user.ChatID
}

func parseTestID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
