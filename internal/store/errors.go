package store

import "errors"

var (
	// ErrMissingChatID means no chat id could be resolved for the request.
	ErrMissingChatID = errors.New("chat id is required")
	// ErrNotAdmin means the user exists but may not manage tests.
	ErrNotAdmin = errors.New("user is not an admin")
	// ErrNoUser means an action ran before the admin was loaded.
	ErrNoUser = errors.New("user is not loaded")
	// ErrUserNotFound means the API has no user for the chat id.
	ErrUserNotFound = errors.New("user not found")
	// ErrTestNotFound means the id is not in the loaded list.
	ErrTestNotFound = errors.New("test not found")
)

// Messages stored in State.Error. They are shown to the admin verbatim.
const (
	msgMissingChatID = "No chat id was supplied. Open the dashboard through your bot link."
	msgNotAdmin      = "Access denied: this account is not an admin."
	msgUserNotFound  = "User not found."
	msgFetchUser     = "Could not load the user. Please try again later."
	msgNoUser        = "The admin is not loaded yet."
	msgFetchTests    = "Could not load tests."
	msgAddTest       = "Could not add the test."
	msgUpdateTest    = "Could not save the test."
	msgDeleteTest    = "Could not delete the test."
	msgTestNotFound  = "Test not found."
)
