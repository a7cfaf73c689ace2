package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RoleAdmin is the only role allowed into the dashboard.
const RoleAdmin = "admin"

// ChatID is the external chat identifier of a user. The API has sent it both as
// a JSON number and as a string, so both decode.
type ChatID string

func (c ChatID) String() string { return string(c) }

// UnmarshalJSON accepts a string, a number or null.
func (c *ChatID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ChatID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("chat id: %w", err)
	}
	*c = ChatID(n.String())
	return nil
}

// MarshalJSON writes numeric chat ids as numbers and anything else as a string.
func (c ChatID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(c), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(c) {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

// User is the chat-identified account fetched from the API.
type User struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
	ChatID   ChatID `json:"chat_id"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Region   string `json:"region"`
	Class    string `json:"class"`
}

// IsAdmin reports whether the user may manage tests.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
