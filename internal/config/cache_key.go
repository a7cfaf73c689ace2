package config

import (
	"fmt"
)

// SessionCookieName is the cookie carrying the signed admin session.
const SessionCookieName = "testdesk_session"

type CacheKeyStruct struct {
	prefix string
}

func NewCacheKeyStruct(prefix string) *CacheKeyStruct {
	return &CacheKeyStruct{prefix: prefix}
}

// TestSnapshotKey returns the key holding an admin's persisted test list
func (r *CacheKeyStruct) TestSnapshotKey(chatID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, chatID)
}

// TestSnapshotPattern matches every persisted test list
func (r *CacheKeyStruct) TestSnapshotPattern() string {
	return r.prefix + ":*"
}

var CacheKey = NewCacheKeyStruct("test-store")

// UseSnapshotPrefix replaces the prefix of the global key builder.
func UseSnapshotPrefix(prefix string) {
	if prefix != "" {
		CacheKey = NewCacheKeyStruct(prefix)
	}
}
