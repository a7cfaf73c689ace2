package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/apiclient/apitest"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/store"
	"github.com/stretchr/testify/require"
)

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	code := printResult(&buf, store.LookupResult{
		Status:  store.LookupOpen,
		Test:    model.Test{ID: 4, Name: "Algebra"},
		Answers: []string{"A", "C"},
	})
	require.Equal(t, 0, code)
	require.Equal(t, "Algebra (#4)\n  1. A\n  2. C\n", buf.String())

	buf.Reset()
	require.Equal(t, 1, printResult(&buf, store.LookupResult{Status: store.LookupNotFound}))
	require.Equal(t, "Test not found.\n", buf.String())

	buf.Reset()
	require.Equal(t, 1, printResult(&buf, store.LookupResult{Status: store.LookupClosed}))
	require.Equal(t, "This test is closed.\n", buf.String())
}

func TestRun(t *testing.T) {
	fake := apitest.NewServer(t)
	fake.AddUser(model.User{ID: 1, ChatID: "42", Role: model.RoleAdmin})
	fake.AddUser(model.User{ID: 2, ChatID: "7", Role: "user"})
	fake.AddTest(model.Test{ID: 4, Name: "Algebra", OwnerChatID: "42", TestCount: 2, IsActive: true,
		Answers: model.NewAnswerList([]string{"A", "C"})})

	cfg := &config.Config{APIBaseURL: fake.URL, APITimeout: 5 * time.Second, FilterTestsByOwner: true}

	tests := []struct {
		name   string
		args   []string
		input  string
		code   int
		stdout string
		stderr string
	}{
		{name: "open test", args: []string{"42", "4"}, code: 0, stdout: "Algebra (#4)\n  1. A\n  2. C\n"},
		{name: "prompted", input: "42\n4\n", code: 0, stdout: "Chat ID []: Test ID: Algebra (#4)\n  1. A\n  2. C\n"},
		{name: "unknown test", args: []string{"42", "9"}, code: 1, stdout: "Test not found.\n"},
		{name: "not an admin", args: []string{"7", "4"}, code: 1, stderr: "Error:"},
		{name: "missing chat id", code: 2, stderr: "chat id is required"},
		{name: "bad test id", args: []string{"42", "x"}, code: 2, stderr: "test id must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			in := prompter{
				reader:      bufio.NewReader(strings.NewReader(tt.input)),
				out:         &stdout,
				interactive: tt.input != "",
			}
			code := run(context.Background(), cfg, zerolog.Nop(), tt.args, in, &stdout, &stderr)
			require.Equal(t, tt.code, code)
			if tt.stdout != "" {
				require.Equal(t, tt.stdout, stdout.String())
			}
			require.Contains(t, stderr.String(), tt.stderr)
		})
	}
}
