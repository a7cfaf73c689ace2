package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/apiclient"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/database"
	"github.com/stemsi/testdesk/internal/logger"
	"github.com/stemsi/testdesk/internal/repository"
	"github.com/stemsi/testdesk/internal/store"
	"golang.org/x/term"
)

// Usage: lookup [chat_id [test_id]]
// Missing arguments are prompted for when stdin is a terminal.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	config.UseSnapshotPrefix(cfg.SnapshotKeyPrefix)

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr so the answers stay pipeable.
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	in := prompter{
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	os.Exit(run(context.Background(), cfg, log, os.Args[1:], in, os.Stdout, os.Stderr))
}

// run performs one lookup and returns the process exit code: 0 for an open
// test, 1 for a closed or unknown test or a rejected admin, 2 for bad input.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string, in prompter, stdout, stderr io.Writer) int {
	chatID := in.argOrPrompt(args, 0, fmt.Sprintf("Chat ID [%s]: ", cfg.DefaultChatID))
	rawID := in.argOrPrompt(args, 1, "Test ID: ")

	resolved, err := store.Resolve(chatID, cfg.DefaultChatID)
	if err != nil {
		fmt.Fprintln(stderr, "Error: chat id is required")
		return 2
	}
	testID, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil {
		fmt.Fprintln(stderr, "Error: test id must be a number")
		return 2
	}

	// ─── Stores (snapshot fallback when Redis is configured) ───────────
	opts := []store.RegistryOption{
		store.WithOwnerFilter(cfg.FilterTestsByOwner),
		store.WithLogger(log),
	}
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without snapshots")
	} else if rdb != nil {
		defer rdb.Close()
		opts = append(opts, store.WithSnapshotter(repository.NewSnapshotRepository(rdb)))
	}

	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, log)
	s := store.NewRegistry(api, opts...).Get(ctx, resolved)

	if _, err := s.FetchUser(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", s.State().Error)
		return 1
	}
	if _, err := s.FetchTests(ctx); err != nil {
		fmt.Fprintln(stderr, "Warning:", s.State().Error)
	}

	return printResult(stdout, s.Lookup(testID))
}

type prompter struct {
	reader      *bufio.Reader
	out         io.Writer
	interactive bool
}

func (p prompter) argOrPrompt(args []string, i int, prompt string) string {
	if i < len(args) {
		return args[i]
	}
	if !p.interactive {
		return ""
	}
	fmt.Fprint(p.out, prompt)
	line, _ := p.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// printResult writes the lookup outcome and returns the exit code.
func printResult(w io.Writer, res store.LookupResult) int {
	switch res.Status {
	case store.LookupNotFound:
		fmt.Fprintln(w, "Test not found.")
		return 1
	case store.LookupClosed:
		fmt.Fprintln(w, "This test is closed.")
		return 1
	}

	fmt.Fprintf(w, "%s (#%d)\n", res.Test.Name, res.Test.ID)
	for i, a := range res.Answers {
		fmt.Fprintf(w, "%3d. %s\n", i+1, a)
	}
	return 0
}
