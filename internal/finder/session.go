// Package finder discovers candidate accounts through platform search,
// qualifies them, and feeds accepted leads into the ledger.
package finder

import (
	"context"
	"errors"
)

// ErrNotLoggedIn means the browser profile holds no authenticated
// session. Finder runs abort immediately; this is never retried.
var ErrNotLoggedIn = errors.New("not logged in")

// Candidate is one account scraped from rendered search results.
type Candidate struct {
	Username  string
	Name      string
	Bio       string
	PostText  string
	Followers int
}

// Session is an authenticated platform session. The production
// implementation drives a real browser; tests supply a mock.
type Session interface {
	// LoggedIn reports whether the session is authenticated.
	LoggedIn(ctx context.Context) (bool, error)
	// Search runs one query against the platform's live search and
	// returns up to limit candidates extracted from the results.
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
	// Profile fetches one account's full public profile.
	Profile(ctx context.Context, username string) (Candidate, error)
}
