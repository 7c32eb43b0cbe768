// Package tweets rotates through a fixed promotional content library,
// optionally enriched from an RSS feed, and posts through the browser
// session.
package tweets

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/finder"
	"github.com/linkhub/autopilot/internal/ledger"
	"github.com/linkhub/autopilot/internal/pkg/httpretry"
)

// The fixed promotional library. Rotation position lives in the store's
// tweet history.
var contentLibrary = []string{
	"Most link-in-bio tools charge $5-20/month for basic features.\n\nI built one that's free. Forever.\n\nNo catch. No \"upgrade to unlock.\"",
	"POV: You stop paying for Linktree\n\nHere's a free alternative I made",
	"Creators: You don't need to pay for a link-in-bio tool.\n\nI built a free one with:\n- Unlimited links\n- Click analytics\n- Custom themes",
	"Just shipped: A Linktree alternative that's actually free.\n\nNo waitlist. No tricks. Just use it.",
	"Your link-in-bio shouldn't cost more than your Netflix subscription.\n\nMine is free.",
	"New creators: Don't pay for Linktree.\n\nUse my free alternative until you're making money.\n\nThen still use it because it's free lol",
	"The link-in-bio space is wild.\n\nCompanies charging $20/mo for what's essentially a list of links.\n\nI made a free version.",
	"If you're a creator with < 10k followers, you don't need to pay for link tools.\n\nHere's a free one I made for you.",
}

var engagementQueries = []string{
	`"link in bio" need`,
	`"linktree alternative"`,
	`"linktree expensive"`,
	`linktree free alternative`,
}

// Poster publishes one post to the platform.
type Poster interface {
	PostTweet(ctx context.Context, text string) error
}

// Bot owns scheduled posting and engagement search.
type Bot struct {
	store  *ledger.Store
	poster Poster
	appURL string
	extra  []string
	rng    *rand.Rand
}

// NewBot wires the posting bot.
func NewBot(store *ledger.Store, poster Poster, appURL string) *Bot {
	return &Bot{
		store:  store,
		poster: poster,
		appURL: appURL,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the engagement-query picker source, for tests.
func (b *Bot) WithRand(rng *rand.Rand) *Bot {
	b.rng = rng
	return b
}

// Library returns the active content library including any RSS
// additions.
func (b *Bot) Library() []string {
	return append(append([]string(nil), contentLibrary...), b.extra...)
}

// Next advances the rotation and returns the post text with the app URL
// appended.
func (b *Bot) Next() (string, error) {
	library := b.Library()
	idx, err := b.store.NextTweetIndex(len(library))
	if err != nil {
		return "", err
	}
	return library[idx] + "\n\n" + b.appURL, nil
}

// Post publishes the next rotated item, or custom text when given.
func (b *Bot) Post(ctx context.Context, custom string) error {
	text := custom
	if text == "" {
		next, err := b.Next()
		if err != nil {
			return err
		}
		text = next
	}

	if err := b.poster.PostTweet(ctx, text); err != nil {
		return fmt.Errorf("posting: %w", err)
	}
	log.Printf("[Tweets] Posted: %.50q", text)
	return nil
}

// LoadRSS pulls the latest feed items and appends announcement posts to
// the library. Errors leave the library unchanged.
func (b *Bot) LoadRSS(ctx context.Context, cfg config.TweetsConfig) error {
	if cfg.RSSFeedURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.RSSFeedURL, nil)
	if err != nil {
		return fmt.Errorf("building feed request: %w", err)
	}
	resp, err := httpretry.New(nil, 3).Do(req)
	if err != nil {
		return fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching feed: status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing feed: %w", err)
	}

	b.extra = b.extra[:0]
	for i, item := range feed.Items {
		if i >= 5 {
			break
		}
		b.extra = append(b.extra, fmt.Sprintf("New on the blog: %s\n\n%s", item.Title, item.Link))
	}
	log.Printf("[Tweets] Loaded %d posts from feed %s", len(b.extra), cfg.RSSFeedURL)
	return nil
}

// Searcher runs a search query and returns candidates, the subset of
// the finder session the engagement routine needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]finder.Candidate, error)
}

// Engage runs one random engagement query and logs the opportunities it
// finds. Returns the candidates for callers that want them.
func (b *Bot) Engage(ctx context.Context, session Searcher) ([]finder.Candidate, error) {
	query := engagementQueries[b.rng.Intn(len(engagementQueries))]

	results, err := session.Search(ctx, query, 10)
	if err != nil {
		return nil, fmt.Errorf("engagement search %q: %w", query, err)
	}

	log.Printf("[Tweets] Found %d posts for %q", len(results), query)
	for i, r := range results {
		if i >= 5 {
			break
		}
		log.Printf("[Tweets]   -> @%s: %.80q", r.Username, r.PostText)
	}
	return results, nil
}
