package finder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/outreach"
)

const (
	baseURL   = "https://twitter.com"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// extractCandidates pulls account records out of rendered search
// results. Runs inside the page; returns JSON so the Go side stays
// decoupled from DOM shapes.
const extractCandidates = `
(() => {
	const out = [];
	const seen = {};
	document.querySelectorAll('[data-testid="tweet"]').forEach(tweet => {
		const link = tweet.querySelector('a[href^="/"]');
		if (!link) return;
		const username = link.getAttribute('href').replace('/', '').split('/')[0];
		if (!username || seen[username]) return;
		seen[username] = true;
		const nameEl = tweet.querySelector('[data-testid="User-Name"]');
		const textEl = tweet.querySelector('[data-testid="tweetText"]');
		out.push({
			username: username,
			name: nameEl ? nameEl.innerText.split('\n')[0] : '',
			post: textEl ? textEl.innerText : '',
		});
	});
	return JSON.stringify(out);
})()`

// Browser drives a persistent authenticated browser profile. It
// implements Session for the finder, outreach.DMSender for the sender,
// and the tweet Poster.
type Browser struct {
	cfg config.BrowserConfig
}

// NewBrowser creates a driver over the configured profile directory.
// The profile must be logged in once manually (see Login).
func NewBrowser(cfg config.BrowserConfig) *Browser {
	return &Browser{cfg: cfg}
}

// newTab spins up an allocator and tab for one operation. Each
// operation gets a fresh browser process against the shared profile.
func (b *Browser) newTab(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(b.cfg.UserDataDir),
		chromedp.UserAgent(userAgent),
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}
	return tabCtx, cancel
}

// Login opens a visible browser window on the login page and blocks
// until the operator closes it. Run once to seed the profile.
func (b *Browser) Login(ctx context.Context) error {
	cfg := b.cfg
	cfg.Headless = false
	visible := &Browser{cfg: cfg}

	tabCtx, cancel := visible.newTab(ctx)
	defer cancel()

	log.Printf("[Browser] Log in through the opened window, then close it")
	if err := chromedp.Run(tabCtx, chromedp.Navigate(baseURL+"/login")); err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	<-tabCtx.Done()
	return nil
}

// LoggedIn checks authentication by loading the home timeline and
// inspecting where the platform redirects us.
func (b *Browser) LoggedIn(ctx context.Context) (bool, error) {
	tabCtx, cancel := b.newTab(ctx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout())
	defer cancelTimeout()

	var location string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(baseURL+"/home"),
		chromedp.WaitReady("body"),
		chromedp.Location(&location),
	)
	if err != nil {
		return false, fmt.Errorf("loading home timeline: %w", err)
	}
	return !strings.Contains(location, "login") && !strings.Contains(location, "i/flow"), nil
}

// Search runs one live-search query and extracts candidates from the
// rendered results, scrolling a few times to trigger lazy loading.
func (b *Browser) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	tabCtx, cancel := b.newTab(ctx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout())
	defer cancelTimeout()

	searchURL := fmt.Sprintf("%s/search?q=%s&src=typed_query&f=live", baseURL, url.QueryEscape(query))

	var raw string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible(`[data-testid="tweet"]`, chromedp.ByQuery),
		scrollFeed(3),
		chromedp.Evaluate(extractCandidates, &raw),
	)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	var rows []struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Post     string `json:"post"`
	}
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decoding search results: %w", err)
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		if limit > 0 && len(candidates) >= limit {
			break
		}
		candidates = append(candidates, Candidate{
			Username: r.Username,
			Name:     r.Name,
			PostText: r.Post,
		})
	}

	// Search snippets carry no bio or follower count; fetch the profile
	// for each candidate so qualification has something to chew on.
	for i := range candidates {
		full, err := b.Profile(ctx, candidates[i].Username)
		if err != nil {
			continue
		}
		candidates[i].Bio = full.Bio
		candidates[i].Name = full.Name
		candidates[i].Followers = full.Followers
	}
	return candidates, nil
}

// Profile loads one account page and extracts its public fields.
func (b *Browser) Profile(ctx context.Context, username string) (Candidate, error) {
	tabCtx, cancel := b.newTab(ctx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout())
	defer cancelTimeout()

	var name, bio, followersText string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(baseURL+"/"+strings.TrimPrefix(username, "@")),
		chromedp.WaitVisible(`[data-testid="UserName"]`, chromedp.ByQuery),
		chromedp.Evaluate(`(document.querySelector('[data-testid="UserName"]') || {innerText: ''}).innerText.split('\n')[0]`, &name),
		chromedp.Evaluate(`(document.querySelector('[data-testid="UserDescription"]') || {innerText: ''}).innerText`, &bio),
		chromedp.Evaluate(`(document.querySelector('a[href$="/verified_followers"] span') || {innerText: '0'}).innerText`, &followersText),
	)
	if err != nil {
		return Candidate{}, fmt.Errorf("loading profile @%s: %w", username, err)
	}

	return Candidate{
		Username:  strings.TrimPrefix(username, "@"),
		Name:      name,
		Bio:       bio,
		Followers: parseFollowerCount(followersText),
	}, nil
}

// SendDM opens the recipient's profile and sends one message through
// the DM composer. A missing message button means the recipient cannot
// be messaged at all.
func (b *Browser) SendDM(ctx context.Context, username, text string) error {
	tabCtx, cancel := b.newTab(ctx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout())
	defer cancelTimeout()

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(baseURL+"/"+strings.TrimPrefix(username, "@")),
		chromedp.WaitVisible(`[data-testid="UserName"]`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("loading profile @%s: %w", username, err)
	}

	// The DM button is absent when the recipient disallows messages
	var nodes []*cdp.Node
	probeCtx, cancelProbe := context.WithTimeout(tabCtx, 10*time.Second)
	err = chromedp.Run(probeCtx,
		chromedp.Nodes(`[data-testid="sendDMFromProfile"]`, &nodes, chromedp.AtLeast(0), chromedp.ByQuery),
	)
	cancelProbe()
	if err != nil || len(nodes) == 0 {
		return fmt.Errorf("@%s has no message button: %w", username, outreach.ErrUnreachable)
	}

	err = chromedp.Run(tabCtx,
		chromedp.Click(`[data-testid="sendDMFromProfile"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`[data-testid="dmComposerTextInput"]`, chromedp.ByQuery),
		chromedp.SendKeys(`[data-testid="dmComposerTextInput"]`, text, chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Click(`[data-testid="dmComposerSendButton"]`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("sending DM to @%s: %w", username, err)
	}
	return nil
}

// PostTweet publishes one post through the compose page.
func (b *Browser) PostTweet(ctx context.Context, text string) error {
	tabCtx, cancel := b.newTab(ctx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout())
	defer cancelTimeout()

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(baseURL+"/compose/tweet"),
		chromedp.WaitVisible(`[data-testid="tweetTextarea_0"]`, chromedp.ByQuery),
		chromedp.SendKeys(`[data-testid="tweetTextarea_0"]`, text, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.Click(`[data-testid="tweetButton"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return fmt.Errorf("posting tweet: %w", err)
	}
	return nil
}

// scrollFeed scrolls the results page n times with short pauses so the
// platform lazy-loads more rows.
func scrollFeed(n int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for i := 0; i < n; i++ {
			if err := chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil).Do(ctx); err != nil {
				return err
			}
			if err := chromedp.Sleep(800 * time.Millisecond).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// parseFollowerCount turns a rendered count like "1,234", "10.5K", or
// "1.2M" into an integer.
func parseFollowerCount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult = 1000
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult = 1000000
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v * mult)
}
