package domain

import (
	"strings"
	"time"
)

// LeadType categorizes how a lead was qualified and which message
// templates apply to it.
type LeadType string

const (
	// LeadSwitcher is already using a competitor link-in-bio tool.
	LeadSwitcher LeadType = "switcher"
	// LeadComplainer posted publicly about problems with their current tool.
	LeadComplainer LeadType = "complainer"
	// LeadCreator is a generic creator with sales or booking language in bio.
	LeadCreator LeadType = "creator"
	// LeadRising is a small-follower account still assembling its toolkit.
	LeadRising LeadType = "rising"
)

// SkipReason explains why a candidate was rejected during discovery.
type SkipReason string

const (
	SkipCompetitor SkipReason = "competitor"
	SkipLowQuality SkipReason = "low_quality"
)

// MessageTemplate is the three-part outreach message assigned to a lead.
type MessageTemplate struct {
	Opener string `json:"opener"`
	Pitch  string `json:"pitch"`
	CTA    string `json:"cta"`
}

// Lead is a qualified prospect discovered by the finder.
type Lead struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	Name         string          `json:"name,omitempty"`
	Bio          string          `json:"bio,omitempty"`
	TweetContext string          `json:"tweet_context,omitempty"`
	Followers    int             `json:"followers"`
	Score        int             `json:"score"`
	LeadType     LeadType        `json:"lead_type"`
	FoundVia     string          `json:"found_via,omitempty"`
	FoundAt      time.Time       `json:"found_at"`
	ProfileURL   string          `json:"profile_url,omitempty"`
	Message      MessageTemplate `json:"suggested_message"`

	// Set when the lead moves buckets.
	ContactedAt *time.Time `json:"contacted_at,omitempty"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	SentText    string     `json:"sent_text,omitempty"`
}

// Key returns the canonical dedupe key for a username.
func Key(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// SkipRecord notes a candidate rejected during a finder run.
type SkipRecord struct {
	Username  string     `json:"username"`
	Reason    SkipReason `json:"reason"`
	SkippedAt time.Time  `json:"skipped_at"`
}

// Ledger is the full lead pipeline state. A username appears in at most
// one of Found, Contacted, or Converted.
type Ledger struct {
	Found     []Lead       `json:"found"`
	Contacted []Lead       `json:"contacted"`
	Converted []Lead       `json:"converted"`
	Skipped   []SkipRecord `json:"skipped"`
}

// SentRecord is one successful DM delivery.
type SentRecord struct {
	Username string    `json:"username"`
	SentAt   time.Time `json:"sent_at"`
}

// FailedRecord is one DM attempt that did not deliver.
type FailedRecord struct {
	Username string    `json:"username"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// DMLog tracks outreach history and the rolling daily counter.
// LastReset is a UTC calendar date in 2006-01-02 form; when it differs
// from the current UTC date the daily counter starts over.
type DMLog struct {
	Sent       []SentRecord   `json:"sent"`
	Failed     []FailedRecord `json:"failed"`
	DailyCount int            `json:"daily_count"`
	LastReset  string         `json:"last_reset"`
}

// TweetHistory tracks content rotation for scheduled posts.
type TweetHistory struct {
	Posted    []time.Time `json:"posted"`
	LastIndex int         `json:"last_index"`
}

// LedgerStats summarizes pipeline counts for status output.
type LedgerStats struct {
	Found     int `json:"found"`
	Contacted int `json:"contacted"`
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
}

// RunSummary is the outcome of one outreach run.
type RunSummary struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
