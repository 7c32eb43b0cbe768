// Package qualify scores candidate accounts and filters out competitors
// and low-value prospects. Classification is a pure function over the
// candidate's bio and triggering post text; persistence and dedup are the
// caller's job.
package qualify

import "strings"

// Competitor brand names and marketing-language phrases. A match on
// either input text disqualifies the candidate outright, regardless of
// score. Linktree itself is deliberately absent: accounts mentioning the
// incumbent are switcher prospects, not rivals.
var competitorTerms = []string{
	"beacons.ai",
	"stan.store",
	"stan store",
	"carrd.co",
	"milkshake app",
	"bio.link",
	"taplink",
	"lnk.bio",
	"snipfeed",
	"shorby",
	"campsite.bio",
	"founder of",
	"co-founder of",
	"cofounder of",
	"affiliate",
	"promo code",
	"use my code",
	"discount code",
	"brand partnerships",
	"sponsored post",
}

// Each matched term adds scoreIncrement.
var goodLeadTerms = []string{
	"artist",
	"illustrator",
	"musician",
	"producer",
	"singer",
	"photographer",
	"designer",
	"writer",
	"creator",
	"streamer",
	"coach",
	"trainer",
	"freelance",
	"for hire",
	"available for",
	"etsy",
	"handmade",
	"portfolio",
	"my shop",
	"new song",
	"new video",
}

// Especially strong buying signals add strongBonus each.
var strongSignalTerms = []string{
	"commissions open",
	"open for commissions",
	"book me",
	"hire me",
	"booking open",
	"small business",
	"small biz",
	"dm me",
	"dms open",
	"dms are open",
}

// Growth-hacker jargon and sign-up CTAs subtract penalty each.
var negativeTerms = []string{
	"growth hacking",
	"growth hacker",
	"10x your",
	"passive income",
	"monetize your",
	"sign up now",
	"sign up here",
	"join now",
	"follow for follow",
	"f4f",
	"link below to join",
	"limited spots",
}

const (
	scoreIncrement = 5
	strongBonus    = 10
	penalty        = 8

	// Human-facing quality bands, for reporting only.
	warmThreshold = 15
	hotThreshold  = 30
)

// Result is the qualifier's verdict on one candidate.
type Result struct {
	Competitor bool
	Score      int
}

// Accepted reports whether the candidate survives filtering.
// Competitors fail closed; a negative score is low quality.
func (r Result) Accepted() bool {
	return !r.Competitor && r.Score >= 0
}

// Band names the quality tier for reports.
func (r Result) Band() string {
	switch {
	case r.Score >= hotThreshold:
		return "hot"
	case r.Score >= warmThreshold:
		return "warm"
	default:
		return "cold"
	}
}

// Classify scores a candidate from its bio and triggering post text.
// Either input may be empty.
func Classify(bio, post string) Result {
	bio = strings.ToLower(bio)
	post = strings.ToLower(post)

	for _, term := range competitorTerms {
		if strings.Contains(bio, term) || strings.Contains(post, term) {
			return Result{Competitor: true}
		}
	}

	score := 0
	for _, term := range goodLeadTerms {
		if strings.Contains(bio, term) || strings.Contains(post, term) {
			score += scoreIncrement
		}
	}
	for _, term := range strongSignalTerms {
		if strings.Contains(bio, term) || strings.Contains(post, term) {
			score += strongBonus
		}
	}
	for _, term := range negativeTerms {
		if strings.Contains(bio, term) || strings.Contains(post, term) {
			score -= penalty
		}
	}

	return Result{Score: score}
}
