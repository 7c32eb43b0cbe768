// Package outreach composes personalized direct messages and delivers
// them to qualified leads under a daily cap and a fixed inter-send delay.
package outreach

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/linkhub/autopilot/internal/domain"
)

// Templates per lead type. Liquid variables available: app_name, app_url.
var messageTemplates = map[domain.LeadType]domain.MessageTemplate{
	domain.LeadSwitcher: {
		Opener: "Hey! Saw you're using Linktree",
		Pitch:  "I built a free alternative with unlimited links + analytics. No monthly fees ever.",
		CTA:    "Would you be down to try it? I'll personally help you set it up in 2 min.",
	},
	domain.LeadComplainer: {
		Opener: "Saw your post about link-in-bio tools",
		Pitch:  "I felt the same way so I built my own - completely free, no catch.",
		CTA:    "Want me to send you the link? Happy to help migrate your stuff over.",
	},
	domain.LeadCreator: {
		Opener: "Love your content!",
		Pitch:  "Quick Q - I made a free link-in-bio tool for creators. Better than {{ incumbent }}, $0/month.",
		CTA:    "Would you try it out and give me feedback? Takes 30 seconds to set up.",
	},
	domain.LeadRising: {
		Opener: "Hey! Your content deserves more reach",
		Pitch:  "I built a free link-in-bio tool specifically for growing creators. No fees until you're making money (and even then it's free lol)",
		CTA:    "Want to check it out?",
	},
}

// TemplateFor returns the message template for a lead type, falling back
// to the generic creator template for unknown types.
func TemplateFor(t domain.LeadType) domain.MessageTemplate {
	if tpl, ok := messageTemplates[t]; ok {
		return tpl
	}
	return messageTemplates[domain.LeadCreator]
}

// Composer renders outreach messages from lead records.
type Composer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
	appURL string
}

// NewComposer creates a message composer targeting the given app URL.
func NewComposer(appURL string) *Composer {
	return &Composer{
		engine: liquid.NewEngine(),
		appURL: appURL,
	}
}

func (c *Composer) render(src string, bindings map[string]interface{}) (string, error) {
	var tpl *liquid.Template
	if cached, ok := c.cache.Load(src); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := c.engine.ParseString(src)
		if err != nil {
			return "", fmt.Errorf("parsing template: %w", err)
		}
		c.cache.Store(src, parsed)
		tpl = parsed
	}

	out, err := tpl.Render(bindings)
	if err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return string(out), nil
}

// Compose builds the full DM text for a lead: opener, pitch, and CTA
// joined by blank lines with the app URL appended, the opener swapped
// for a domain-specific one when the bio matches a niche keyword set.
func (c *Composer) Compose(lead domain.Lead) (string, error) {
	tpl := lead.Message
	if tpl == (domain.MessageTemplate{}) {
		tpl = TemplateFor(lead.LeadType)
	}

	bindings := map[string]interface{}{
		"incumbent": "Linktree",
		"username":  lead.Username,
		"name":      lead.Name,
	}

	parts := make([]string, 0, 3)
	for _, src := range []string{tpl.Opener, tpl.Pitch, tpl.CTA} {
		rendered, err := c.render(src, bindings)
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}

	message := strings.Join(parts, "\n\n")
	message += "\n\n" + c.appURL
	return personalize(message, lead.Bio), nil
}

// personalize swaps the generic compliment for a niche-specific one when
// the bio signals a recognizable domain.
func personalize(message, bio string) string {
	if bio == "" {
		return message
	}
	const generic = "Love your content!"
	b := strings.ToLower(bio)
	switch {
	case strings.Contains(b, "artist") || strings.Contains(b, "art"):
		return strings.Replace(message, generic, "Love your art!", 1)
	case strings.Contains(b, "music") || strings.Contains(b, "producer") || strings.Contains(b, "singer"):
		return strings.Replace(message, generic, "Love your music!", 1)
	case strings.Contains(b, "fitness") || strings.Contains(b, "coach"):
		return strings.Replace(message, generic, "Love what you're building!", 1)
	case strings.Contains(b, "business") || strings.Contains(b, "founder") || strings.Contains(b, "ceo"):
		return strings.Replace(message, generic, "Respect the hustle!", 1)
	}
	return message
}
