package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/autopilot/internal/domain"
)

func TestComposeJoinsPartsAndAppendsURL(t *testing.T) {
	c := NewComposer("https://linkhub.test")

	msg, err := c.Compose(domain.Lead{
		Username: "alice",
		LeadType: domain.LeadSwitcher,
	})
	require.NoError(t, err)

	assert.Contains(t, msg, "Saw you're using Linktree")
	assert.Contains(t, msg, "No monthly fees ever.")
	assert.Contains(t, msg, "set it up in 2 min")
	assert.True(t, len(msg) > 0 && msg[len(msg)-len("https://linkhub.test"):] == "https://linkhub.test")
}

func TestComposeRendersLiquidVariables(t *testing.T) {
	c := NewComposer("https://linkhub.test")

	msg, err := c.Compose(domain.Lead{
		Username: "bob",
		LeadType: domain.LeadCreator,
	})
	require.NoError(t, err)

	assert.Contains(t, msg, "Better than Linktree")
	assert.NotContains(t, msg, "{{")
}

func TestComposePersonalizesOpenerFromBio(t *testing.T) {
	c := NewComposer("https://linkhub.test")

	tests := []struct {
		bio  string
		want string
	}{
		{"digital artist from berlin", "Love your art!"},
		{"music producer", "Love your music!"},
		{"fitness coach", "Love what you're building!"},
		{"founder and ceo", "Respect the hustle!"},
		{"just a person", "Love your content!"},
	}

	for _, tt := range tests {
		msg, err := c.Compose(domain.Lead{
			Username: "x",
			Bio:      tt.bio,
			LeadType: domain.LeadCreator,
		})
		require.NoError(t, err)
		assert.Contains(t, msg, tt.want, "bio %q", tt.bio)
	}
}

func TestComposeUsesExplicitTemplateOverTypeDefault(t *testing.T) {
	c := NewComposer("https://linkhub.test")

	msg, err := c.Compose(domain.Lead{
		Username: "carol",
		LeadType: domain.LeadSwitcher,
		Message: domain.MessageTemplate{
			Opener: "Custom opener",
			Pitch:  "Custom pitch",
			CTA:    "Custom cta",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "Custom opener")
	assert.NotContains(t, msg, "Linktree")
}

func TestTemplateForUnknownTypeFallsBack(t *testing.T) {
	tpl := TemplateFor(domain.LeadType("mystery"))
	assert.Equal(t, messageTemplates[domain.LeadCreator], tpl)
}
