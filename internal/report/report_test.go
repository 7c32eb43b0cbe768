package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/autopilot/internal/appdb"
	"github.com/linkhub/autopilot/internal/billing"
	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
)

func testClock() Clock {
	return func() time.Time {
		return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	}
}

func unconfiguredMailer() *Mailer {
	return NewMailer(config.EmailConfig{}, config.AppConfig{Name: "LinkHub"}, testClock())
}

func TestDaily_UnconfiguredReturnsPreview(t *testing.T) {
	m := unconfiguredMailer()

	app := appdb.Stats{TotalUsers: 420, NewUsersToday: 7, ProUsers: 12, TotalLinks: 1800, ClicksToday: 95, ClicksWeek: 610}
	rev := billing.Stats{MRR: 117.5, ActiveSubscriptions: 13, NewCustomersToday: 2}

	res, err := m.Daily(context.Background(), app, rev)
	require.NoError(t, err)

	assert.False(t, res.Sent)
	assert.Contains(t, res.Preview, "LINKHUB DAILY REPORT - Sunday, June 15, 2025")
	assert.Contains(t, res.Preview, "MRR: $117.50")
	assert.Contains(t, res.Preview, "Active Subscriptions: 13")
	assert.Contains(t, res.Preview, "Total Users: 420")
	assert.Contains(t, res.Preview, "Clicks This Week: 610")
}

func TestWeekly_IncludesMonthToDateFigures(t *testing.T) {
	m := unconfiguredMailer()

	app := appdb.Stats{TotalUsers: 420, NewUsersWeek: 31, ProUsers: 12, TotalLinks: 1800, ClicksWeek: 610}
	rev := billing.Stats{MRR: 117.5, RevenueThisMonth: 342, NewCustomersWeek: 5, ChurnedThisMonth: 1}

	res, err := m.Weekly(context.Background(), app, rev)
	require.NoError(t, err)

	assert.False(t, res.Sent)
	assert.Contains(t, res.Preview, "LINKHUB WEEKLY REPORT")
	assert.Contains(t, res.Preview, "Revenue This Month: $342.00")
	assert.Contains(t, res.Preview, "New Customers This Week: 5")
	assert.Contains(t, res.Preview, "Churned This Month: 1")
	assert.Contains(t, res.Preview, "New This Week: 31")
}

func TestLeadList_ShowsTopTenWithOverflow(t *testing.T) {
	m := unconfiguredMailer()

	leads := make([]domain.Lead, 12)
	for i := range leads {
		leads[i] = domain.Lead{
			Username:   "creator" + string(rune('a'+i)),
			Followers:  1000 + i,
			Bio:        "Indie hacker building things",
			ProfileURL: "https://twitter.com/creator" + string(rune('a'+i)),
		}
	}

	res, err := m.LeadList(context.Background(), leads)
	require.NoError(t, err)

	assert.False(t, res.Sent)
	assert.Contains(t, res.Preview, "12 people to DM")
	assert.Contains(t, res.Preview, "#1 @creatora")
	assert.Contains(t, res.Preview, "#10 @creatorj")
	assert.NotContains(t, res.Preview, "#11")
	assert.Contains(t, res.Preview, "...and 2 more")
}

func TestLeadList_TruncatesLongBios(t *testing.T) {
	m := unconfiguredMailer()

	long := ""
	for i := 0; i < 30; i++ {
		long += "growth"
	}
	res, err := m.LeadList(context.Background(), []domain.Lead{{Username: "x", Bio: long}})
	require.NoError(t, err)
	assert.Contains(t, res.Preview, long[:100]+"...")
	assert.NotContains(t, res.Preview, long[:110])
}

func TestLeadList_EmptyIsNoop(t *testing.T) {
	m := unconfiguredMailer()
	res, err := m.LeadList(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Empty(t, res.Preview)
}
