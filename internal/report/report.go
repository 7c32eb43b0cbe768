// Package report renders and delivers the operator email reports.
package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"

	"github.com/linkhub/autopilot/internal/appdb"
	"github.com/linkhub/autopilot/internal/billing"
	"github.com/linkhub/autopilot/internal/config"
	"github.com/linkhub/autopilot/internal/domain"
)

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time

// Result records whether a report went out. When email is not
// configured the rendered text body comes back as Preview so the
// operator still sees the numbers in the logs.
type Result struct {
	Sent    bool
	Preview string
}

// Mailer renders reports and delivers them through AWS SES.
type Mailer struct {
	cfg    config.EmailConfig
	app    config.AppConfig
	client *sesv2.Client
	engine *liquid.Engine
	now    Clock
}

// NewMailer creates a report mailer. The SES client is only
// initialized when credentials are present; without them every report
// falls back to a logged preview.
func NewMailer(emailCfg config.EmailConfig, appCfg config.AppConfig, now Clock) *Mailer {
	if now == nil {
		now = time.Now
	}
	m := &Mailer{cfg: emailCfg, app: appCfg, engine: liquid.NewEngine(), now: now}

	if emailCfg.Configured() && emailCfg.AccessKey != "" && emailCfg.SecretKey != "" {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(emailCfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(emailCfg.AccessKey, emailCfg.SecretKey, "")),
		)
		if err != nil {
			log.Printf("[Report] Warning: failed to initialize AWS config: %v", err)
		} else {
			m.client = sesv2.NewFromConfig(cfg)
		}
	}
	return m
}

// Daily sends the morning snapshot: revenue, users, activity.
func (m *Mailer) Daily(ctx context.Context, app appdb.Stats, rev billing.Stats) (Result, error) {
	date := m.now().UTC().Format("Monday, January 2, 2006")
	bindings := m.bindings(app, rev)
	bindings["date"] = date

	text, err := m.render(dailyTextTemplate, bindings)
	if err != nil {
		return Result{}, err
	}
	html, err := m.render(dailyHTMLTemplate, bindings)
	if err != nil {
		return Result{}, err
	}

	subject := fmt.Sprintf("%s Daily Report - %s", m.app.Name, date)
	return m.deliver(ctx, subject, text, html)
}

// Weekly sends the Sunday summary with month-to-date revenue and churn.
func (m *Mailer) Weekly(ctx context.Context, app appdb.Stats, rev billing.Stats) (Result, error) {
	bindings := m.bindings(app, rev)
	bindings["generated"] = m.now().UTC().Format(time.RFC1123)

	text, err := m.render(weeklyTextTemplate, bindings)
	if err != nil {
		return Result{}, err
	}

	subject := fmt.Sprintf("%s Weekly Report", m.app.Name)
	return m.deliver(ctx, subject, text, "")
}

// LeadList mails the freshly found leads after a finder run. The body
// shows the top ten; the CSV on disk has the full set.
func (m *Mailer) LeadList(ctx context.Context, leads []domain.Lead) (Result, error) {
	if len(leads) == 0 {
		return Result{}, nil
	}

	shown := leads
	if len(shown) > 10 {
		shown = shown[:10]
	}
	rows := make([]map[string]interface{}, 0, len(shown))
	for i, lead := range shown {
		bio := lead.Bio
		if len(bio) > 100 {
			bio = bio[:100] + "..."
		}
		rows = append(rows, map[string]interface{}{
			"rank":      i + 1,
			"username":  lead.Username,
			"followers": lead.Followers,
			"bio":       bio,
			"url":       lead.ProfileURL,
		})
	}

	bindings := map[string]interface{}{
		"count": len(leads),
		"leads": rows,
		"more":  len(leads) - len(shown),
	}
	text, err := m.render(leadListTextTemplate, bindings)
	if err != nil {
		return Result{}, err
	}
	html, err := m.render(leadListHTMLTemplate, bindings)
	if err != nil {
		return Result{}, err
	}

	subject := fmt.Sprintf("%d Leads Found - Auto-DMing now", len(leads))
	return m.deliver(ctx, subject, text, html)
}

func (m *Mailer) bindings(app appdb.Stats, rev billing.Stats) map[string]interface{} {
	return map[string]interface{}{
		"app_name":             m.app.Name,
		"mrr":                  fmt.Sprintf("%.2f", rev.MRR),
		"revenue_month":        fmt.Sprintf("%.2f", rev.RevenueThisMonth),
		"active_subscriptions": rev.ActiveSubscriptions,
		"new_customers_today":  rev.NewCustomersToday,
		"new_customers_week":   rev.NewCustomersWeek,
		"churned_month":        rev.ChurnedThisMonth,
		"total_users":          app.TotalUsers,
		"new_users_today":      app.NewUsersToday,
		"new_users_week":       app.NewUsersWeek,
		"pro_users":            app.ProUsers,
		"total_links":          app.TotalLinks,
		"clicks_today":         app.ClicksToday,
		"clicks_week":          app.ClicksWeek,
	}
}

func (m *Mailer) render(tpl string, bindings map[string]interface{}) (string, error) {
	out, err := m.engine.ParseAndRenderString(tpl, bindings)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

// deliver sends through SES, or logs the text body when email is not
// configured so a bare install still surfaces the report.
func (m *Mailer) deliver(ctx context.Context, subject, text, html string) (Result, error) {
	if m.client == nil {
		log.Printf("[Report] Email not configured. Would have sent %q:\n%s", subject, text)
		return Result{Sent: false, Preview: text}, nil
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s Autopilot <%s>", m.app.Name, m.cfg.From)),
		Destination:      &types.Destination{ToAddresses: []string{m.cfg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if html != "" {
		input.Content.Simple.Body.Html = &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")}
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("[Report] Failed to send %q: %v", subject, err)
		return Result{Sent: false, Preview: text}, fmt.Errorf("send report: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("[Report] Sent %q to %s (id: %s)", subject, m.cfg.To, messageID)
	return Result{Sent: true}, nil
}
