// Package appdb reads aggregate usage stats from the web app's Postgres
// database. The autopilot never writes to this database.
package appdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/linkhub/autopilot/internal/config"
)

// Stats is a snapshot of app usage for reports.
type Stats struct {
	TotalUsers    int `json:"total_users"`
	NewUsersToday int `json:"new_users_today"`
	NewUsersWeek  int `json:"new_users_week"`
	TotalLinks    int `json:"total_links"`
	ClicksToday   int `json:"clicks_today"`
	ClicksWeek    int `json:"clicks_week"`
	ProUsers      int `json:"pro_users"`
}

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time

// Reader fetches stats from the app database.
type Reader struct {
	db  *sql.DB
	cfg config.AppDBConfig
	now Clock
}

// Open connects to the app database. The connection is lazy; the first
// query will surface a bad DSN.
func Open(cfg config.AppDBConfig, now Clock) (*Reader, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open app db: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if now == nil {
		now = time.Now
	}
	return &Reader{db: db, cfg: cfg, now: now}, nil
}

// NewReader wraps an existing connection. Used by tests.
func NewReader(db *sql.DB, cfg config.AppDBConfig, now Clock) *Reader {
	if now == nil {
		now = time.Now
	}
	return &Reader{db: db, cfg: cfg, now: now}
}

// Close releases the underlying connection pool.
func (r *Reader) Close() error { return r.db.Close() }

// Fetch gathers usage counts. Reports must still go out when the app
// database is down, so any query error returns zeroed stats along with
// the error for the caller to log.
func (r *Reader) Fetch(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout())
	defer cancel()

	now := r.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfWeek := startOfDay.AddDate(0, 0, -7)

	var s Stats
	queries := []struct {
		dst   *int
		query string
		args  []interface{}
	}{
		{&s.TotalUsers, `SELECT COUNT(*) FROM users`, nil},
		{&s.NewUsersToday, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, []interface{}{startOfDay}},
		{&s.NewUsersWeek, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, []interface{}{startOfWeek}},
		{&s.TotalLinks, `SELECT COUNT(*) FROM links`, nil},
		{&s.ClicksToday, `SELECT COUNT(*) FROM clicks WHERE clicked_at >= $1`, []interface{}{startOfDay}},
		{&s.ClicksWeek, `SELECT COUNT(*) FROM clicks WHERE clicked_at >= $1`, []interface{}{startOfWeek}},
		{&s.ProUsers, `SELECT COUNT(*) FROM users WHERE plan = 'pro'`, nil},
	}
	for _, q := range queries {
		if err := r.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			log.Printf("[AppDB] stats query failed: %v", err)
			return Stats{}, fmt.Errorf("app stats: %w", err)
		}
	}
	return s, nil
}
