// Package ledger provides the persistent lead pipeline store.
//
// All state lives in flat JSON files under a single data directory. A
// single Store guards every read-modify-write with a mutex and persists
// through an atomic rename, so a crash mid-write never leaves a torn
// file behind.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkhub/autopilot/internal/domain"
)

const (
	leadsFile  = "leads.json"
	dmLogFile  = "dm-log.json"
	tweetsFile = "tweet-history.json"
)

// Clock supplies the current time. Injected so daily-counter resets and
// timestamps are testable.
type Clock func() time.Time

// Store is the single writer for all pipeline state.
type Store struct {
	dir string
	mu  sync.Mutex
	now Clock

	ledger domain.Ledger
	dmLog  domain.DMLog
	tweets domain.TweetHistory
}

// Open loads (or initializes) the store rooted at dir.
// Missing or corrupt files start as empty state rather than failing.
func Open(dir string, now Clock) (*Store, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{dir: dir, now: now}
	loadJSON(filepath.Join(dir, leadsFile), &s.ledger)
	loadJSON(filepath.Join(dir, dmLogFile), &s.dmLog)
	loadJSON(filepath.Join(dir, tweetsFile), &s.tweets)
	s.resetDailyCountLocked()
	return s, nil
}

// Ledger returns a snapshot of the pipeline state.
func (s *Store) Ledger() domain.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := domain.Ledger{
		Found:     append([]domain.Lead(nil), s.ledger.Found...),
		Contacted: append([]domain.Lead(nil), s.ledger.Contacted...),
		Converted: append([]domain.Lead(nil), s.ledger.Converted...),
		Skipped:   append([]domain.SkipRecord(nil), s.ledger.Skipped...),
	}
	return out
}

// Stats returns pipeline counts.
func (s *Store) Stats() domain.LedgerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.LedgerStats{
		Found:     len(s.ledger.Found),
		Contacted: len(s.ledger.Contacted),
		Converted: len(s.ledger.Converted),
		Skipped:   len(s.ledger.Skipped),
	}
}

// Known reports whether a username already exists anywhere in the
// pipeline, case-insensitively.
func (s *Store) Known(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.knownLocked(username)
}

func (s *Store) knownLocked(username string) bool {
	key := domain.Key(username)
	for _, bucket := range [][]domain.Lead{s.ledger.Found, s.ledger.Contacted, s.ledger.Converted} {
		for _, l := range bucket {
			if domain.Key(l.Username) == key {
				return true
			}
		}
	}
	for _, r := range s.ledger.Skipped {
		if domain.Key(r.Username) == key {
			return true
		}
	}
	return false
}

// AddFound appends newly qualified leads, skipping any username already
// present in the pipeline, and persists. Returns the number stored.
func (s *Store) AddFound(leads []domain.Lead) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, l := range leads {
		if s.knownLocked(l.Username) {
			continue
		}
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		if l.FoundAt.IsZero() {
			l.FoundAt = s.now().UTC()
		}
		s.ledger.Found = append(s.ledger.Found, l)
		added++
	}
	return added, s.saveLedgerLocked()
}

// AddSkipped appends skip records for rejected candidates and persists.
func (s *Store) AddSkipped(records []domain.SkipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r.SkippedAt.IsZero() {
			r.SkippedAt = s.now().UTC()
		}
		s.ledger.Skipped = append(s.ledger.Skipped, r)
	}
	return s.saveLedgerLocked()
}

// NextBatch returns up to n leads from the front of the found bucket.
func (s *Store) NextBatch(n int) []domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.ledger.Found) {
		n = len(s.ledger.Found)
	}
	out := make([]domain.Lead, n)
	copy(out, s.ledger.Found[:n])
	return out
}

// Find returns the lead for a username from any bucket.
func (s *Store) Find(username string) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.Key(username)
	for _, bucket := range [][]domain.Lead{s.ledger.Found, s.ledger.Contacted, s.ledger.Converted} {
		for _, l := range bucket {
			if domain.Key(l.Username) == key {
				return l, true
			}
		}
	}
	return domain.Lead{}, false
}

// MarkContacted moves a lead from found to contacted, recording the
// text that was sent, and persists.
func (s *Store) MarkContacted(username, sentText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.Key(username)
	for i, l := range s.ledger.Found {
		if domain.Key(l.Username) != key {
			continue
		}
		now := s.now().UTC()
		l.ContactedAt = &now
		l.SentText = sentText
		s.ledger.Found = append(s.ledger.Found[:i], s.ledger.Found[i+1:]...)
		s.ledger.Contacted = append(s.ledger.Contacted, l)
		return s.saveLedgerLocked()
	}
	return fmt.Errorf("lead %q not in found bucket", username)
}

// MarkConverted moves a lead from contacted to converted and persists.
func (s *Store) MarkConverted(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.Key(username)
	for i, l := range s.ledger.Contacted {
		if domain.Key(l.Username) != key {
			continue
		}
		now := s.now().UTC()
		l.ConvertedAt = &now
		s.ledger.Contacted = append(s.ledger.Contacted[:i], s.ledger.Contacted[i+1:]...)
		s.ledger.Converted = append(s.ledger.Converted, l)
		return s.saveLedgerLocked()
	}
	return fmt.Errorf("lead %q not in contacted bucket", username)
}

// RemoveFound drops a lead from the found bucket without contacting it.
// Used when a recipient turns out to be unreachable.
func (s *Store) RemoveFound(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.Key(username)
	for i, l := range s.ledger.Found {
		if domain.Key(l.Username) != key {
			continue
		}
		s.ledger.Found = append(s.ledger.Found[:i], s.ledger.Found[i+1:]...)
		return s.saveLedgerLocked()
	}
	return nil
}

// DMLog returns a snapshot of the outreach log with the daily counter
// reset applied if the UTC date has rolled over.
func (s *Store) DMLog() domain.DMLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetDailyCountLocked()
	out := domain.DMLog{
		Sent:       append([]domain.SentRecord(nil), s.dmLog.Sent...),
		Failed:     append([]domain.FailedRecord(nil), s.dmLog.Failed...),
		DailyCount: s.dmLog.DailyCount,
		LastReset:  s.dmLog.LastReset,
	}
	return out
}

// RecordSent logs a successful DM, bumps the daily counter, and persists.
func (s *Store) RecordSent(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetDailyCountLocked()
	s.dmLog.Sent = append(s.dmLog.Sent, domain.SentRecord{
		Username: username,
		SentAt:   s.now().UTC(),
	})
	s.dmLog.DailyCount++
	return s.saveDMLogLocked()
}

// RecordFailed logs a failed DM attempt and persists. Failures do not
// count against the daily limit.
func (s *Store) RecordFailed(username string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	s.dmLog.Failed = append(s.dmLog.Failed, domain.FailedRecord{
		Username: username,
		Error:    msg,
		FailedAt: s.now().UTC(),
	})
	return s.saveDMLogLocked()
}

func (s *Store) resetDailyCountLocked() {
	today := s.now().UTC().Format("2006-01-02")
	if s.dmLog.LastReset != today {
		s.dmLog.DailyCount = 0
		s.dmLog.LastReset = today
	}
}

// TweetHistory returns a snapshot of the posting history.
func (s *Store) TweetHistory() domain.TweetHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.TweetHistory{
		Posted:    append([]time.Time(nil), s.tweets.Posted...),
		LastIndex: s.tweets.LastIndex,
	}
}

// NextTweetIndex advances the rotation over a content library of the
// given size, wrapping around and clearing the posted log when the
// library has been exhausted. Persists the new position.
func (s *Store) NextTweetIndex(librarySize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if librarySize <= 0 {
		return 0, fmt.Errorf("empty content library")
	}
	idx := s.tweets.LastIndex % librarySize
	s.tweets.LastIndex = idx + 1
	if len(s.tweets.Posted) >= librarySize {
		s.tweets.Posted = nil
	}
	s.tweets.Posted = append(s.tweets.Posted, s.now().UTC())
	return idx, s.saveTweetsLocked()
}

func (s *Store) saveLedgerLocked() error {
	return saveJSON(filepath.Join(s.dir, leadsFile), s.ledger)
}

func (s *Store) saveDMLogLocked() error {
	return saveJSON(filepath.Join(s.dir, dmLogFile), s.dmLog)
}

func (s *Store) saveTweetsLocked() error {
	return saveJSON(filepath.Join(s.dir, tweetsFile), s.tweets)
}

// saveJSON writes data to a temp file in the same directory and renames
// it over the target, so readers never observe a partial write.
func saveJSON(path string, data interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// loadJSON fills target from a JSON file. Absent or unreadable files
// leave target at its zero value.
func loadJSON(path string, target interface{}) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()
	_ = json.NewDecoder(file).Decode(target)
}
