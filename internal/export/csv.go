// Package export writes lead lists to dated CSV files for manual
// outreach workflows.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/linkhub/autopilot/internal/domain"
)

var header = []string{"Username", "Name", "Followers", "Bio", "Lead Type", "Profile URL", "Suggested Opener"}

// LeadsCSV writes one row per lead to exports/leads-YYYY-MM-DD.csv and
// returns the file path. Quoting follows RFC 4180; embedded quotes in
// bios come back intact on re-parse.
func LeadsCSV(dir string, leads []domain.Lead, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("leads-%s.csv", now.UTC().Format("2006-01-02")))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, lead := range leads {
		row := []string{
			"@" + lead.Username,
			lead.Name,
			strconv.Itoa(lead.Followers),
			lead.Bio,
			string(lead.LeadType),
			lead.ProfileURL,
			lead.Message.Opener,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}
