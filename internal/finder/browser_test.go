package finder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFollowerCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"842", 842},
		{"1,234", 1234},
		{"10.5K", 10500},
		{"3k", 3000},
		{"1.2M", 1200000},
		{"", 0},
		{"junk", 0},
		{" 2,500 ", 2500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFollowerCount(tt.in), "input %q", tt.in)
	}
}
