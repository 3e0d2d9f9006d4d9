package config

import (
	"fmt"
	"strings"
	"time"
)

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

var startAtLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseStartAt parses the --start-at value. Naive timestamps are UTC, the
// same zone the CSV loader uses.
func ParseStartAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start_at %q: expected YYYY-MM-DD HH:MM", s)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
