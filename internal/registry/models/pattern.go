package models

import "time"

// Pattern is a user-defined detection trigger. Enabled patterns are matched
// alongside the builtin trigger set (case-insensitive substring).
type Pattern struct {
	ID         string     `json:"id"`
	Pattern    string     `json:"pattern"`
	Label      string     `json:"label,omitempty"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
	DisabledBy *string    `json:"disabled_by,omitempty"`
}

// Enabled reports whether the pattern participates in detection.
func (p *Pattern) Enabled() bool {
	return p.DisabledAt == nil
}

// CreatePatternRequest is the request body for creating a pattern.
type CreatePatternRequest struct {
	Pattern string `json:"pattern"`
	Label   string `json:"label,omitempty"`
}

// ListPatternsRequest holds query parameters for listing patterns.
type ListPatternsRequest struct {
	IncludeDisabled bool
}
