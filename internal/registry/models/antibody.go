// Package models defines the registry data model.
package models

import "time"

// Origin records how an antibody reached this node.
const (
	OriginLocal   = "local"   // Submitted directly by an agent
	OriginNetwork = "network" // Merged from a network broadcast
	OriginImport  = "import"  // Loaded from a CSV import
)

// DefaultThreatLabel is applied when a submission carries no label.
const DefaultThreatLabel = "Shared"

// Antibody is one registry record: the fingerprint of a detected
// adversarial input together with its provenance.
type Antibody struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	ThreatLabel string    `json:"threat_label"`
	Fingerprint string    `json:"fingerprint"`
	Example     string    `json:"example,omitempty"` // Truncated excerpt of the input
	Verdict     string    `json:"verdict,omitempty"`
	Score       int       `json:"score,omitempty"`
	Origin      string    `json:"origin"`
	Signature   string    `json:"signature,omitempty"` // HMAC over agent, fingerprint, timestamp
	CreatedAt   time.Time `json:"created_at"`
}

// SubmitRequest is the request body for antibody submission.
type SubmitRequest struct {
	AgentID     string `json:"agent_id"`
	Text        string `json:"text"`
	ThreatLabel string `json:"threat_label,omitempty"`
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	Antibody  *Antibody `json:"antibody"`
	Duplicate bool      `json:"duplicate"`
	Verdict   string    `json:"verdict"`
	Reason    string    `json:"reason"`
	Score     int       `json:"score,omitempty"`
}

// MatchRequest asks whether an input's fingerprint is already registered.
type MatchRequest struct {
	Text string `json:"text"`
}

// MatchResult is the response to a match request.
type MatchResult struct {
	Fingerprint string    `json:"fingerprint"`
	Known       bool      `json:"known"`
	Antibody    *Antibody `json:"antibody,omitempty"`
}

// ListRequest holds query parameters for listing antibodies.
type ListRequest struct {
	Page    int
	Limit   int
	AgentID string
	Label   string
	Origin  string
}

// Pagination describes a page of results.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ListResponse is a page of antibodies, newest first.
type ListResponse struct {
	Antibodies []*Antibody `json:"antibodies"`
	Pagination Pagination  `json:"pagination"`
}

// ImportResult reports how a CSV import went.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"` // Malformed or already-known rows
}

// Stats summarizes registry contents.
type Stats struct {
	TotalAntibodies    int            `json:"total_antibodies"`
	UniqueFingerprints int            `json:"unique_fingerprints"`
	Agents             int            `json:"agents"`
	Last24h            int            `json:"last_24h"`
	ByLabel            map[string]int `json:"by_label,omitempty"`
	ByOrigin           map[string]int `json:"by_origin,omitempty"`
}
