// Package detect implements the threat detection engine for agent inputs.
//
// Detection is substring-based: a builtin trigger set covers common prompt
// injection phrasing, user-defined patterns extend it, and a length heuristic
// flags possible data poisoning. Verdicts are deliberately coarse (clean,
// suspicious, no_input) - the fingerprint, not the verdict, is what the
// network shares.
package detect

import (
	"strings"
)

// Verdict classifies an input.
type Verdict string

const (
	VerdictClean      Verdict = "clean"
	VerdictSuspicious Verdict = "suspicious"
	VerdictNoInput    Verdict = "no_input"
)

// Standard verdict reasons.
const (
	ReasonNoInput   = "No input."
	ReasonInjection = "Prompt injection pattern detected."
	ReasonPoisoning = "Possible data poisoning (very long input)."
	ReasonClean     = "Looks safe."
)

// builtinTriggers are the always-on prompt injection markers.
// Matching is case-insensitive substring containment.
var builtinTriggers = []string{
	"ignore previous",
	"bypass",
	"system:",
	"execute",
	"sudo",
	"delete",
	"rm -rf",
}

// DefaultMaxInputLength is the data poisoning length threshold.
const DefaultMaxInputLength = 1000

// Result is the outcome of evaluating one input.
type Result struct {
	Verdict  Verdict  `json:"verdict"`
	Reason   string   `json:"reason"`
	Score    int      `json:"score"`
	Triggers []string `json:"triggers,omitempty"`
}

// Suspicious reports whether the result flagged the input.
func (r Result) Suspicious() bool {
	return r.Verdict == VerdictSuspicious
}

// Detector evaluates inputs against the builtin trigger set plus any
// user-defined patterns.
type Detector struct {
	patterns       []string
	maxInputLength int
}

// Option configures a Detector.
type Option func(*Detector)

// WithPatterns adds user-defined trigger patterns on top of the builtins.
// Patterns are matched the same way as builtins (case-insensitive substring).
func WithPatterns(patterns []string) Option {
	return func(d *Detector) {
		for _, p := range patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				d.patterns = append(d.patterns, p)
			}
		}
	}
}

// WithMaxInputLength overrides the data poisoning length threshold.
// A zero or negative value disables the length heuristic.
func WithMaxInputLength(n int) Option {
	return func(d *Detector) {
		d.maxInputLength = n
	}
}

// New creates a Detector with the builtin trigger set.
func New(opts ...Option) *Detector {
	d := &Detector{
		patterns:       append([]string(nil), builtinTriggers...),
		maxInputLength: DefaultMaxInputLength,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect evaluates a single input and returns a verdict.
//
// Empty or whitespace-only input is no_input. Any trigger hit makes the
// input suspicious with score = number of matching triggers. Inputs longer
// than the configured threshold are suspicious as possible poisoning.
// Everything else is clean.
func (d *Detector) Detect(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Verdict: VerdictNoInput, Reason: ReasonNoInput}
	}

	low := strings.ToLower(text)

	var hits []string
	for _, trigger := range d.patterns {
		if strings.Contains(low, trigger) {
			hits = append(hits, trigger)
		}
	}

	if len(hits) > 0 {
		return Result{
			Verdict:  VerdictSuspicious,
			Reason:   ReasonInjection,
			Score:    len(hits),
			Triggers: hits,
		}
	}

	if d.maxInputLength > 0 && len(text) > d.maxInputLength {
		return Result{Verdict: VerdictSuspicious, Reason: ReasonPoisoning}
	}

	return Result{Verdict: VerdictClean, Reason: ReasonClean}
}

// BuiltinTriggers returns a copy of the builtin trigger set.
func BuiltinTriggers() []string {
	return append([]string(nil), builtinTriggers...)
}
