// Package service implements the registry business logic: the
// detect -> fingerprint -> share loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mercury-net/mercury/internal/antibody"
	"github.com/mercury-net/mercury/internal/cache"
	"github.com/mercury-net/mercury/internal/detect"
	"github.com/mercury-net/mercury/internal/logging"
	"github.com/mercury-net/mercury/internal/metrics"
	"github.com/mercury-net/mercury/internal/registry/models"
	"github.com/mercury-net/mercury/internal/registry/repository"
)

var (
	ErrEmptyInput         = errors.New("input text is empty")
	ErrAgentRequired      = errors.New("agent_id is required")
	ErrRateLimited        = errors.New("submission rate limit exceeded")
	ErrInvalidFingerprint = errors.New("malformed fingerprint")
	ErrInvalidPattern     = errors.New("pattern must be at least 3 characters")
)

// patternCacheTTL bounds how stale the active pattern set may be.
const patternCacheTTL = 30 * time.Second

// Broadcaster publishes a locally registered antibody to the network.
type Broadcaster interface {
	Broadcast(ctx context.Context, a *models.Antibody) error
}

// Options configures registry behavior.
type Options struct {
	RecentLimit    int
	ExampleMaxLen  int
	MaxInputLength int
}

func (o *Options) withDefaults() {
	if o.RecentLimit <= 0 {
		o.RecentLimit = 15
	}
	if o.ExampleMaxLen <= 0 {
		o.ExampleMaxLen = 200
	}
	if o.MaxInputLength == 0 {
		o.MaxInputLength = detect.DefaultMaxInputLength
	}
}

// Service coordinates detection, fingerprinting, storage and sharing.
type Service struct {
	repo        repository.Repository
	dedup       cache.DedupCache
	limiter     cache.RateLimiter
	broadcaster Broadcaster
	signer      *antibody.RecordSigner
	logger      *logging.Logger
	opts        Options

	patternMu       sync.Mutex
	cachedPatterns  []string
	patternLoadedAt time.Time
}

// New creates a registry service. broadcaster may be nil when network
// sharing is disabled.
func New(
	repo repository.Repository,
	dedup cache.DedupCache,
	limiter cache.RateLimiter,
	broadcaster Broadcaster,
	signer *antibody.RecordSigner,
	logger *logging.Logger,
	opts Options,
) *Service {
	opts.withDefaults()
	return &Service{
		repo:        repo,
		dedup:       dedup,
		limiter:     limiter,
		broadcaster: broadcaster,
		signer:      signer,
		logger:      logger,
		opts:        opts,
	}
}

// Detect evaluates an input without persisting anything.
func (s *Service) Detect(ctx context.Context, text string) (detect.Result, error) {
	start := time.Now()
	defer func() {
		metrics.DetectionDuration.Observe(time.Since(start).Seconds())
	}()

	detector, err := s.detector(ctx)
	if err != nil {
		return detect.Result{}, err
	}

	result := detector.Detect(text)
	metrics.DetectionsTotal.WithLabelValues(string(result.Verdict)).Inc()
	return result, nil
}

// Submit runs the full loop for a single input: detect, fingerprint,
// dedup, store, broadcast. A repeat submission of a fingerprint the agent
// already registered is reported as a duplicate, not an error.
func (s *Service) Submit(ctx context.Context, req *models.SubmitRequest) (*models.SubmitResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}
	if req.AgentID == "" {
		return nil, ErrAgentRequired
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, req.AgentID)
		if err != nil {
			// Rate limiter failure must not block submissions
			s.logger.WarnContext(ctx, "rate limiter unavailable", logging.Error(err))
		} else if !allowed {
			metrics.AntibodiesSubmitted.WithLabelValues("rejected").Inc()
			return nil, ErrRateLimited
		}
	}

	detection, err := s.Detect(ctx, req.Text)
	if err != nil {
		return nil, err
	}

	fingerprint := antibody.Fingerprint(req.Text)
	label := req.ThreatLabel
	if label == "" {
		label = models.DefaultThreatLabel
	}

	// Dedup cache short-circuits the common repeat case
	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, s.dedupKey(req.AgentID, fingerprint))
		if err != nil {
			s.logger.WarnContext(ctx, "dedup cache unavailable", logging.Error(err))
		} else if seen {
			return s.duplicateResult(ctx, fingerprint, detection)
		}
	}

	now := time.Now().UTC()
	a := &models.Antibody{
		AgentID:     req.AgentID,
		ThreatLabel: label,
		Fingerprint: fingerprint,
		Example:     truncate(req.Text, s.opts.ExampleMaxLen),
		Verdict:     string(detection.Verdict),
		Score:       detection.Score,
		Origin:      models.OriginLocal,
		CreatedAt:   now,
	}
	if s.signer != nil {
		a.Signature = s.signer.Sign(a.AgentID, a.Fingerprint, a.CreatedAt)
	}

	storeStart := time.Now()
	err = s.repo.CreateAntibody(ctx, a)
	metrics.StorageDuration.Observe(time.Since(storeStart).Seconds())
	if err != nil {
		if errors.Is(err, repository.ErrAntibodyExists) {
			s.markDedup(ctx, req.AgentID, fingerprint)
			return s.duplicateResult(ctx, fingerprint, detection)
		}
		metrics.StorageErrors.Inc()
		return nil, err
	}

	s.markDedup(ctx, req.AgentID, fingerprint)
	metrics.AntibodiesSubmitted.WithLabelValues("created").Inc()

	if s.broadcaster != nil {
		// Best-effort fan-out; a failed broadcast never fails the submission
		if err := s.broadcaster.Broadcast(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "failed to broadcast antibody",
				logging.Fingerprint(antibody.Short(fingerprint)),
				logging.Error(err))
		}
	}

	s.logger.InfoContext(ctx, "antibody registered",
		logging.AgentID(a.AgentID),
		logging.Fingerprint(antibody.Short(fingerprint)),
		logging.Verdict(a.Verdict))

	return &models.SubmitResult{
		Antibody:  a,
		Duplicate: false,
		Verdict:   string(detection.Verdict),
		Reason:    detection.Reason,
		Score:     detection.Score,
	}, nil
}

// MergeRemote stores an antibody received from the network. It is
// idempotent: an already-known record is silently skipped.
func (s *Service) MergeRemote(ctx context.Context, a *models.Antibody) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Origin = models.OriginNetwork
	a.Example = truncate(a.Example, s.opts.ExampleMaxLen)
	if s.signer != nil {
		a.Signature = s.signer.Sign(a.AgentID, a.Fingerprint, a.CreatedAt)
	}

	err := s.repo.CreateAntibody(ctx, a)
	if err != nil {
		if errors.Is(err, repository.ErrAntibodyExists) {
			return nil
		}
		metrics.StorageErrors.Inc()
		return err
	}

	s.markDedup(ctx, a.AgentID, a.Fingerprint)
	metrics.AntibodiesMerged.Inc()
	return nil
}

// Match reports whether an input's fingerprint is already registered.
func (s *Service) Match(ctx context.Context, text string) (*models.MatchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	fingerprint := antibody.Fingerprint(text)
	result := &models.MatchResult{Fingerprint: fingerprint}

	a, err := s.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, repository.ErrAntibodyNotFound) {
			return result, nil
		}
		return nil, err
	}

	result.Known = true
	result.Antibody = a
	return result, nil
}

// Get retrieves the registry record for a fingerprint.
func (s *Service) Get(ctx context.Context, fingerprint string) (*models.Antibody, error) {
	if !antibody.IsValid(fingerprint) {
		return nil, ErrInvalidFingerprint
	}
	return s.repo.GetByFingerprint(ctx, fingerprint)
}

// List retrieves a page of antibodies, newest first. A zero limit uses the
// configured recent-listing default.
func (s *Service) List(ctx context.Context, req *models.ListRequest) (*models.ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = s.opts.RecentLimit
	}
	if req.Limit > 1000 {
		req.Limit = 1000
	}

	antibodies, total, err := s.repo.ListAntibodies(ctx, req)
	if err != nil {
		return nil, err
	}

	totalPages := (total + req.Limit - 1) / req.Limit

	return &models.ListResponse{
		Antibodies: antibodies,
		Pagination: models.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// RecentLimit returns the configured default page size for recent listings.
func (s *Service) RecentLimit() int {
	return s.opts.RecentLimit
}

// Stats summarizes registry contents.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.Stats(ctx)
}

// CreatePattern registers a user-defined detection pattern.
func (s *Service) CreatePattern(ctx context.Context, req *models.CreatePatternRequest, createdBy string) (*models.Pattern, error) {
	pattern := strings.ToLower(strings.TrimSpace(req.Pattern))
	if len(pattern) < 3 {
		return nil, ErrInvalidPattern
	}

	p := &models.Pattern{
		Pattern:   pattern,
		Label:     req.Label,
		CreatedBy: createdBy,
	}
	if err := s.repo.CreatePattern(ctx, p); err != nil {
		return nil, err
	}

	s.invalidatePatterns()
	return p, nil
}

// ListPatterns retrieves detection patterns.
func (s *Service) ListPatterns(ctx context.Context, req *models.ListPatternsRequest) ([]*models.Pattern, error) {
	return s.repo.ListPatterns(ctx, req)
}

// DisablePattern removes a pattern from detection without deleting it.
func (s *Service) DisablePattern(ctx context.Context, id, userID string) error {
	if err := s.repo.DisablePattern(ctx, id, userID); err != nil {
		return err
	}
	s.invalidatePatterns()
	return nil
}

// EnablePattern re-enables a disabled pattern.
func (s *Service) EnablePattern(ctx context.Context, id string) error {
	if err := s.repo.EnablePattern(ctx, id); err != nil {
		return err
	}
	s.invalidatePatterns()
	return nil
}

// detector builds a detector with the currently active user patterns.
// The pattern set is cached briefly to keep detection off the hot path.
func (s *Service) detector(ctx context.Context) (*detect.Detector, error) {
	s.patternMu.Lock()
	defer s.patternMu.Unlock()

	if time.Since(s.patternLoadedAt) > patternCacheTTL {
		patterns, err := s.repo.ActivePatterns(ctx)
		if err != nil {
			return nil, fmt.Errorf("load detection patterns: %w", err)
		}
		s.cachedPatterns = patterns
		s.patternLoadedAt = time.Now()
	}

	return detect.New(
		detect.WithPatterns(s.cachedPatterns),
		detect.WithMaxInputLength(s.opts.MaxInputLength),
	), nil
}

func (s *Service) invalidatePatterns() {
	s.patternMu.Lock()
	s.patternLoadedAt = time.Time{}
	s.patternMu.Unlock()
}

func (s *Service) duplicateResult(ctx context.Context, fingerprint string, detection detect.Result) (*models.SubmitResult, error) {
	metrics.AntibodiesSubmitted.WithLabelValues("duplicate").Inc()

	existing, err := s.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil && !errors.Is(err, repository.ErrAntibodyNotFound) {
		return nil, err
	}

	return &models.SubmitResult{
		Antibody:  existing,
		Duplicate: true,
		Verdict:   string(detection.Verdict),
		Reason:    detection.Reason,
		Score:     detection.Score,
	}, nil
}

func (s *Service) markDedup(ctx context.Context, agentID, fingerprint string) {
	if s.dedup == nil {
		return
	}
	if err := s.dedup.Mark(ctx, s.dedupKey(agentID, fingerprint)); err != nil {
		s.logger.WarnContext(ctx, "failed to mark dedup cache", logging.Error(err))
	}
}

func (s *Service) dedupKey(agentID, fingerprint string) string {
	return agentID + ":" + fingerprint
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
