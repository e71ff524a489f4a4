package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mercury-net/mercury/internal/antibody"
	"github.com/mercury-net/mercury/internal/logging"
	"github.com/mercury-net/mercury/internal/messaging"
	"github.com/mercury-net/mercury/internal/registry/models"
)

var (
	ErrInvalidEnvelope = errors.New("invalid antibody envelope")
)

// Merger stores antibodies received from the network.
// Implementations must be idempotent.
type Merger interface {
	MergeRemote(ctx context.Context, a *models.Antibody) error
}

// Syncer subscribes to network broadcasts and merges remote antibodies into
// the local registry.
type Syncer struct {
	subscriber messaging.Subscriber
	merger     Merger
	nodeID     string
	logger     *logging.Logger
	sub        messaging.Subscription
}

// NewSyncer creates a Syncer.
func NewSyncer(subscriber messaging.Subscriber, merger Merger, nodeID string, logger *logging.Logger) *Syncer {
	return &Syncer{
		subscriber: subscriber,
		merger:     merger,
		nodeID:     nodeID,
		logger:     logger,
	}
}

// Start begins consuming antibody broadcasts in the registry worker queue
// group. Each broadcast is processed by exactly one worker per node.
func (s *Syncer) Start() error {
	sub, err := s.subscriber.QueueSubscribe(
		messaging.SubjectAntibodiesCreated,
		messaging.QueueRegistryWorkers,
		s.handleBroadcast,
	)
	if err != nil {
		return fmt.Errorf("subscribe to antibody broadcasts: %w", err)
	}

	s.sub = sub
	s.logger.Info("antibody syncer started",
		logging.Subject(messaging.SubjectAntibodiesCreated))
	return nil
}

// Stop unsubscribes from the network.
func (s *Syncer) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}

func (s *Syncer) handleBroadcast(ctx context.Context, msg *messaging.Message) error {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	// Skip our own broadcasts
	if env.NodeID == s.nodeID {
		return nil
	}

	if err := validateEnvelope(&env); err != nil {
		s.logger.WarnContext(ctx, "dropping invalid antibody broadcast",
			logging.Error(err))
		return nil
	}

	a := &models.Antibody{
		AgentID:     env.AgentID,
		ThreatLabel: env.ThreatLabel,
		Fingerprint: env.Fingerprint,
		Example:     env.Example,
		Verdict:     env.Verdict,
		Score:       env.Score,
		Origin:      models.OriginNetwork,
		CreatedAt:   env.CreatedAt.UTC(),
	}
	if a.ThreatLabel == "" {
		a.ThreatLabel = models.DefaultThreatLabel
	}

	if err := s.merger.MergeRemote(ctx, a); err != nil {
		return fmt.Errorf("merge remote antibody: %w", err)
	}

	s.logger.InfoContext(ctx, "merged antibody from network",
		logging.AgentID(a.AgentID),
		logging.Fingerprint(antibody.Short(a.Fingerprint)))
	return nil
}

func validateEnvelope(env *Envelope) error {
	if env.AgentID == "" {
		return fmt.Errorf("%w: empty agent_id", ErrInvalidEnvelope)
	}
	if !antibody.IsValid(env.Fingerprint) {
		return fmt.Errorf("%w: malformed fingerprint %q", ErrInvalidEnvelope, env.Fingerprint)
	}
	return nil
}
