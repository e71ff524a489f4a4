// Package share implements network sharing of antibodies over the message bus.
//
// Sharing is best-effort fan-out: every node publishes the antibodies it
// registers and merges the antibodies other nodes publish. Merging is
// idempotent, so redelivery and overlap are harmless.
package share

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mercury-net/mercury/internal/messaging"
	"github.com/mercury-net/mercury/internal/metrics"
	"github.com/mercury-net/mercury/internal/registry/models"
)

// Envelope is the wire format for a shared antibody.
type Envelope struct {
	NodeID      string    `json:"node_id"`
	AgentID     string    `json:"agent_id"`
	ThreatLabel string    `json:"threat_label"`
	Fingerprint string    `json:"fingerprint"`
	Example     string    `json:"example,omitempty"`
	Verdict     string    `json:"verdict,omitempty"`
	Score       int       `json:"score,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Broadcaster publishes locally registered antibodies to the network.
type Broadcaster struct {
	publisher messaging.Publisher
	nodeID    string
}

// NewBroadcaster creates a Broadcaster. nodeID identifies this registry node
// so subscribers can skip their own broadcasts.
func NewBroadcaster(publisher messaging.Publisher, nodeID string) *Broadcaster {
	return &Broadcaster{
		publisher: publisher,
		nodeID:    nodeID,
	}
}

// Broadcast publishes an antibody on the antibodies.created subject.
func (b *Broadcaster) Broadcast(ctx context.Context, a *models.Antibody) error {
	env := Envelope{
		NodeID:      b.nodeID,
		AgentID:     a.AgentID,
		ThreatLabel: a.ThreatLabel,
		Fingerprint: a.Fingerprint,
		Example:     a.Example,
		Verdict:     a.Verdict,
		Score:       a.Score,
		CreatedAt:   a.CreatedAt,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal antibody envelope: %w", err)
	}

	if err := b.publisher.Publish(ctx, messaging.SubjectAntibodiesCreated, data); err != nil {
		metrics.ShareErrors.Inc()
		return fmt.Errorf("publish antibody: %w", err)
	}

	metrics.SharesPublished.Inc()
	return nil
}
