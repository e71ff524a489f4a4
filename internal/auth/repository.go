package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrAgentExists        = errors.New("agent already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AgentKey is a registered agent credential. Only the bcrypt hash of the
// API key is stored.
type AgentKey struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agent_id"`
	KeyHash   string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// KeyRepository stores agent API keys.
type KeyRepository interface {
	CreateAgentKey(ctx context.Context, agentID, keyHash string) (*AgentKey, error)
	GetAgentKey(ctx context.Context, agentID string) (*AgentKey, error)
	RevokeAgentKey(ctx context.Context, agentID string) error
}

// PostgresKeyRepository implements KeyRepository using PostgreSQL.
type PostgresKeyRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresKeyRepository(pool *pgxpool.Pool) *PostgresKeyRepository {
	return &PostgresKeyRepository{pool: pool}
}

func (r *PostgresKeyRepository) CreateAgentKey(ctx context.Context, agentID, keyHash string) (*AgentKey, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	idUUID, _ := uuid.NewV7()
	key := &AgentKey{
		ID:        idUUID.String(),
		AgentID:   agentID,
		KeyHash:   keyHash,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO agent_keys (id, agent_id, key_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, key.ID, key.AgentID, key.KeyHash, key.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAgentExists
		}
		return nil, fmt.Errorf("failed to create agent key: %w", err)
	}

	return key, nil
}

func (r *PostgresKeyRepository) GetAgentKey(ctx context.Context, agentID string) (*AgentKey, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := &AgentKey{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, agent_id, key_hash, created_at, revoked_at
		FROM agent_keys
		WHERE agent_id = $1 AND revoked_at IS NULL
	`, agentID).Scan(&key.ID, &key.AgentID, &key.KeyHash, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to get agent key: %w", err)
	}

	return key, nil
}

func (r *PostgresKeyRepository) RevokeAgentKey(ctx context.Context, agentID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `
		UPDATE agent_keys
		SET revoked_at = NOW()
		WHERE agent_id = $1 AND revoked_at IS NULL
	`, agentID)
	if err != nil {
		return fmt.Errorf("failed to revoke agent key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAgentNotFound
	}

	return nil
}

// Service issues agent credentials and exchanges API keys for access tokens.
type Service struct {
	repo     KeyRepository
	tokenGen *TokenGenerator
}

func NewService(repo KeyRepository, tokenGen *TokenGenerator) *Service {
	return &Service{repo: repo, tokenGen: tokenGen}
}

// RegisterAgent creates an agent credential and returns the plaintext API key.
// The key is shown once; only its bcrypt hash is persisted.
func (s *Service) RegisterAgent(ctx context.Context, agentID string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("agent_id is required")
	}

	apiKey, err := GenerateAPIKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}

	if _, err := s.repo.CreateAgentKey(ctx, agentID, string(hash)); err != nil {
		return "", err
	}

	return apiKey, nil
}

// IssueToken validates an agent's API key and returns a JWT access token
// with its expiry.
func (s *Service) IssueToken(ctx context.Context, agentID, apiKey string) (string, time.Time, error) {
	key, err := s.repo.GetAgentKey(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(apiKey)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	return s.tokenGen.GenerateAccessToken(agentID)
}

// ValidateToken verifies an access token and returns the agent it belongs to.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	claims, err := s.tokenGen.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.AgentID, nil
}
