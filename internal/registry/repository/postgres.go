package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mercury-net/mercury/internal/registry/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on top of an existing pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// CreateAntibody inserts a new registry record.
// Returns ErrAntibodyExists if the agent already registered this fingerprint.
func (r *PostgresRepository) CreateAntibody(ctx context.Context, a *models.Antibody) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if a.ID == "" {
		idUUID, _ := uuid.NewV7()
		a.ID = idUUID.String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO antibodies
		(id, agent_id, threat_label, fingerprint, example, verdict, score, origin, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.AgentID, a.ThreatLabel, a.Fingerprint, a.Example,
		a.Verdict, a.Score, a.Origin, a.Signature, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAntibodyExists
		}
		return fmt.Errorf("failed to create antibody: %w", err)
	}

	return nil
}

// GetByFingerprint retrieves the earliest record for a fingerprint.
// The first agent to register a pattern is its provenance.
func (r *PostgresRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Antibody, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, agent_id, threat_label, fingerprint, example, verdict, score, origin, signature, created_at
		FROM antibodies
		WHERE fingerprint = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	a := &models.Antibody{}
	err := r.pool.QueryRow(ctx, query, fingerprint).Scan(
		&a.ID, &a.AgentID, &a.ThreatLabel, &a.Fingerprint, &a.Example,
		&a.Verdict, &a.Score, &a.Origin, &a.Signature, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAntibodyNotFound
		}
		return nil, fmt.Errorf("failed to get antibody: %w", err)
	}

	return a, nil
}

// FingerprintKnown reports whether any record exists for the fingerprint.
func (r *PostgresRepository) FingerprintKnown(ctx context.Context, fingerprint string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var known bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM antibodies WHERE fingerprint = $1)`,
		fingerprint,
	).Scan(&known)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}

	return known, nil
}

// ListAntibodies retrieves a paginated list of antibodies, newest first.
func (r *PostgresRepository) ListAntibodies(ctx context.Context, req *models.ListRequest) ([]*models.Antibody, int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	where := "WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if req.AgentID != "" {
		argCount++
		where += fmt.Sprintf(" AND agent_id = $%d", argCount)
		args = append(args, req.AgentID)
	}
	if req.Label != "" {
		argCount++
		where += fmt.Sprintf(" AND threat_label = $%d", argCount)
		args = append(args, req.Label)
	}
	if req.Origin != "" {
		argCount++
		where += fmt.Sprintf(" AND origin = $%d", argCount)
		args = append(args, req.Origin)
	}

	countQuery := `SELECT COUNT(*) FROM antibodies ` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count antibodies: %w", err)
	}

	query := `
		SELECT id, agent_id, threat_label, fingerprint, example, verdict, score, origin, signature, created_at
		FROM antibodies
		` + where + `
		ORDER BY created_at DESC
		LIMIT $` + fmt.Sprintf("%d", argCount+1) + ` OFFSET $` + fmt.Sprintf("%d", argCount+2)

	args = append(args, req.Limit, (req.Page-1)*req.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list antibodies: %w", err)
	}
	defer rows.Close()

	var antibodies []*models.Antibody
	for rows.Next() {
		a := &models.Antibody{}
		err := rows.Scan(
			&a.ID, &a.AgentID, &a.ThreatLabel, &a.Fingerprint, &a.Example,
			&a.Verdict, &a.Score, &a.Origin, &a.Signature, &a.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan antibody: %w", err)
		}
		antibodies = append(antibodies, a)
	}

	return antibodies, total, nil
}

// Stats summarizes registry contents.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats := &models.Stats{
		ByLabel:  make(map[string]int),
		ByOrigin: make(map[string]int),
	}

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT fingerprint),
			COUNT(DISTINCT agent_id),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours')
		FROM antibodies
	`).Scan(&stats.TotalAntibodies, &stats.UniqueFingerprints, &stats.Agents, &stats.Last24h)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT threat_label, COUNT(*) FROM antibodies GROUP BY threat_label`)
	if err != nil {
		return nil, fmt.Errorf("failed to get label stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan label stats: %w", err)
		}
		stats.ByLabel[label] = count
	}

	originRows, err := r.pool.Query(ctx, `SELECT origin, COUNT(*) FROM antibodies GROUP BY origin`)
	if err != nil {
		return nil, fmt.Errorf("failed to get origin stats: %w", err)
	}
	defer originRows.Close()
	for originRows.Next() {
		var origin string
		var count int
		if err := originRows.Scan(&origin, &count); err != nil {
			return nil, fmt.Errorf("failed to scan origin stats: %w", err)
		}
		stats.ByOrigin[origin] = count
	}

	return stats, nil
}

// CreatePattern adds a user-defined detection pattern.
func (r *PostgresRepository) CreatePattern(ctx context.Context, p *models.Pattern) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if p.ID == "" {
		idUUID, _ := uuid.NewV7()
		p.ID = idUUID.String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO detection_patterns (id, pattern, label, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, p.ID, p.Pattern, p.Label, p.CreatedBy, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrPatternExists
		}
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	return nil
}

// ListPatterns retrieves detection patterns, newest first.
func (r *PostgresRepository) ListPatterns(ctx context.Context, req *models.ListPatternsRequest) ([]*models.Pattern, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, pattern, label, created_by, created_at, disabled_at, disabled_by
		FROM detection_patterns
	`
	if !req.IncludeDisabled {
		query += ` WHERE disabled_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*models.Pattern
	for rows.Next() {
		p := &models.Pattern{}
		err := rows.Scan(&p.ID, &p.Pattern, &p.Label, &p.CreatedBy, &p.CreatedAt, &p.DisabledAt, &p.DisabledBy)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	return patterns, nil
}

// ActivePatterns returns the pattern strings currently enabled for detection.
func (r *PostgresRepository) ActivePatterns(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT pattern FROM detection_patterns WHERE disabled_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to load active patterns: %w", err)
	}
	defer rows.Close()

	var patterns []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	return patterns, nil
}

// DisablePattern disables a pattern without deleting it.
func (r *PostgresRepository) DisablePattern(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `
		UPDATE detection_patterns
		SET disabled_at = NOW(), disabled_by = $2
		WHERE id = $1 AND disabled_at IS NULL
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to disable pattern: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPatternNotFound
	}

	return nil
}

// EnablePattern re-enables a disabled pattern.
func (r *PostgresRepository) EnablePattern(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `
		UPDATE detection_patterns
		SET disabled_at = NULL, disabled_by = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to enable pattern: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPatternNotFound
	}

	return nil
}
