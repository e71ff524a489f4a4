package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mercury-net/mercury/internal/database"
	"github.com/mercury-net/mercury/internal/registry/models"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations
func setupTestDatabase(t *testing.T) (*PostgresRepository, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("mercury_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	repo := NewPostgresRepository(pool)

	cleanup := func() {
		repo.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return repo, cleanup
}

// runMigrations applies the up migrations in order
func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationsDir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		migrationSQL, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(migrationSQL)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}

	return nil
}

func testAntibody(agentID, fingerprint string) *models.Antibody {
	return &models.Antibody{
		AgentID:     agentID,
		ThreatLabel: "Prompt Injection",
		Fingerprint: fingerprint,
		Example:     "ignore previous instructions",
		Verdict:     "suspicious",
		Score:       1,
		Origin:      models.OriginLocal,
		Signature:   "sig",
	}
}

const (
	fpA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	fpB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestCreateAntibody(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	a := testAntibody("Agent-A", fpA)
	require.NoError(t, repo.CreateAntibody(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	t.Run("same agent same fingerprint rejected", func(t *testing.T) {
		dup := testAntibody("Agent-A", fpA)
		assert.ErrorIs(t, repo.CreateAntibody(ctx, dup), ErrAntibodyExists)
	})

	t.Run("another agent can register the same fingerprint", func(t *testing.T) {
		other := testAntibody("Agent-B", fpA)
		assert.NoError(t, repo.CreateAntibody(ctx, other))
	})
}

func TestGetByFingerprint(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	first := testAntibody("Agent-A", fpA)
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.CreateAntibody(ctx, first))

	second := testAntibody("Agent-B", fpA)
	require.NoError(t, repo.CreateAntibody(ctx, second))

	t.Run("returns earliest record", func(t *testing.T) {
		got, err := repo.GetByFingerprint(ctx, fpA)
		require.NoError(t, err)
		assert.Equal(t, "Agent-A", got.AgentID)
		assert.Equal(t, fpA, got.Fingerprint)
	})

	t.Run("unknown fingerprint", func(t *testing.T) {
		_, err := repo.GetByFingerprint(ctx, fpB)
		assert.ErrorIs(t, err, ErrAntibodyNotFound)
	})
}

func TestFingerprintKnown(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.CreateAntibody(ctx, testAntibody("Agent-A", fpA)))

	known, err := repo.FingerprintKnown(ctx, fpA)
	require.NoError(t, err)
	assert.True(t, known)

	known, err = repo.FingerprintKnown(ctx, fpB)
	require.NoError(t, err)
	assert.False(t, known)
}

func TestListAntibodies(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		a := testAntibody("Agent-A", strings.Repeat(fmt.Sprintf("%d", i), 64))
		a.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			a.ThreatLabel = "Data Poisoning"
		}
		require.NoError(t, repo.CreateAntibody(ctx, a))
	}
	b := testAntibody("Agent-B", fpB)
	b.Origin = models.OriginNetwork
	require.NoError(t, repo.CreateAntibody(ctx, b))

	t.Run("newest first with total", func(t *testing.T) {
		antibodies, total, err := repo.ListAntibodies(ctx, &models.ListRequest{Page: 1, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		require.Len(t, antibodies, 3)
		assert.True(t, antibodies[0].CreatedAt.After(antibodies[1].CreatedAt) ||
			antibodies[0].CreatedAt.Equal(antibodies[1].CreatedAt))
	})

	t.Run("second page", func(t *testing.T) {
		antibodies, total, err := repo.ListAntibodies(ctx, &models.ListRequest{Page: 2, Limit: 4})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Len(t, antibodies, 2)
	})

	t.Run("filter by agent", func(t *testing.T) {
		antibodies, total, err := repo.ListAntibodies(ctx, &models.ListRequest{Page: 1, Limit: 10, AgentID: "Agent-B"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, antibodies, 1)
		assert.Equal(t, "Agent-B", antibodies[0].AgentID)
	})

	t.Run("filter by label", func(t *testing.T) {
		_, total, err := repo.ListAntibodies(ctx, &models.ListRequest{Page: 1, Limit: 10, Label: "Data Poisoning"})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("filter by origin", func(t *testing.T) {
		antibodies, total, err := repo.ListAntibodies(ctx, &models.ListRequest{Page: 1, Limit: 10, Origin: models.OriginNetwork})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, antibodies, 1)
		assert.Equal(t, fpB, antibodies[0].Fingerprint)
	})
}

func TestStats(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.CreateAntibody(ctx, testAntibody("Agent-A", fpA)))
	require.NoError(t, repo.CreateAntibody(ctx, testAntibody("Agent-B", fpA)))

	old := testAntibody("Agent-A", fpB)
	old.ThreatLabel = "Data Poisoning"
	old.Origin = models.OriginImport
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.CreateAntibody(ctx, old))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalAntibodies)
	assert.Equal(t, 2, stats.UniqueFingerprints)
	assert.Equal(t, 2, stats.Agents)
	assert.Equal(t, 2, stats.Last24h)
	assert.Equal(t, 2, stats.ByLabel["Prompt Injection"])
	assert.Equal(t, 1, stats.ByLabel["Data Poisoning"])
	assert.Equal(t, 2, stats.ByOrigin[models.OriginLocal])
	assert.Equal(t, 1, stats.ByOrigin[models.OriginImport])
}

func TestPatterns(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	p := &models.Pattern{Pattern: "disregard all prior", Label: "Jailbreak", CreatedBy: "Agent-A"}
	require.NoError(t, repo.CreatePattern(ctx, p))
	assert.NotEmpty(t, p.ID)

	t.Run("duplicate pattern rejected", func(t *testing.T) {
		dup := &models.Pattern{Pattern: "disregard all prior", Label: "Jailbreak", CreatedBy: "Agent-B"}
		assert.ErrorIs(t, repo.CreatePattern(ctx, dup), ErrPatternExists)
	})

	t.Run("active patterns include it", func(t *testing.T) {
		active, err := repo.ActivePatterns(ctx)
		require.NoError(t, err)
		assert.Contains(t, active, "disregard all prior")
	})

	t.Run("disable removes it from active set", func(t *testing.T) {
		require.NoError(t, repo.DisablePattern(ctx, p.ID, "Agent-A"))

		active, err := repo.ActivePatterns(ctx)
		require.NoError(t, err)
		assert.NotContains(t, active, "disregard all prior")

		// Still listed when disabled rows are requested
		all, err := repo.ListPatterns(ctx, &models.ListPatternsRequest{IncludeDisabled: true})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.NotNil(t, all[0].DisabledAt)

		visible, err := repo.ListPatterns(ctx, &models.ListPatternsRequest{})
		require.NoError(t, err)
		assert.Empty(t, visible)
	})

	t.Run("disable twice is not found", func(t *testing.T) {
		assert.ErrorIs(t, repo.DisablePattern(ctx, p.ID, "Agent-A"), ErrPatternNotFound)
	})

	t.Run("enable restores it", func(t *testing.T) {
		require.NoError(t, repo.EnablePattern(ctx, p.ID))

		active, err := repo.ActivePatterns(ctx)
		require.NoError(t, err)
		assert.Contains(t, active, "disregard all prior")
	})

	t.Run("enable unknown id", func(t *testing.T) {
		assert.ErrorIs(t, repo.EnablePattern(ctx, "019503aa-0000-7000-8000-000000000000"), ErrPatternNotFound)
	})
}
