// Package repository provides persistent storage for the antibody registry.
package repository

import (
	"context"
	"errors"

	"github.com/mercury-net/mercury/internal/registry/models"
)

var (
	ErrAntibodyNotFound = errors.New("antibody not found")
	ErrAntibodyExists   = errors.New("antibody already registered for agent")
	ErrPatternNotFound  = errors.New("detection pattern not found")
	ErrPatternExists    = errors.New("detection pattern already exists")
)

// Repository is the storage contract for antibodies and detection patterns.
type Repository interface {
	CreateAntibody(ctx context.Context, a *models.Antibody) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.Antibody, error)
	ListAntibodies(ctx context.Context, req *models.ListRequest) ([]*models.Antibody, int, error)
	FingerprintKnown(ctx context.Context, fingerprint string) (bool, error)
	Stats(ctx context.Context) (*models.Stats, error)

	CreatePattern(ctx context.Context, p *models.Pattern) error
	ListPatterns(ctx context.Context, req *models.ListPatternsRequest) ([]*models.Pattern, error)
	ActivePatterns(ctx context.Context) ([]string, error)
	DisablePattern(ctx context.Context, id, userID string) error
	EnablePattern(ctx context.Context, id string) error

	Close()
}
