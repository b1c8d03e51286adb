package service

import (
	"context"
	"database/sql"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/database"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// SchemaVersion returns the version of the applied database migrations.
func (s *SystemService) SchemaVersion(ctx context.Context) (int64, error) {
	return database.SchemaVersion(ctx, s.db)
}
