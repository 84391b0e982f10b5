package database

import (
	"fmt"

	"gorm.io/gorm"
)

// sweepIndexes back the scheduler's prefilter queries
var sweepIndexes = []struct {
	table   string
	name    string
	columns string
}{
	{"milestones", "idx_milestones_status_target", "status, target_date"},
	{"issues", "idx_issues_status_created", "status, created_at"},
	{"issues", "idx_issues_project_impact_status", "project_id, impact, status"},
	{"projects", "idx_projects_guild_status", "guild_id, status"},
	{"decisions", "idx_decisions_project_created", "project_id, created_at"},
}

// AddIndexes adds the composite indexes the sweeps and reports rely on
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range sweepIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// MigrateDatabase runs all database migrations
func MigrateDatabase(db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		return err
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
