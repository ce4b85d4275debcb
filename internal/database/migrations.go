package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type partialIndex struct {
	name    string
	table   string
	columns string
	unique  bool
	where   string
}

var postgresIndexes = []partialIndex{
	// One active ownership per (organization, user).
	{"idx_org_ownerships_unique_active", "organization_ownerships", "organization_id, user_id", true, "is_active = true"},
	{"idx_org_ownerships_org_active_role", "organization_ownerships", "organization_id, role", false, "is_active = true"},
	{"idx_org_ownerships_user_active_assigned", "organization_ownerships", "user_id, assigned_at DESC", false, "is_active = true"},
	{"idx_org_ownerships_assigned_by", "organization_ownerships", "assigned_by", false, "assigned_by IS NOT NULL"},
	{"idx_organizations_active_created", "organizations", "created_at DESC", false, "is_active = true"},
}

// AddIndexes adds the filtered indexes GORM tags cannot express. Only PostgreSQL
// supports them; other dialects rely on the composite primary key alone.
func AddIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	for _, idx := range postgresIndexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		if err := db.Exec(idx.statement()).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		zap.L().Info("created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}

func (idx partialIndex) statement() string {
	kind := "INDEX"
	if idx.unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s) WHERE %s", kind, idx.name, idx.table, idx.columns, idx.where)
}
