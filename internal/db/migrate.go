package db

import (
	"context"
	"fmt"
)

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}

	// Watch loops scan for rows above a cursor id within one namespace.
	const watchIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_objects_namespace_id ON objects (namespace, id)
`
	if err := p.gdb.WithContext(ctx).Exec(watchIndexSQL).Error; err != nil {
		return fmt.Errorf("create watch index: %w", err)
	}

	return nil
}

func autoMigrateModels() []any {
	return []any{
		&StoredObject{},
	}
}
