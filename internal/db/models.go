package db

import "time"

// StoredObject maps one blob in the objects table. A blob is addressed by
// (namespace, key); overwrites keep the original row id.
type StoredObject struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Namespace string    `gorm:"column:namespace;type:text;not null;uniqueIndex:idx_objects_namespace_key"`
	Key       string    `gorm:"column:key;type:text;not null;uniqueIndex:idx_objects_namespace_key"`
	Data      []byte    `gorm:"column:data;type:bytea;not null"`
	Size      int64     `gorm:"column:size;type:bigint;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (StoredObject) TableName() string { return "objects" }
