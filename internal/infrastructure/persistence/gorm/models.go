// Package gorm provides GORM model definitions and the SQL-backed
// key-value store
package gorm

import "time"

// EntryModel is one persisted key. The column names avoid the reserved
// word "key".
type EntryModel struct {
	Key       string `gorm:"column:kv_key;type:varchar(191);primaryKey"`
	Value     []byte `gorm:"column:kv_value;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for EntryModel
func (EntryModel) TableName() string {
	return "studio_entries"
}
