package schema

import (
	"time"
)

// KvRecord is one bucket/key slot of rawdb.SqlDB.
type KvRecord struct {
	Bucket    string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time
}

func (KvRecord) TableName() string {
	return "kv_records"
}
