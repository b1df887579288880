package rawdb

import (
	"errors"
	"os"
	"path"

	"github.com/everFinance/nftmarket/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	SqliteType = "sqlite"
	MysqlType  = "mysql"
)

// SqlDB stores every bucket in a single kv_records table.
type SqlDB struct {
	Db  *gorm.DB
	typ string
}

func NewSqliteDB(dbFile string) (*SqlDB, error) {
	if len(dbFile) == 0 {
		return nil, errors.New("sqlite db file can not null")
	}
	if err := os.MkdirAll(path.Dir(dbFile), os.ModePerm); err != nil {
		return nil, err
	}
	return openSqlDB(sqlite.Open(dbFile), SqliteType)
}

func NewMysqlDB(dsn string) (*SqlDB, error) {
	return openSqlDB(mysql.Open(dsn), MysqlType)
}

func openSqlDB(dialector gorm.Dialector, typ string) (*SqlDB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	if err = db.AutoMigrate(&schema.KvRecord{}); err != nil {
		return nil, err
	}
	log.Info("connect sql db success", "type", typ)
	return &SqlDB{Db: db, typ: typ}, nil
}

func (s *SqlDB) Type() string {
	return s.typ
}

func (s *SqlDB) Put(bucket, key string, value []byte) error {
	rec := &schema.KvRecord{Bucket: bucket, Key: key, Value: value}
	return s.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(rec).Error
}

func (s *SqlDB) Get(bucket, key string) ([]byte, error) {
	rec := schema.KvRecord{}
	err := s.Db.Where(&schema.KvRecord{Bucket: bucket, Key: key}).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, schema.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

func (s *SqlDB) GetAllKey(bucket string) ([]string, error) {
	keys := make([]string, 0)
	err := s.Db.Model(&schema.KvRecord{}).Where(&schema.KvRecord{Bucket: bucket}).Pluck("key", &keys).Error
	return keys, err
}

func (s *SqlDB) Delete(bucket, key string) error {
	return s.Db.Where(&schema.KvRecord{Bucket: bucket, Key: key}).Delete(&schema.KvRecord{}).Error
}

func (s *SqlDB) Exist(bucket, key string) bool {
	_, err := s.Get(bucket, key)
	return err == nil
}

func (s *SqlDB) Close() error {
	sqlDb, err := s.Db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
