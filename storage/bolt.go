package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/browserwing/locator/models"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

var locateRecordsBucket = []byte("locate_records")

type BoltDB struct {
	db *bolt.DB
}

func NewBoltDB(dbPath string) (*BoltDB, error) {
	dir := filepath.Dir(dbPath)

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w (directory: %s)", dbPath, err, dir)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(locateRecordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}

// SaveLocateRecord 保存定位记录，ID 为空时自动生成
func (b *BoltDB) SaveLocateRecord(record *models.LocateRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(locateRecordsBucket)
		data, err := record.ToJSON()
		if err != nil {
			return err
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

// GetLocateRecord 获取定位记录
func (b *BoltDB) GetLocateRecord(id string) (*models.LocateRecord, error) {
	var record models.LocateRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(locateRecordsBucket)
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("locate record %s: %w", id, ErrNotFound)
		}
		return record.FromJSON(data)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListLocateRecords 按创建时间倒序列出定位记录，limit <= 0 表示不限制
func (b *BoltDB) ListLocateRecords(limit int) ([]*models.LocateRecord, error) {
	records := make([]*models.LocateRecord, 0)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(locateRecordsBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var record models.LocateRecord
			if err := record.FromJSON(v); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// DeleteLocateRecord 删除定位记录
func (b *BoltDB) DeleteLocateRecord(id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(locateRecordsBucket)
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("locate record %s: %w", id, ErrNotFound)
		}
		return bucket.Delete([]byte(id))
	})
}

// ClearLocateRecords 清空所有定位记录，返回删除的数量
func (b *BoltDB) ClearLocateRecords() (int, error) {
	count := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		count = tx.Bucket(locateRecordsBucket).Stats().KeyN
		if err := tx.DeleteBucket(locateRecordsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(locateRecordsBucket)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// LocateStats 汇总定位记录
func (b *BoltDB) LocateStats() (*models.LocateStats, error) {
	stats := &models.LocateStats{
		ByAction:   make(map[string]int),
		ByStrategy: make(map[string]int),
	}
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(locateRecordsBucket).ForEach(func(k, v []byte) error {
			var record models.LocateRecord
			if err := record.FromJSON(v); err != nil {
				return err
			}
			stats.Total++
			if record.Success {
				stats.Succeeded++
			} else {
				stats.Failed++
			}
			stats.ByAction[string(record.Action)]++
			if record.Strategy != "" {
				stats.ByStrategy[record.Strategy]++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
