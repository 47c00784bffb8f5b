package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// SaveScansBatch upserts scan records.
func (a *SQLiteAdapter) SaveScansBatch(ctx context.Context, scans []domain.Scan) error {
	if len(scans) == 0 {
		return nil
	}

	models := make([]ScanModel, 0, len(scans))
	for _, s := range scans {
		m, err := toScanModel(s)
		if err != nil {
			return fmt.Errorf("encode scan %s: %w", s.ID, err)
		}
		models = append(models, m)
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
}

// LoadScans returns the most recent scans, newest first. limit <= 0 loads all.
func (a *SQLiteAdapter) LoadScans(ctx context.Context, limit int) ([]domain.Scan, error) {
	query := a.db.WithContext(ctx).Order("started_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []ScanModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	scans := make([]domain.Scan, 0, len(models))
	for _, m := range models {
		s, err := toScanDomain(m)
		if err != nil {
			return nil, fmt.Errorf("decode scan %s: %w", m.ID, err)
		}
		scans = append(scans, s)
	}
	return scans, nil
}
