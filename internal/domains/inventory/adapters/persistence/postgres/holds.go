package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
)

var _ ports.Holds = (*Store)(nil)

type holdRecord struct {
	Key           string          `gorm:"primaryKey;column:key;size:255"`
	ProductID     string          `gorm:"column:product_id;size:64;index"`
	ProductName   string          `gorm:"column:product_name"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
	Quantity      int             `gorm:"column:quantity"`
	PreviousStock int             `gorm:"column:previous_stock"`
	NewStock      int             `gorm:"column:new_stock"`
	Released      bool            `gorm:"column:released;not null;default:false"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (holdRecord) TableName() string { return "stock_reservations" }

func (s *Store) GetHold(ctx context.Context, key string) (*domain.Hold, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record holdRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrHoldNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// PlaceHold inserts the hold row first so concurrent placements of one key
// serialise on the primary key, then applies the conditional decrement. Either
// both land or neither does.
func (s *Store) PlaceHold(ctx context.Context, hold domain.Hold, version int64) (*domain.Hold, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if hold.Key == "" {
		return nil, domain.ErrInvalidHoldKey
	}
	if hold.Quantity <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	record := toHoldRecord(hold)
	record.Released = false
	var existing *domain.Hold
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if inserted.Error != nil {
			return inserted.Error
		}
		if inserted.RowsAffected == 0 {
			var stored holdRecord
			if err := tx.First(&stored, "key = ?", hold.Key).Error; err != nil {
				return err
			}
			existing = stored.toDomain()
			return ports.ErrHoldExists
		}
		result := tx.Model(&productRecord{}).
			Where("id = ? AND version = ? AND stock >= ?", hold.ProductID, version, hold.Quantity).
			Updates(map[string]any{
				"stock":      gorm.Expr("stock - ?", hold.Quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": gorm.Expr("NOW()"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.classifyMiss(ctx, hold.ProductID, version)
		}
		return nil
	})
	if err != nil {
		return existing, err
	}
	return record.toDomain(), nil
}

// ReleaseHold locks the hold row, returns its units under the version check
// and flips it to released in the same transaction.
func (s *Store) ReleaseHold(ctx context.Context, key, productID string, version int64) (*domain.Hold, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var released *domain.Hold
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record holdRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.markReleased(tx, key, productID, &released)
		}
		if err != nil {
			return err
		}
		if record.Released {
			released = record.toDomain()
			return nil
		}
		result := tx.Model(&productRecord{}).
			Where("id = ? AND version = ?", record.ProductID, version).
			Updates(map[string]any{
				"stock":      gorm.Expr("stock + ?", record.Quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": gorm.Expr("NOW()"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.classifyMiss(ctx, record.ProductID, version)
		}
		if err := tx.Model(&record).Updates(map[string]any{"released": true, "updated_at": gorm.Expr("NOW()")}).Error; err != nil {
			return err
		}
		record.Released = true
		released = record.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// markReleased records a released marker for a key that was never placed. A
// placement that commits first turns into a version conflict so the caller
// re-reads and releases it properly.
func (s *Store) markReleased(tx *gorm.DB, key, productID string, out **domain.Hold) error {
	var products int64
	if err := tx.Model(&productRecord{}).Where("id = ?", productID).Count(&products).Error; err != nil {
		return err
	}
	if products == 0 {
		return ports.ErrNotFound
	}
	marker := holdRecord{Key: key, ProductID: productID, Released: true}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrVersionConflict
	}
	*out = marker.toDomain()
	return nil
}

func toHoldRecord(hold domain.Hold) holdRecord {
	return holdRecord{
		Key:           hold.Key,
		ProductID:     hold.ProductID,
		ProductName:   hold.ProductName,
		UnitPrice:     hold.UnitPrice,
		Quantity:      hold.Quantity,
		PreviousStock: hold.PreviousStock,
		NewStock:      hold.NewStock,
		Released:      hold.Released,
	}
}

func (r holdRecord) toDomain() *domain.Hold {
	return &domain.Hold{
		Key:           r.Key,
		ProductID:     r.ProductID,
		ProductName:   r.ProductName,
		UnitPrice:     r.UnitPrice,
		Quantity:      r.Quantity,
		PreviousStock: r.PreviousStock,
		NewStock:      r.NewStock,
		Released:      r.Released,
		CreatedAt:     r.CreatedAt,
	}
}
