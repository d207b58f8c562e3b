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

var (
	_ ports.Store   = (*Store)(nil)
	_ ports.Catalog = (*Store)(nil)
)

// Store persists products in PostgreSQL using GORM. Stock writes are single
// conditional UPDATE statements keyed on (id, version).
type Store struct {
	db *gorm.DB
}

// NewStore wires a PostgreSQL-backed inventory store. Caller manages DB lifecycle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

type productRecord struct {
	ID          string          `gorm:"primaryKey;column:id;size:64"`
	Name        string          `gorm:"column:name"`
	Description string          `gorm:"column:description"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
	Stock       int             `gorm:"column:stock;check:chk_products_stock_non_negative,stock >= 0"`
	Version     int64           `gorm:"column:version;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// GetProduct fetches a product together with its current version.
func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// TryDecrementStock removes stock only when the version matches and enough units remain.
func (s *Store) TryDecrementStock(ctx context.Context, id string, version int64, amount int) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	result := s.db.WithContext(ctx).
		Model(&productRecord{}).
		Where("id = ? AND version = ? AND stock >= ?", id, version, amount).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", amount),
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, s.classifyMiss(ctx, id, version)
	}
	return version + 1, nil
}

// TryIncrementStock returns stock only when the version matches.
func (s *Store) TryIncrementStock(ctx context.Context, id string, version int64, amount int) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	result := s.db.WithContext(ctx).
		Model(&productRecord{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", amount),
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, s.classifyMiss(ctx, id, version)
	}
	return version + 1, nil
}

// SaveProduct upserts a catalog entry; updates bump the version.
func (s *Store) SaveProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("product is nil")
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	record := toRecord(product)
	record.Version = 0
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":        record.Name,
				"description": record.Description,
				"unit_price":  record.UnitPrice,
				"stock":       record.Stock,
				"version":     gorm.Expr("products.version + 1"),
				"updated_at":  gorm.Expr("NOW()"),
			}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, record.ID)
}

// ListProducts returns the catalog ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

// classifyMiss explains why a conditional update touched no rows. A concurrent
// writer between the update and this read surfaces as a version conflict, which
// callers already treat as retryable.
func (s *Store) classifyMiss(ctx context.Context, id string, version int64) error {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if current.Version != version {
		return ports.ErrVersionConflict
	}
	return ports.ErrInsufficientStock
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres inventory store not configured")
	}
	return nil
}

func toRecord(product *domain.Product) productRecord {
	return productRecord{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		UnitPrice:   product.UnitPrice,
		Stock:       product.Stock,
		Version:     product.Version,
	}
}

func (r productRecord) toDomain() *domain.Product {
	return &domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		UnitPrice:   r.UnitPrice,
		Stock:       r.Stock,
		Version:     r.Version,
	}
}
