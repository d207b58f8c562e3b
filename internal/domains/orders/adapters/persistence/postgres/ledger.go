package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger persists orders and their line snapshots in PostgreSQL using GORM.
type Ledger struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() string
}

// NewLedger wires a PostgreSQL-backed ledger. Schema comes from platform/migrations.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now, newID: uuid.NewString}
}

type orderRecord struct {
	ID         string            `gorm:"primaryKey;column:id;size:64"`
	CustomerID string            `gorm:"column:customer_id;size:64;index"`
	Status     string            `gorm:"column:status;type:varchar(32);index"`
	OrderedAt  time.Time         `gorm:"column:ordered_at;index"`
	Lines      []orderLineRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type orderLineRecord struct {
	ID          int64           `gorm:"primaryKey;column:id;autoIncrement"`
	OrderID     string          `gorm:"column:order_id;size:64;index"`
	Position    int             `gorm:"column:position"`
	ProductID   string          `gorm:"column:product_id;size:64;index"`
	ProductName string          `gorm:"column:product_name"`
	Quantity    int             `gorm:"column:quantity;check:chk_order_lines_quantity_positive,quantity > 0"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

// Create writes the order header and lines in one transaction.
func (l *Ledger) Create(ctx context.Context, customerID string, lines []domain.LineItem) (*domain.Order, error) {
	return l.CreateWithID(ctx, l.newID(), customerID, lines)
}

// CreateWithID skips the lines when the header already exists and returns the
// stored order instead.
func (l *Ledger) CreateWithID(ctx context.Context, id, customerID string, lines []domain.LineItem) (*domain.Order, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	order, err := domain.NewOrder(id, customerID, lines, l.now().Truncate(time.Microsecond))
	if err != nil {
		return nil, err
	}
	record := toRecord(order)
	exists := false
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Omit("Lines").Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			exists = true
			return nil
		}
		return tx.Create(&record.Lines).Error
	})
	if err != nil {
		return nil, err
	}
	if exists {
		return l.Get(ctx, id)
	}
	return order.Clone(), nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := l.withLines(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// UpdateStatus issues UPDATE ... WHERE id = ? AND status = expected. Zero rows
// means either the order is gone or someone else moved it first.
func (l *Ledger) UpdateStatus(ctx context.Context, id string, expected, next domain.Status) (*domain.Order, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	if !expected.CanTransitionTo(next) {
		return nil, domain.ErrInvalidTransition
	}
	result := l.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(map[string]any{
			"status":     string(next),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := l.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ports.ErrNotFound
		}
		return nil, ports.ErrStatusConflict
	}
	return l.Get(ctx, id)
}

// List returns orders newest first; ties break on id for a stable order.
func (l *Ledger) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	query := l.withLines(ctx).Order("ordered_at DESC").Order("id DESC")
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	var records []orderRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&orderLineRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&orderRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ports.ErrNotFound
		}
		return nil
	})
}

func (l *Ledger) withLines(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (l *Ledger) ensureDB() error {
	if l == nil || l.db == nil {
		return errors.New("postgres order ledger not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	record := orderRecord{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		OrderedAt:  order.OrderedAt,
		Lines:      make([]orderLineRecord, 0, len(order.Lines)),
	}
	for i, line := range order.Lines {
		record.Lines = append(record.Lines, orderLineRecord{
			OrderID:     order.ID,
			Position:    i,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return record
}

func (r orderRecord) toDomain() *domain.Order {
	lines := make([]domain.LineItem, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, domain.LineItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return &domain.Order{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Lines:      lines,
		OrderedAt:  r.OrderedAt.UTC(),
		Status:     domain.Status(r.Status),
	}
}
