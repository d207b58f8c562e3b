package migrations

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the catalog, customer and order contexts.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&productRecord{},
		&stockReservationRecord{},
		&customerRecord{},
		&orderRecord{},
		&orderLineRecord{},
		&idempotencyRecord{},
	)
}

// Product schema mirrors the inventory Postgres adapter.
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

// Stock reservation schema mirrors the inventory Postgres holds.
type stockReservationRecord struct {
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

func (stockReservationRecord) TableName() string { return "stock_reservations" }

// Customer schema mirrors the customers Postgres adapter.
type customerRecord struct {
	ID              string    `gorm:"primaryKey;column:id;size:64"`
	Name            string    `gorm:"column:name"`
	Surname         string    `gorm:"column:surname"`
	Username        string    `gorm:"column:username;index"`
	Email           string    `gorm:"column:email"`
	ShippingAddress string    `gorm:"column:shipping_address"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (customerRecord) TableName() string { return "customers" }

// Order schema mirrors the orders Postgres ledger.
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

// Idempotency keys for order placement.
type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     string    `gorm:"column:order_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }
