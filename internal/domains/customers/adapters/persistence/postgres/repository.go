package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists customers in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

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

// Exists reports whether a customer id is known.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&customerRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByID fetches a customer by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record customerRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// Save inserts or updates a customer.
func (r *Repository) Save(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, errors.New("customer is nil")
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	record := customerRecord{
		ID:              customer.ID,
		Name:            customer.Name,
		Surname:         customer.Surname,
		Username:        customer.Username,
		Email:           customer.Email,
		ShippingAddress: customer.ShippingAddress,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "surname", "username", "email", "shipping_address", "updated_at"}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres customer repository not configured")
	}
	return nil
}

func (r customerRecord) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:              r.ID,
		Name:            r.Name,
		Surname:         r.Surname,
		Username:        r.Username,
		Email:           r.Email,
		ShippingAddress: r.ShippingAddress,
	}
}
