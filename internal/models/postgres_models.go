package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// CheckoutCompletion model - PostgreSQL
// One row per checkout id; the unique index is what makes completion at-most-once
// across BFF restarts.
type CheckoutCompletion struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CheckoutID     string    `gorm:"uniqueIndex;not null" json:"checkout_id"`
	OrderID        string    `json:"order_id"`
	PaymentMethod  string    `gorm:"not null" json:"payment_method"`
	DeliveryMethod string    `gorm:"not null" json:"delivery_method"`
	Destination    string    `gorm:"not null" json:"destination"` // pending, success
	Total          string    `json:"total"`
	IdempotencyKey uuid.UUID `gorm:"type:uuid" json:"idempotency_key"`
	Metadata       JSONB     `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time `json:"created_at"`
}
