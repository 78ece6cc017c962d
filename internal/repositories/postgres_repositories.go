package repositories

import (
	"context"
	"errors"

	"golang-storefront-backend/internal/models"

	"gorm.io/gorm"
)

type completionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) Create(ctx context.Context, completion *models.CheckoutCompletion) error {
	return r.db.WithContext(ctx).Create(completion).Error
}

func (r *completionRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.CheckoutCompletion, error) {
	var completion models.CheckoutCompletion
	err := r.db.WithContext(ctx).Where("checkout_id = ?", checkoutID).First(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &completion, nil
}
