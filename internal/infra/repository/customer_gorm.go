package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type CustomerGormRepository struct {
	db *gorm.DB
}

func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

// 数字だけの部分一致。旧台帳は +7 / 8 / ハイフン付きなど書式が揃っていない。
func (r *CustomerGormRepository) FindByPhoneDigits(ctx context.Context, digits string) (model.Customer, bool, error) {
	if digits == "" {
		return model.Customer{}, false, nil
	}

	var c model.Customer
	err := r.db.WithContext(ctx).
		Where("phone_digits LIKE ?", "%"+digits+"%").
		Order("id asc").
		First(&c).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, false, nil
	}
	if err != nil {
		return model.Customer{}, false, err
	}
	return c, true, nil
}

func (r *CustomerGormRepository) FindByNormalizedAddress(ctx context.Context, normalized string) (model.Customer, bool, error) {
	if normalized == "" {
		return model.Customer{}, false, nil
	}

	var c model.Customer
	err := r.db.WithContext(ctx).
		Where("address_norm = ?", normalized).
		Order("id asc").
		First(&c).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, false, nil
	}
	if err != nil {
		return model.Customer{}, false, err
	}
	return c, true, nil
}

func (r *CustomerGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Customer, bool, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		First(&c).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, false, nil
	}
	if err != nil {
		return model.Customer{}, false, err
	}
	return c, true, nil
}

func (r *CustomerGormRepository) Create(ctx context.Context, c model.Customer) error {
	return r.db.WithContext(ctx).Create(&c).Error
}

func (r *CustomerGormRepository) Update(ctx context.Context, c model.Customer) error {
	res := r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"name":         c.Name,
			"address":      c.Address,
			"address_norm": c.AddressNorm,
			"phone":        c.Phone,
			"phone_digits": c.PhoneDigits,
			"last_items":   c.LastItems,
			"user_id":      c.UserID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
