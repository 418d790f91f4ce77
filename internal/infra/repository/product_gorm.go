package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 公開中（is_active=true）の商品だけをカテゴリ・ID順で返す。
func (r *ProductGormRepository) ListActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product

	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category asc").
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	return products, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}
