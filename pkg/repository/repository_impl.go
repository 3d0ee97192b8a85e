package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/pkg/db/pagination"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (r *store[T]) Get(ctx context.Context, id snowflake.ID) (*T, error) {
	var result T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) FindByCond(ctx context.Context, cond *T) (*T, error) {
	var result T
	err := r.db.WithContext(ctx).Where(cond).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) List(ctx context.Context, cond *T, pg pagination.Pagination) ([]*T, int64, error) {
	pg = pg.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where(cond).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var result []*T
	err := r.db.WithContext(ctx).
		Where(cond).
		Order(pg.OrderClause()).
		Offset(pg.Offset()).
		Limit(pg.Limit).
		Find(&result).Error
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *store[T]) Insert(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *store[T]) Update(ctx context.Context, id snowflake.ID, patch any) error {
	return r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(patch).Error
}

func (r *store[T]) Delete(ctx context.Context, id snowflake.ID) error {
	var dummy T
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&dummy).Error
}
