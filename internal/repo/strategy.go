package repo

import (
	"context"
	"errors"

	"github.com/quantflow/quantflow/internal/entity"
	"gorm.io/gorm"
)

var ErrStrategyNotFound = errors.New("strategy not found")

type StrategyRepo interface {
	Create(ctx context.Context, strategy entity.Strategy) error
	FindById(ctx context.Context, id string) (entity.Strategy, error)
	FindAll(ctx context.Context) ([]entity.Strategy, error)
	Update(ctx context.Context, strategy entity.Strategy) error
	UpdateStatus(ctx context.Context, id string, status string) error
	UpdatePnl(ctx context.Context, id string, pnl float64) error
	Delete(ctx context.Context, id string) error
}

type strategyRepo struct {
	db *gorm.DB
}

func NewStrategyRepo(db *gorm.DB) StrategyRepo {
	return &strategyRepo{
		db: db,
	}
}

func (r *strategyRepo) Create(ctx context.Context, strategy entity.Strategy) error {
	return r.db.WithContext(ctx).Create(&strategy).Error
}

func (r *strategyRepo) FindById(ctx context.Context, id string) (entity.Strategy, error) {
	var strategy entity.Strategy
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&strategy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.Strategy{}, ErrStrategyNotFound
		}
		return entity.Strategy{}, err
	}
	return strategy, nil
}

func (r *strategyRepo) FindAll(ctx context.Context) ([]entity.Strategy, error) {
	var strategies []entity.Strategy
	err := r.db.WithContext(ctx).Order("created_at").Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

func (r *strategyRepo) Update(ctx context.Context, strategy entity.Strategy) error {
	return r.db.WithContext(ctx).Model(&entity.Strategy{}).Where("id = ?", strategy.Id).
		Updates(map[string]any{
			"name":           strategy.Name,
			"description":    strategy.Description,
			"code":           strategy.Code,
			"symbol":         strategy.Symbol,
			"schedule_start": strategy.ScheduleStart,
			"schedule_end":   strategy.ScheduleEnd,
		}).Error
}

func (r *strategyRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	return r.db.WithContext(ctx).Model(&entity.Strategy{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *strategyRepo) UpdatePnl(ctx context.Context, id string, pnl float64) error {
	return r.db.WithContext(ctx).Model(&entity.Strategy{}).Where("id = ?", id).
		Update("pnl_day", pnl).Error
}

func (r *strategyRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Strategy{}).Error
}
