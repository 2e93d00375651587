package repo

import (
	"context"

	"github.com/quantflow/quantflow/internal/entity"
	"gorm.io/gorm"
)

type LogRepo interface {
	Create(ctx context.Context, log entity.Log) (int64, error)
	FindByStrategyId(ctx context.Context, strategyId string, limit int) ([]entity.Log, error)
	DeleteByStrategyId(ctx context.Context, strategyId string) error
}

type logRepo struct {
	db *gorm.DB
}

func NewLogRepo(db *gorm.DB) LogRepo {
	return &logRepo{
		db: db,
	}
}

func (r *logRepo) Create(ctx context.Context, log entity.Log) (int64, error) {
	err := r.db.WithContext(ctx).Create(&log).Error
	if err != nil {
		return 0, err
	}
	return log.Id, nil
}

// FindByStrategyId returns the newest entries first.
func (r *logRepo) FindByStrategyId(ctx context.Context, strategyId string, limit int) ([]entity.Log, error) {
	var logs []entity.Log
	err := r.db.WithContext(ctx).Where("strategy_id = ?", strategyId).
		Order("id desc").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *logRepo) DeleteByStrategyId(ctx context.Context, strategyId string) error {
	return r.db.WithContext(ctx).Where("strategy_id = ?", strategyId).Delete(&entity.Log{}).Error
}
