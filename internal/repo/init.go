package repo

import (
	"github.com/quantflow/quantflow/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Strategy{}, &entity.Log{}, &entity.Setting{})
}
