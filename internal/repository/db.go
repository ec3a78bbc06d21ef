package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/warblerhq/warbler/internal/config"
	"github.com/warblerhq/warbler/internal/model"
)

// Open 按配置选择驱动打开数据库。TranslateError 让唯一键冲突
// 统一映射为 gorm.ErrDuplicatedKey，上层不用关心具体驱动。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}
	switch cfg.Driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DSN), gcfg)
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Migrate 建表（users/messages/follows/likes）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.Message{}, &model.Follow{}, &model.Like{})
}
