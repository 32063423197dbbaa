package database

import (
	"fmt"

	"github.com/wfunc/game-catalog/internal/logger"
	"github.com/wfunc/game-catalog/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate 迁移全局数据库
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 文件型SQLite需要防止多个进程同时迁移
	if dbPath := sqliteFilePath(DB); dbPath != "" {
		CleanupStaleLocks(dbPath)
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	return Migrate(DB)
}

// Migrate 迁移表结构并创建索引
func Migrate(db *gorm.DB) error {
	logger.Info("开始数据库迁移...")

	if err := db.AutoMigrate(&models.Game{}); err != nil {
		logger.Error("迁移失败", zap.String("model", fmt.Sprintf("%T", &models.Game{})), zap.Error(err))
		return err
	}

	createIndexes(db)

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建组合索引，失败只告警
func createIndexes(db *gorm.DB) {
	if db.Migrator().HasIndex(&models.Game{}, "idx_games_platform_name") {
		return
	}
	if err := db.Exec("CREATE INDEX idx_games_platform_name ON games(platform, name)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_games_platform_name"), zap.Error(err))
	}
}
