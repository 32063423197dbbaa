package repository

import (
	"github.com/wfunc/game-catalog/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建迁移好的内存数据库
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		panic(err)
	}

	// 每个连接都是独立的内存库，只保留一个连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Game{}); err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 关闭测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// NewTestGame 构造测试用游戏
func NewTestGame(name, platform string) *models.Game {
	return &models.Game{
		PublisherID: "1234567890",
		Name:        name,
		Platform:    platform,
		StoreID:     "1234",
		BundleID:    "test.bundle.id",
		AppVersion:  "1.0.0",
		IsPublished: true,
	}
}
