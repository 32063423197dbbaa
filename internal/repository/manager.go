package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db        *gorm.DB
	batchSize int

	// 仓储实例（懒加载）
	gameOnce sync.Once
	game     GameRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB, batchSize int) *Manager {
	return &Manager{
		db:        db,
		batchSize: batchSize,
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Game 获取游戏仓储
func (m *Manager) Game() GameRepository {
	m.gameOnce.Do(func() {
		m.game = NewGameRepository(m.db, WithBatchSize(m.batchSize))
	})
	return m.game
}

// Ping 检查数据库连接
func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
