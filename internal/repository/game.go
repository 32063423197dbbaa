package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/wfunc/game-catalog/internal/models"
	"gorm.io/gorm"
)

// ErrGameNotFound 游戏不存在
var ErrGameNotFound = errors.New("游戏不存在")

// DefaultBatchSize 批量插入默认每批条数
const DefaultBatchSize = 100

// likeEscaper 转义LIKE通配符，配合 ESCAPE '!' 使用
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// GameRepository 游戏仓储接口
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	Update(ctx context.Context, game *models.Game) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Game, error)
	List(ctx context.Context) ([]*models.Game, error)
	Search(ctx context.Context, filter models.SearchFilter) ([]*models.Game, error)
	Count(ctx context.Context) (int64, error)
	Truncate(ctx context.Context) error
	BulkCreate(ctx context.Context, games []*models.Game) error
	ReplaceAll(ctx context.Context, games []*models.Game) error
	WithTx(tx *gorm.DB) GameRepository
}

// GameRepoOption 仓储选项
type GameRepoOption func(*gameRepo)

// WithBatchSize 设置批量插入每批条数
func WithBatchSize(size int) GameRepoOption {
	return func(r *gameRepo) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// gameRepo 游戏仓储实现
type gameRepo struct {
	*BaseRepo
	batchSize int
}

// NewGameRepository 创建游戏仓储
func NewGameRepository(db *gorm.DB, opts ...GameRepoOption) GameRepository {
	r := &gameRepo{
		BaseRepo:  NewBaseRepo(db),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create 创建游戏
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

// Update 覆盖游戏的全部字段，记录已不存在时返回 ErrGameNotFound 而不是重新插入
func (r *gameRepo) Update(ctx context.Context, game *models.Game) error {
	result := r.db.WithContext(ctx).Model(game).Select("*").Updates(game)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGameNotFound
	}
	return nil
}

// Delete 物理删除游戏
func (r *gameRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Game{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGameNotFound
	}
	return nil
}

// FindByID 根据ID查找游戏
func (r *gameRepo) FindByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).First(&game, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

// List 按插入顺序返回全部游戏
func (r *gameRepo) List(ctx context.Context) ([]*models.Game, error) {
	games := make([]*models.Game, 0)
	err := r.db.WithContext(ctx).Order("id ASC").Find(&games).Error
	return games, err
}

// Search 按名称（不区分大小写的子串）和平台（精确匹配）搜索
func (r *gameRepo) Search(ctx context.Context, filter models.SearchFilter) ([]*models.Game, error) {
	games := make([]*models.Game, 0)
	query := r.db.WithContext(ctx).Model(&models.Game{})

	if filter.Name != "" {
		// 两侧都交给数据库折叠大小写，非ASCII字符至少能按原样匹配
		pattern := "%" + likeEscaper.Replace(filter.Name) + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) ESCAPE '!'", pattern)
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}

	err := query.Order("id ASC").Find(&games).Error
	return games, err
}

// Count 统计游戏数量
func (r *gameRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Game{}).Count(&total).Error
	return total, err
}

// Truncate 删除全部游戏
func (r *gameRepo) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Game{}).Error
}

// BulkCreate 分批插入
func (r *gameRepo) BulkCreate(ctx context.Context, games []*models.Game) error {
	if len(games) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(games, r.batchSize).Error
}

// ReplaceAll 在同一事务中清空并重新写入，任何一步失败都回滚
func (r *gameRepo) ReplaceAll(ctx context.Context, games []*models.Game) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := r.WithTx(tx)
		if err := txRepo.Truncate(ctx); err != nil {
			return err
		}
		return txRepo.BulkCreate(ctx, games)
	})
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo:  NewBaseRepo(tx),
		batchSize: r.batchSize,
	}
}
