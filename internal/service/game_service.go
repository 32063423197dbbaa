package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/wfunc/game-catalog/internal/database"
	apperrors "github.com/wfunc/game-catalog/internal/errors"
	"github.com/wfunc/game-catalog/internal/logger"
	"github.com/wfunc/game-catalog/internal/models"
	"github.com/wfunc/game-catalog/internal/repository"
	"github.com/wfunc/game-catalog/internal/upstream"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Fetcher 上游榜单拉取
type Fetcher interface {
	FetchAll(ctx context.Context, sources []upstream.Source) ([][]gjson.Result, error)
}

// GameService 游戏目录服务接口
type GameService interface {
	List(ctx context.Context) ([]*models.Game, error)
	Create(ctx context.Context, input *models.GameInput) (*models.Game, error)
	Search(ctx context.Context, filter models.SearchFilter) ([]*models.Game, error)
	Populate(ctx context.Context) (*PopulateResult, error)
	Update(ctx context.Context, id uint, input *models.GameInput) (*models.Game, error)
	Delete(ctx context.Context, id uint) (*DeleteResult, error)
}

// PopulateResult 导入结果
type PopulateResult struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// DeleteResult 删除结果
type DeleteResult struct {
	ID uint `json:"id"`
}

// gameService 游戏目录服务实现
type gameService struct {
	repo    repository.GameRepository
	fetcher Fetcher
	sources []upstream.Source
	log     *zap.Logger
}

// NewGameService 创建游戏目录服务
func NewGameService(repo repository.GameRepository, fetcher Fetcher, sources []upstream.Source, log *zap.Logger) GameService {
	return &gameService{
		repo:    repo,
		fetcher: fetcher,
		sources: sources,
		log:     log,
	}
}

// List 返回全部游戏
func (s *gameService) List(ctx context.Context) ([]*models.Game, error) {
	games, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.storeError(err, "查询游戏列表失败")
	}
	return games, nil
}

// Create 创建游戏，不做字段校验
func (s *gameService) Create(ctx context.Context, input *models.GameInput) (*models.Game, error) {
	game := &models.Game{}
	if input != nil {
		input.Apply(game)
	}

	if err := s.repo.Create(ctx, game); err != nil {
		return nil, s.storeError(err, "创建游戏失败")
	}

	s.log.Info("游戏已创建", zap.Uint("id", game.ID), zap.String("name", game.Name))
	return game, nil
}

// Search 按名称和平台搜索
func (s *gameService) Search(ctx context.Context, filter models.SearchFilter) ([]*models.Game, error) {
	games, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, s.storeError(err, "搜索游戏失败")
	}
	return games, nil
}

// Populate 并发拉取全部数据源后整体替换游戏表
func (s *gameService) Populate(ctx context.Context) (*PopulateResult, error) {
	if s.fetcher == nil {
		return nil, apperrors.New(apperrors.ErrUpstreamFetchFailed, "未配置上游数据源")
	}

	batches, err := s.fetcher.FetchAll(ctx, s.sources)
	if err != nil {
		s.log.Error("拉取上游榜单失败", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUpstreamFetchFailed)
	}

	games := upstream.MapEntries(batches)

	start := time.Now()
	err = s.repo.ReplaceAll(ctx, games)
	logger.LogDatabaseOperation(s.log, "replace_all", "games", time.Since(start), err)
	if err != nil {
		return nil, s.storeError(err, "写入导入数据失败")
	}

	s.log.Info("游戏目录已重新导入", zap.Int("count", len(games)), zap.Int("sources", len(s.sources)))
	return &PopulateResult{State: "ok", Count: len(games)}, nil
}

// Update 只更新提交了的字段
func (s *gameService) Update(ctx context.Context, id uint, input *models.GameInput) (*models.Game, error) {
	game, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, fmt.Sprintf("游戏ID: %d", id))
	}

	if input != nil {
		input.Apply(game)
	}

	if err := s.repo.Update(ctx, game); err != nil {
		return nil, s.storeError(err, "更新游戏失败")
	}

	s.log.Info("游戏已更新", zap.Uint("id", id))
	return game, nil
}

// Delete 物理删除游戏
func (s *gameService) Delete(ctx context.Context, id uint) (*DeleteResult, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.storeError(err, fmt.Sprintf("游戏ID: %d", id))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, s.storeError(err, "删除游戏失败")
	}

	s.log.Info("游戏已删除", zap.Uint("id", id))
	return &DeleteResult{ID: id}, nil
}

// storeError 把仓储错误归类为统一的错误码
func (s *gameService) storeError(err error, details string) *apperrors.AppError {
	appErr := apperrors.Wrap(err, classifyStoreError(err), details)
	if apperrors.Is(appErr, apperrors.ErrStoreUnavailable) {
		s.log.Error(details, zap.Error(err), zap.String("stack", appErr.GetStack()))
	}
	return appErr
}

// classifyStoreError 错误分类
func classifyStoreError(err error) apperrors.ErrorCode {
	switch {
	case errors.Is(err, repository.ErrGameNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidValue),
		errors.Is(err, gorm.ErrInvalidValueOfLength),
		errors.Is(err, gorm.ErrInvalidField),
		errors.Is(err, gorm.ErrPrimaryKeyRequired),
		database.IsDataError(err):
		return apperrors.ErrValidationFailed
	default:
		return apperrors.ErrStoreUnavailable
	}
}
