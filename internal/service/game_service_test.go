package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/wfunc/game-catalog/internal/config"
	apperrors "github.com/wfunc/game-catalog/internal/errors"
	"github.com/wfunc/game-catalog/internal/models"
	"github.com/wfunc/game-catalog/internal/repository"
	"github.com/wfunc/game-catalog/internal/upstream"
)

const androidTop = `[[
  {"publisher_id":"p1","name":"Candy Crush","os":"android","id":111,"bundle_id":"com.king.candy","version":"1.0"},
  {"publisher_id":"p2","name":"Subway Surfers","os":"android","id":222,"bundle_id":"com.kiloo.subway","version":"2.0"},
  {"publisher_id":"p3","name":"Truncated","os":"android","id":333,"bundle_id":"com.cut","version":"3.0"}
]]`

const iosTop = `[[
  {"publisher_id":"p4","name":"Clash Royale","os":"ios","id":444,"bundle_id":"com.supercell.royale","version":"4.0"}
]]`

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// GameServiceTestSuite 游戏目录服务测试套件
type GameServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	repo     repository.GameRepository
	upstream *httptest.Server
	iosDown  bool
	service  GameService
}

func (suite *GameServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = repository.SetupTestDB()
	suite.repo = repository.NewGameRepository(suite.db)
	suite.iosDown = false

	mux := http.NewServeMux()
	mux.HandleFunc("/android.top100.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(androidTop))
	})
	mux.HandleFunc("/ios.top100.json", func(w http.ResponseWriter, r *http.Request) {
		if suite.iosDown {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(iosTop))
	})
	suite.upstream = httptest.NewServer(mux)

	client := upstream.NewClient(upstream.Config{
		Limit:         2,
		Timeout:       2 * time.Second,
		RetryAttempts: 1,
	})
	sources := []upstream.Source{
		{Name: "android", URL: suite.upstream.URL + "/android.top100.json"},
		{Name: "ios", URL: suite.upstream.URL + "/ios.top100.json"},
	}
	suite.service = NewGameService(suite.repo, client, sources, zap.NewNop())
}

func (suite *GameServiceTestSuite) TearDownTest() {
	suite.upstream.Close()
	repository.CleanupTestDB(suite.db)
}

func (suite *GameServiceTestSuite) seed(names ...string) []*models.Game {
	var games []*models.Game
	for _, name := range names {
		game := repository.NewTestGame(name, "ios")
		suite.Require().NoError(suite.repo.Create(suite.ctx, game))
		games = append(games, game)
	}
	return games
}

func (suite *GameServiceTestSuite) TestCreateAndList() {
	game, err := suite.service.Create(suite.ctx, &models.GameInput{
		PublisherID: strPtr("1234567890"),
		Name:        strPtr("Test App"),
		Platform:    strPtr("ios"),
		StoreID:     strPtr("1234"),
		BundleID:    strPtr("test.bundle.id"),
		AppVersion:  strPtr("1.0.0"),
		IsPublished: boolPtr(true),
	})
	suite.Require().NoError(err)
	suite.NotZero(game.ID)
	suite.Equal("Test App", game.Name)
	suite.True(game.IsPublished)

	games, err := suite.service.List(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(games, 1)
	suite.Equal(game.ID, games[0].ID)
}

func (suite *GameServiceTestSuite) TestCreateWithoutFields() {
	game, err := suite.service.Create(suite.ctx, &models.GameInput{})
	suite.Require().NoError(err)
	suite.NotZero(game.ID)
	suite.Empty(game.Name)
	suite.False(game.IsPublished)
}

func (suite *GameServiceTestSuite) TestListEmpty() {
	games, err := suite.service.List(suite.ctx)
	suite.NoError(err)
	suite.NotNil(games)
	suite.Empty(games)
}

func (suite *GameServiceTestSuite) TestSearch() {
	suite.seed("Candy Crush", "Clash Royale")

	games, err := suite.service.Search(suite.ctx, models.SearchFilter{Name: "clash"})
	suite.Require().NoError(err)
	suite.Require().Len(games, 1)
	suite.Equal("Clash Royale", games[0].Name)

	games, err = suite.service.Search(suite.ctx, models.SearchFilter{Platform: "android"})
	suite.Require().NoError(err)
	suite.Empty(games)
}

func (suite *GameServiceTestSuite) TestUpdateOnlySubmittedFields() {
	game := suite.seed("Test App")[0]

	updated, err := suite.service.Update(suite.ctx, game.ID, &models.GameInput{
		Name:        strPtr("Test App Updated"),
		IsPublished: boolPtr(false),
	})
	suite.Require().NoError(err)
	suite.Equal(game.ID, updated.ID)
	suite.Equal("Test App Updated", updated.Name)
	suite.False(updated.IsPublished)
	suite.Equal("ios", updated.Platform)
	suite.Equal("1.0.0", updated.AppVersion)

	stored, err := suite.repo.FindByID(suite.ctx, game.ID)
	suite.Require().NoError(err)
	suite.Equal("Test App Updated", stored.Name)
	suite.False(stored.IsPublished)
}

func (suite *GameServiceTestSuite) TestUpdateNotFound() {
	_, err := suite.service.Update(suite.ctx, 999, &models.GameInput{Name: strPtr("x")})
	suite.Require().Error(err)
	suite.True(apperrors.Is(err, apperrors.ErrNotFound))

	count, err := suite.repo.Count(suite.ctx)
	suite.NoError(err)
	suite.Zero(count)
}

func (suite *GameServiceTestSuite) TestDelete() {
	game := suite.seed("Test App")[0]

	result, err := suite.service.Delete(suite.ctx, game.ID)
	suite.Require().NoError(err)
	suite.Equal(game.ID, result.ID)

	_, err = suite.repo.FindByID(suite.ctx, game.ID)
	suite.ErrorIs(err, repository.ErrGameNotFound)

	_, err = suite.service.Delete(suite.ctx, game.ID)
	suite.True(apperrors.Is(err, apperrors.ErrNotFound))
}

func (suite *GameServiceTestSuite) TestPopulateReplacesCatalog() {
	suite.seed("Old One", "Old Two")

	result, err := suite.service.Populate(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal("ok", result.State)
	// android截取前2条，ios 1条
	suite.Equal(3, result.Count)

	games, err := suite.service.List(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(games, 3)

	names := make([]string, 0, len(games))
	for _, g := range games {
		names = append(names, g.Name)
		suite.True(g.IsPublished)
	}
	suite.ElementsMatch([]string{"Candy Crush", "Subway Surfers", "Clash Royale"}, names)

	found, err := suite.service.Search(suite.ctx, models.SearchFilter{Platform: "ios"})
	suite.Require().NoError(err)
	suite.Require().Len(found, 1)
	suite.Equal("444", found[0].StoreID)
	suite.Equal("com.supercell.royale", found[0].BundleID)
}

func (suite *GameServiceTestSuite) TestPopulateTwiceKeepsOnlyLatest() {
	_, err := suite.service.Populate(suite.ctx)
	suite.Require().NoError(err)
	_, err = suite.service.Populate(suite.ctx)
	suite.Require().NoError(err)

	count, err := suite.repo.Count(suite.ctx)
	suite.NoError(err)
	suite.Equal(int64(3), count)
}

func (suite *GameServiceTestSuite) TestPopulateUpstreamFailureKeepsStore() {
	suite.seed("Old One")
	suite.iosDown = true

	_, err := suite.service.Populate(suite.ctx)
	suite.Require().Error(err)
	suite.True(apperrors.Is(err, apperrors.ErrUpstreamFetchFailed))

	games, err := suite.service.List(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(games, 1)
	suite.Equal("Old One", games[0].Name)
}

func (suite *GameServiceTestSuite) TestPopulateWithoutFetcher() {
	svc := NewGameService(suite.repo, nil, nil, zap.NewNop())
	_, err := svc.Populate(suite.ctx)
	suite.True(apperrors.Is(err, apperrors.ErrUpstreamFetchFailed))
}

func (suite *GameServiceTestSuite) TestStoreUnavailable() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(sqlDB.Close())

	core, logs := observer.New(zap.ErrorLevel)
	svc := NewGameService(suite.repo, nil, nil, zap.New(core))

	_, err = svc.List(suite.ctx)
	suite.Require().Error(err)
	suite.Equal(apperrors.ErrStoreUnavailable, apperrors.GetCode(err))

	// 存储故障带调用栈记录一次
	entries := logs.FilterMessage("查询游戏列表失败").All()
	suite.Require().Len(entries, 1)
	stack, ok := entries[0].ContextMap()["stack"].(string)
	suite.Require().True(ok)
	suite.Contains(stack, "storeError")
}

// deleteBeforeUpdateRepo 在读取和写入之间删除记录
type deleteBeforeUpdateRepo struct {
	repository.GameRepository
}

func (r deleteBeforeUpdateRepo) Update(ctx context.Context, game *models.Game) error {
	if err := r.GameRepository.Delete(ctx, game.ID); err != nil {
		return err
	}
	return r.GameRepository.Update(ctx, game)
}

func (suite *GameServiceTestSuite) TestUpdateConcurrentDelete() {
	game := repository.NewTestGame("Test App", "ios")
	suite.Require().NoError(suite.repo.Create(suite.ctx, game))

	svc := NewGameService(deleteBeforeUpdateRepo{suite.repo}, nil, nil, zap.NewNop())
	_, err := svc.Update(suite.ctx, game.ID, &models.GameInput{Name: strPtr("ghost")})
	suite.True(apperrors.Is(err, apperrors.ErrNotFound))

	total, err := suite.repo.Count(suite.ctx)
	suite.Require().NoError(err)
	suite.Zero(total)
}

func (suite *GameServiceTestSuite) TestNotFoundIsNotLoggedAsStoreFailure() {
	core, logs := observer.New(zap.ErrorLevel)
	svc := NewGameService(suite.repo, nil, nil, zap.New(core))

	_, err := svc.Delete(suite.ctx, 42)
	suite.True(apperrors.Is(err, apperrors.ErrNotFound))
	suite.Zero(logs.Len())
}

func (suite *GameServiceTestSuite) TestClassifyStoreError() {
	suite.Equal(apperrors.ErrNotFound, classifyStoreError(repository.ErrGameNotFound))
	suite.Equal(apperrors.ErrNotFound, classifyStoreError(gorm.ErrRecordNotFound))
	suite.Equal(apperrors.ErrValidationFailed, classifyStoreError(gorm.ErrDuplicatedKey))
	suite.Equal(apperrors.ErrValidationFailed, classifyStoreError(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	suite.Equal(apperrors.ErrStoreUnavailable, classifyStoreError(context.DeadlineExceeded))
}

func TestGameServiceSuite(t *testing.T) {
	suite.Run(t, new(GameServiceTestSuite))
}

func TestConfigFromPopulate(t *testing.T) {
	cfg := ConfigFromPopulate(config.PopulateConfig{})
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "android", cfg.Sources[0].Name)
	assert.Equal(t, config.DefaultIOSSourceURL, cfg.Sources[1].URL)

	cfg = ConfigFromPopulate(config.PopulateConfig{
		Sources: []config.SourceConfig{{Name: "fixture", URL: "http://127.0.0.1/list.json"}},
	})
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "fixture", cfg.Sources[0].Name)
}
