package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/game-catalog/internal/errors"
	"github.com/wfunc/game-catalog/internal/models"
	"github.com/wfunc/game-catalog/internal/service"
	"go.uber.org/zap"
)

// GameHandler 游戏目录处理器
type GameHandler struct {
	games service.GameService
	log   *zap.Logger
}

// NewGameHandler 创建游戏目录处理器
func NewGameHandler(games service.GameService, log *zap.Logger) *GameHandler {
	return &GameHandler{
		games: games,
		log:   log,
	}
}

// List 获取全部游戏
// GET /api/games
func (h *GameHandler) List(c *gin.Context) {
	games, err := h.games.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

// Create 创建游戏
// POST /api/games
func (h *GameHandler) Create(c *gin.Context) {
	var input models.GameInput
	if err := bindBody(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	game, err := h.games.Create(c.Request.Context(), &input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// Search 按名称和平台搜索
// POST /api/games/search
func (h *GameHandler) Search(c *gin.Context) {
	var filter models.SearchFilter
	if err := bindBody(c, &filter); err != nil {
		h.fail(c, err)
		return
	}

	games, err := h.games.Search(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

// Populate 从上游榜单重新导入
// POST /api/games/populate
func (h *GameHandler) Populate(c *gin.Context) {
	result, err := h.games.Populate(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Update 更新游戏
// PUT /api/games/:id
func (h *GameHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var input models.GameInput
	if err := bindBody(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	game, err := h.games.Update(c.Request.Context(), id, &input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// Delete 删除游戏
// DELETE /api/games/:id
func (h *GameHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.games.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) fail(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	if appErr.Code == apperrors.ErrUnknown {
		h.log.Error("未归类的错误",
			zap.Error(err),
			zap.String("path", c.FullPath()),
			zap.String("stack", appErr.GetStack()))
	}
	respondError(c, appErr)
}

// parseID 解析路径中的游戏ID，必须是正整数
func parseID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.Newf(apperrors.ErrValidationFailed, "无效的游戏ID: %s", raw)
	}
	return uint(id), nil
}

// bindBody 解析JSON请求体，空请求体视为空对象
func bindBody(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Wrap(err, apperrors.ErrValidationFailed, "请求体格式错误")
	}
	return nil
}
