package service

import (
	"github.com/wfunc/game-catalog/internal/config"
	"github.com/wfunc/game-catalog/internal/repository"
	"github.com/wfunc/game-catalog/internal/upstream"
	"go.uber.org/zap"
)

// Config 服务配置
type Config struct {
	Sources []upstream.Source
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Sources: []upstream.Source{
			{Name: "android", URL: config.DefaultAndroidSourceURL},
			{Name: "ios", URL: config.DefaultIOSSourceURL},
		},
	}
}

// ConfigFromPopulate 从导入配置生成服务配置
func ConfigFromPopulate(cfg config.PopulateConfig) *Config {
	if len(cfg.Sources) == 0 {
		return DefaultConfig()
	}
	sources := make([]upstream.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, upstream.Source{Name: s.Name, URL: s.URL})
	}
	return &Config{Sources: sources}
}

// Services 服务集合
type Services struct {
	Game  GameService
	Repos *repository.Manager
}

// NewServices 创建服务集合
func NewServices(repos *repository.Manager, fetcher Fetcher, config *Config, log *zap.Logger) *Services {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Services{
		Game:  NewGameService(repos.Game(), fetcher, config.Sources, log.Named("game")),
		Repos: repos,
	}
}
