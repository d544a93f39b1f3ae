package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calfield/mediabin/internal/api"
	"github.com/calfield/mediabin/internal/engine"
	"github.com/calfield/mediabin/internal/ingest"
	"github.com/ilyakaznacheev/cleanenv"
)

const mediaBinUserDirSuffix = "mediabin"

// MediaBinConfig is the struct used to contain the various user config
// supplied by file or environment.
type MediaBinConfig struct {
	Ingest ingest.Config       `yaml:"ingest"`
	Engine engine.FFmpegConfig `yaml:"engine"`
	API    api.Config          `yaml:"api"`

	// EnginePreloadFallbackSeconds bounds how long the idle scheduler
	// waits for a quiet period before preloading the engine anyway.
	EnginePreloadFallbackSeconds int `yaml:"engine_preload_fallback_seconds" env:"ENGINE_PRELOAD_FALLBACK_SECONDS" env-default:"5"`

	CacheDirPath string `yaml:"cache_dir" env:"CACHE_DIR"`
}

// LoadFromFile populates the config from a YAML file, with environment
// variables taking precedence. A missing file is not an error; environment
// and defaults alone are enough to run.
func (config *MediaBinConfig) LoadFromFile(configPath string) error {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cleanenv.ReadEnv(config)
	}

	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	return nil
}

// populateDefaultDirs derives the artifact directories that were not
// explicitly configured from the user cache dir.
func (config *MediaBinConfig) populateDefaultDirs() error {
	cacheRoot := config.CacheDirPath
	if cacheRoot == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("failed to derive user cache dir: %w", err)
		}
		cacheRoot = filepath.Join(dir, mediaBinUserDirSuffix)
	}

	if config.Ingest.PreviewDirPath == "" {
		config.Ingest.PreviewDirPath = filepath.Join(cacheRoot, "previews")
	}
	if config.Engine.ThumbnailDirPath == "" {
		config.Engine.ThumbnailDirPath = filepath.Join(cacheRoot, "thumbnails")
	}
	if config.API.ScratchDir == "" {
		config.API.ScratchDir = filepath.Join(cacheRoot, "scratch")
	}

	return os.MkdirAll(config.API.ScratchDir, os.ModeDir|os.ModePerm)
}
