package extractor

import (
	"github.com/nguyentantai21042004/batch-transcriber/internal/config"
	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
	"github.com/nguyentantai21042004/batch-transcriber/pkg/executor"
)

type implExtractor struct {
	cfg      config.FFmpegConfig
	tempDir  string
	executor executor.Executor
	logger   logger.Logger
}

// New creates an Extractor that writes temporary audio into tempDir
// (the system temp dir when empty).
func New(cfg config.FFmpegConfig, tempDir string, exec executor.Executor, log logger.Logger) Extractor {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	return &implExtractor{
		cfg:      cfg,
		tempDir:  tempDir,
		executor: exec,
		logger:   log,
	}
}
