package frames

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"log/slog"

	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// Extractor ffmpeg 抽帧器
// 对每个时间点独立调用 ffmpeg，单点失败跳过不影响其余帧
type Extractor struct {
	ffmpegPath string
	frameDir   string
	logger     *slog.Logger
}

// NewExtractor 创建抽帧器
func NewExtractor(cfg *config.Config) *Extractor {
	frameDir := cfg.Ingest.FrameDir
	if frameDir == "" {
		frameDir = filepath.Join(os.TempDir(), "peertube-aichat-frames")
	}

	return &Extractor{
		ffmpegPath: cfg.Ingest.FFmpegPath,
		frameDir:   frameDir,
		logger:     log.NewModuleLogger("frames", "extractor"),
	}
}

// buildArgs 构造单帧抽取的 ffmpeg 参数
// -ss 放在 -i 前走关键帧快速定位
func buildArgs(playbackURL string, timestamp float64, outputPath string) []string {
	return []string{
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", playbackURL,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	}
}

// framePath 帧图片落盘路径
func (e *Extractor) framePath(videoID int64, timestamp float64) string {
	return filepath.Join(e.frameDir, fmt.Sprintf("%d", videoID), fmt.Sprintf("%.0f.jpg", timestamp))
}

// ExtractFrames 按时间点列表抽帧，返回时间点到图片路径的映射
// 个别时间点抽取失败时记录日志并跳过
func (e *Extractor) ExtractFrames(ctx context.Context, videoID int64, playbackURL string, timestamps []float64) (map[float64]string, error) {
	videoDir := filepath.Join(e.frameDir, fmt.Sprintf("%d", videoID))
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame dir: %w", err)
	}

	extracted := make(map[float64]string, len(timestamps))
	for _, ts := range timestamps {
		if ctx.Err() != nil {
			return extracted, ctx.Err()
		}

		outputPath := e.framePath(videoID, ts)
		cmd := exec.CommandContext(ctx, e.ffmpegPath, buildArgs(playbackURL, ts, outputPath)...)
		if output, err := cmd.CombinedOutput(); err != nil {
			e.logger.Warn("抽帧失败，跳过该时间点",
				"video_id", videoID,
				"timestamp", ts,
				"error", err,
				"output", truncate(string(output), 200),
			)
			continue
		}
		extracted[ts] = outputPath
	}

	e.logger.Info("抽帧完成",
		"video_id", videoID,
		"requested", len(timestamps),
		"extracted", len(extracted),
	)
	return extracted, nil
}

// Cleanup 删除视频的帧图片目录
func (e *Extractor) Cleanup(videoID int64) error {
	return os.RemoveAll(filepath.Join(e.frameDir, fmt.Sprintf("%d", videoID)))
}

// truncate 截断长输出用于日志
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
