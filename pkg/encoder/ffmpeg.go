// Package encoder 封装了对外部 ffmpeg 进程的调用。
package encoder

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"vprofile-go/internal/config"
)

// FFmpeg 是基于 ffmpeg 可执行文件的转码适配器。
// 每次调用都是一次阻塞的子进程执行，超时由配置控制。
type FFmpeg struct {
	binPath        string
	videoCodec     string
	audioCodec     string
	crf            int
	previewSeconds int
	timeout        time.Duration
}

// NewFFmpeg 根据配置创建一个 FFmpeg 适配器，并为缺省项填充默认值。
func NewFFmpeg(cfg config.EncoderConfig) *FFmpeg {
	f := &FFmpeg{
		binPath:        cfg.BinPath,
		videoCodec:     cfg.VideoCodec,
		audioCodec:     cfg.AudioCodec,
		crf:            cfg.CRF,
		previewSeconds: cfg.PreviewSeconds,
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	if f.binPath == "" {
		f.binPath = "ffmpeg"
	}
	if f.videoCodec == "" {
		f.videoCodec = "libx264"
	}
	if f.audioCodec == "" {
		f.audioCodec = "aac"
	}
	if f.crf == 0 {
		f.crf = 23
	}
	if f.previewSeconds == 0 {
		f.previewSeconds = 5
	}
	return f
}

// PreviewDuration 返回配置的预览片段时长。
func (f *FFmpeg) PreviewDuration() time.Duration {
	return time.Duration(f.previewSeconds) * time.Second
}

// Transcode 以固定的编码配置将 inputPath 转码到 outputPath。
// ffmpeg 非零退出视为失败，错误中带上其输出便于排查。
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string) (string, error) {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", f.videoCodec,
		"-crf", strconv.Itoa(f.crf),
		"-preset", "medium",
		"-c:a", f.audioCodec,
		"-movflags", "+faststart",
		outputPath,
	}
	if err := f.run(ctx, args); err != nil {
		return "", fmt.Errorf("转码失败 (input=%s): %w", inputPath, err)
	}
	return outputPath, nil
}

// ExtractPreview 从 inputPath 的 start 偏移处截取 duration 时长的预览片段。
func (f *FFmpeg) ExtractPreview(ctx context.Context, inputPath, previewPath string, start, duration time.Duration) (string, error) {
	args := []string{
		"-y",
		"-ss", strconv.FormatFloat(start.Seconds(), 'f', -1, 64),
		"-i", inputPath,
		"-t", strconv.FormatFloat(duration.Seconds(), 'f', -1, 64),
		"-c:v", f.videoCodec,
		"-crf", strconv.Itoa(f.crf),
		"-c:a", f.audioCodec,
		"-movflags", "+faststart",
		previewPath,
	}
	if err := f.run(ctx, args); err != nil {
		return "", fmt.Errorf("提取预览失败 (input=%s): %w", inputPath, err)
	}
	return previewPath, nil
}

// run 执行一次 ffmpeg 调用，超时后杀掉子进程。
func (f *FFmpeg) run(ctx context.Context, args []string) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.binPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg 执行失败: %w (output: %s)", err, string(out))
	}
	return nil
}
