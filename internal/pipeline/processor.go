// Package pipeline 定义了视频处理的核心流程。
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"vprofile-go/internal/repository"
	"vprofile-go/pkg/log"
	"vprofile-go/pkg/tasks"
)

// Status 表示一个任务在管道中所处的阶段。
type Status string

const (
	StatusReceived          Status = "received"
	StatusTranscoding       Status = "transcoding"
	StatusPreviewExtraction Status = "preview_extraction"
	StatusUploading         Status = "uploading"
	StatusPersisting        Status = "persisting"
	StatusDone              Status = "done"
	StatusFailed            Status = "failed"
)

// requiredExt 是转码输出和预览片段要求的文件扩展名。
// 调用方给出的目标路径扩展名不一致时会被改写。
const requiredExt = ".mp4"

// StageError 表示管道在某个阶段发生的终止性失败。
// 阶段失败只影响当前任务，后续阶段不再执行。
type StageError struct {
	Stage Status
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("阶段 %s 失败: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Encoder 是管道对转码适配器的依赖。
type Encoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) (string, error)
	ExtractPreview(ctx context.Context, inputPath, previewPath string, start, duration time.Duration) (string, error)
}

// ObjectStorage 是管道对对象存储适配器的依赖。
type ObjectStorage interface {
	Precheck(ctx context.Context) error
	UploadFile(ctx context.Context, objectName, filePath string) (string, error)
}

// Processor 封装了视频处理的所有依赖和逻辑。
// 阶段按固定顺序执行：转码 → 预览提取 → 上传 → 落库，首个失败即终止。
type Processor struct {
	encoder         Encoder
	storage         ObjectStorage
	profileRepo     repository.ProfileRepository
	previewDuration time.Duration
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(encoder Encoder, storage ObjectStorage, profileRepo repository.ProfileRepository, previewDuration time.Duration) *Processor {
	if previewDuration <= 0 {
		previewDuration = 5 * time.Second
	}
	return &Processor{
		encoder:         encoder,
		storage:         storage,
		profileRepo:     profileRepo,
		previewDuration: previewDuration,
	}
}

// Process 是单个任务的主函数。阶段失败产生的产物不在这里清理，
// 统一交给 janitor 按文件年龄回收。
func (p *Processor) Process(ctx context.Context, task tasks.ProfileVideoTask) error {
	status := StatusReceived
	log.Infof("[Processor] 开始处理任务, TaskID: %s, Input: %s, Wallet: %s", task.TaskID, task.InputPath, task.WalletNumber)

	// 目标路径必须带要求的扩展名，不一致则改写。
	outputPath := normalizeExt(task.OutputPath)
	previewPath := normalizeExt(task.PreviewPath)
	if outputPath != task.OutputPath || previewPath != task.PreviewPath {
		log.Infof("[Processor] 目标路径扩展名已归一化: output=%s, preview=%s", outputPath, previewPath)
	}

	// 1. 转码。编码失败视为非瞬态，不在任务内重试。
	status = StatusTranscoding
	log.Infof("[Processor] 步骤1: 转码, input=%s, output=%s", task.InputPath, outputPath)
	outputPath, err := p.encoder.Transcode(ctx, task.InputPath, outputPath)
	if err != nil {
		return p.fail(task, status, err)
	}

	// 2. 预览提取，从原始上传的 0 偏移处截取。
	status = StatusPreviewExtraction
	log.Infof("[Processor] 步骤2: 提取预览片段, duration=%s", p.previewDuration)
	previewPath, err = p.encoder.ExtractPreview(ctx, task.InputPath, previewPath, 0, p.previewDuration)
	if err != nil {
		return p.fail(task, status, err)
	}

	// 3. 上传。传输前先做连通性预检，两个产物以各自的文件名作对象键。
	status = StatusUploading
	log.Info("[Processor] 步骤3: 上传产物到对象存储")
	if err := p.storage.Precheck(ctx); err != nil {
		return p.fail(task, status, err)
	}
	videoURL, err := p.storage.UploadFile(ctx, filepath.Base(outputPath), outputPath)
	if err != nil {
		return p.fail(task, status, err)
	}
	previewURL, err := p.storage.UploadFile(ctx, filepath.Base(previewPath), previewPath)
	if err != nil {
		return p.fail(task, status, err)
	}
	log.Infof("[Processor] 步骤3: 上传完成, video=%s, preview=%s", videoURL, previewURL)

	// 4. 落库。整个阶段在一个事务里，失败全部回滚。
	status = StatusPersisting
	log.Infof("[Processor] 步骤4: 写入资料, wallet=%s", task.WalletNumber)
	if err := p.profileRepo.UpsertProfile(ctx, task.WalletNumber, task.FormData, videoURL, previewURL, task.UserLogoURL); err != nil {
		return p.fail(task, status, err)
	}

	log.Infof("[Processor] 任务处理成功完成, TaskID: %s, status=%s", task.TaskID, StatusDone)
	return nil
}

// fail 记录失败上下文并返回携带阶段信息的错误。
func (p *Processor) fail(task tasks.ProfileVideoTask, stage Status, err error) error {
	log.Errorf("[Processor] 任务失败, TaskID: %s, stage=%s, error: %v", task.TaskID, stage, err)
	return &StageError{Stage: stage, Err: err}
}

// normalizeExt 将路径的扩展名改写为要求的扩展名。
func normalizeExt(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, requiredExt) {
		return path
	}
	return strings.TrimSuffix(path, ext) + requiredExt
}
