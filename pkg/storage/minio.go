// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vprofile-go/internal/config"
)

// Client 封装一个 MinIO 连接和目标存储桶。
// 实例由进程入口构造并显式传递，不使用包级全局变量。
type Client struct {
	mc  *minio.Client
	cfg config.MinIOConfig
}

// New 初始化 MinIO 客户端并确保指定的存储桶存在。
func New(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	// 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	ctx := context.Background()
	exists, err := mc.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}

	return &Client{mc: mc, cfg: cfg}, nil
}

// Precheck 在传输前验证对象存储的连通性。
func (c *Client) Precheck(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.cfg.BucketName)
	if err != nil {
		return fmt.Errorf("对象存储连通性检查失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶 '%s' 不存在", c.cfg.BucketName)
	}
	return nil
}

// UploadFile 将本地文件上传为 objectName，并返回对外可见的访问 URL。
// URL 由端点、桶名和对象名拼接而成，不向存储端反查。
func (c *Client) UploadFile(ctx context.Context, objectName, filePath string) (string, error) {
	_, err := c.mc.FPutObject(ctx, c.cfg.BucketName, objectName, filePath, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("上传对象 '%s' 失败: %w", objectName, err)
	}
	return c.PublicURL(objectName), nil
}

// PublicURL 拼接一个对象的公开访问地址。
func (c *Client) PublicURL(objectName string) string {
	scheme := "http"
	if c.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.cfg.Endpoint, c.cfg.BucketName, objectName)
}
