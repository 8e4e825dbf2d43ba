// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Worker   WorkerConfig   `mapstructure:"worker"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Encoder  EncoderConfig  `mapstructure:"encoder"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
	Log      LogConfig      `mapstructure:"log"`
}

// WorkerConfig 存储消费者进程相关的配置。
type WorkerConfig struct {
	// TempDir 是上传文件与派生产物所在的临时目录。
	TempDir string `mapstructure:"temp_dir"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EncoderConfig 存储视频转码器（ffmpeg）相关的配置。
type EncoderConfig struct {
	// BinPath 是 ffmpeg 可执行文件的路径，默认 "ffmpeg"。
	BinPath string `mapstructure:"bin_path"`
	// VideoCodec / AudioCodec 是固定的目标编码配置。
	VideoCodec string `mapstructure:"video_codec"`
	AudioCodec string `mapstructure:"audio_codec"`
	// CRF 控制转码质量，值越小质量越高。
	CRF int `mapstructure:"crf"`
	// PreviewSeconds 是预览片段的时长（秒），默认 5。
	PreviewSeconds int `mapstructure:"preview_seconds"`
	// TimeoutSeconds 是单次 ffmpeg 调用的超时时间（秒），0 表示不限制。
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// JanitorConfig 存储临时文件清理任务的配置。
type JanitorConfig struct {
	// Dirs 是需要定期清理的临时目录列表。
	Dirs []string `mapstructure:"dirs"`
	// MaxAgeHours 是文件保留时长（小时），超过该时长才会被删除，默认 48。
	MaxAgeHours int `mapstructure:"max_age_hours"`
	// Schedule 是 cron 表达式，默认每天一次。
	Schedule string `mapstructure:"schedule"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
