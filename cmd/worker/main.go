// Package main 是任务消费进程的入口点。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"vprofile-go/internal/config"
	"vprofile-go/internal/janitor"
	"vprofile-go/internal/model"
	"vprofile-go/internal/pipeline"
	"vprofile-go/internal/repository"
	"vprofile-go/pkg/broker"
	"vprofile-go/pkg/database"
	"vprofile-go/pkg/encoder"
	"vprofile-go/pkg/log"
	"vprofile-go/pkg/storage"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和对象存储。
	// 所有客户端在这里显式构造并向下传递，不存在包级共享实例。
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("连接 MySQL 失败", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Profile{}, &model.Hashtag{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("连接 Redis 失败", err)
	}

	store, err := storage.New(cfg.MinIO)
	if err != nil {
		log.Fatal("初始化对象存储失败", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 4. 初始化 Repository 和处理管道
	profileRepo := repository.NewProfileRepository(db)
	ffmpeg := encoder.NewFFmpeg(cfg.Encoder)
	processor := pipeline.NewProcessor(ffmpeg, store, profileRepo, ffmpeg.PreviewDuration())

	// 5. 启动任务消费循环
	ctx, cancel := context.WithCancel(context.Background())
	consumer := broker.NewConsumer(cfg.Kafka, rdb, processor)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Run(ctx)
	}()

	// 6. 启动临时文件清理任务
	schedule := cfg.Janitor.Schedule
	if schedule == "" {
		schedule = "@daily"
	}
	dirs := cfg.Janitor.Dirs
	if len(dirs) == 0 && cfg.Worker.TempDir != "" {
		dirs = []string{cfg.Worker.TempDir}
	}
	jan := janitor.New(dirs, time.Duration(cfg.Janitor.MaxAgeHours)*time.Hour)
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { jan.Sweep() }); err != nil {
		log.Fatal("注册清理任务失败", err)
	}
	c.Start()
	log.Infof("清理任务已注册, schedule=%s", schedule)

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 先停掉定时任务，再取消消费循环并等待当前任务处理完。
	cronCtx := c.Stop()
	cancel()

	select {
	case <-consumerDone:
	case <-time.After(30 * time.Second):
		log.Warnf("等待消费循环退出超时")
	}
	<-cronCtx.Done()

	if err := rdb.Close(); err != nil {
		log.Warnf("关闭 Redis 连接失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
