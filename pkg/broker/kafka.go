// Package broker 提供任务在发布端与消费端之间的传递。
// 底层是带消费组的 Kafka 主题：每个任务只投递给组内一个 worker，
// offset 在任务处理结束后才提交，worker 崩溃时消息会被重新投递。
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"vprofile-go/internal/config"
	"vprofile-go/pkg/log"
	"vprofile-go/pkg/retry"
	"vprofile-go/pkg/tasks"
)

const (
	// attemptLimit / attemptDelay 是发布和接收共用的重试窗口。
	attemptLimit = 5
	attemptDelay = 5 * time.Second
	// idleDelay 是接收重试窗口耗尽后，重新开始等待前的空转时长。
	idleDelay = time.Second
	// processedKeyTTL 是已处理任务标记在 Redis 中的保留时长。
	processedKeyTTL = 24 * time.Hour
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the consumer loop from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.ProfileVideoTask) error
}

// messageWriter 抽象出 kafka.Writer 的写入能力，便于测试注入。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// messageReader 抽象出 kafka.Reader 的读取与提交能力。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 将任务描述符发布到任务主题。
type Publisher struct {
	writer   messageWriter
	attempts int
	delay    time.Duration
}

// NewPublisher 创建一个面向配置主题的任务发布者。
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		attempts: attemptLimit,
		delay:    attemptDelay,
	}
}

// Publish 序列化任务并通过重试控制器写入主题。
// 任务缺少标识时在这里补上唯一的 task_id，消费端依赖它去重。
// 用尽重试次数后返回终止性错误，由调用方决定如何向上游反馈。
func (p *Publisher) Publish(ctx context.Context, task tasks.ProfileVideoTask) error {
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}

	payload, err := task.Encode()
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}

	err = retry.Do(ctx, p.attempts, p.delay, func() error {
		return p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(task.TaskID),
			Value: payload,
		})
	})
	if err != nil {
		return fmt.Errorf("发布任务失败 (task_id=%s): %w", task.TaskID, err)
	}

	log.Infof("任务已发布, task_id=%s, input=%s", task.TaskID, task.InputPath)
	return nil
}

// Close 关闭底层写入器。
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumer 是长驻的任务消费循环。
// 单个消费者内任务串行处理，处理期间不拉取下一条消息。
type Consumer struct {
	reader    messageReader
	rdb       *redis.Client
	processor TaskProcessor
	attempts  int
	delay     time.Duration
	idle      time.Duration
}

// NewConsumer 创建一个订阅任务主题的消费者。
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) *Consumer {
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "vprofile-worker"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader:    reader,
		rdb:       rdb,
		processor: processor,
		attempts:  attemptLimit,
		delay:     attemptDelay,
		idle:      idleDelay,
	}
}

// Run 启动消费循环，直到 ctx 被取消才返回。
// 每次接收包在一个重试窗口里；窗口耗尽只记录并空转一秒，
// 随后重新开始等待——循环在错误面前降级，从不自行退出。
func (c *Consumer) Run(ctx context.Context) {
	log.Info("任务消费者已启动")

	for {
		if ctx.Err() != nil {
			break
		}

		var m kafka.Message
		err := retry.Do(ctx, c.attempts, c.delay, func() error {
			fetched, ferr := c.reader.FetchMessage(ctx)
			if ferr != nil {
				return ferr
			}
			m = fetched
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Errorf("接收消息的重试窗口已耗尽, 空转后重新等待: %v", err)
			select {
			case <-time.After(c.idle):
			case <-ctx.Done():
			}
			continue
		}

		log.Infof("收到消息: offset %d", m.Offset)
		c.handle(ctx, m)
	}

	if err := c.reader.Close(); err != nil {
		log.Error("关闭消费者失败", err)
	}
	log.Info("任务消费者已停止")
}

// handle 处理单条消息。解码失败和管道失败都只丢弃当前任务，
// 没有死信存储，也不向上传方回报状态。
func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	task, err := tasks.Decode(m.Value)
	if err != nil {
		log.Errorf("无法解析消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞分区
		c.commit(ctx, m)
		return
	}

	// 幂等去重：重复投递（重试或再平衡）不二次处理。
	if c.alreadyProcessed(ctx, task.TaskID) {
		log.Infof("任务已处理过, 跳过: task_id=%s", task.TaskID)
		c.commit(ctx, m)
		return
	}

	log.Infof("开始处理任务: task_id=%s, input=%s", task.TaskID, task.InputPath)
	if err := c.processor.Process(ctx, task); err != nil {
		// 阶段失败对任务是终止性的：记录上下文后丢弃。
		log.Errorf("任务处理失败, 丢弃: task_id=%s, wallet=%s, error: %v", task.TaskID, task.WalletNumber, err)
		c.commit(ctx, m)
		return
	}

	log.Infow("任务处理成功", "task_id", task.TaskID, "wallet", task.WalletNumber, "offset", m.Offset)
	c.markProcessed(ctx, task.TaskID)
	c.commit(ctx, m)
}

// alreadyProcessed 查询任务是否已在处理完成集合中。
// Redis 异常时保守返回 false，重复处理由落库层的整体覆盖语义兜底。
func (c *Consumer) alreadyProcessed(ctx context.Context, taskID string) bool {
	if c.rdb == nil || taskID == "" {
		return false
	}
	n, err := c.rdb.Exists(ctx, processedKey(taskID)).Result()
	if err != nil {
		log.Warnf("查询任务处理标记失败: task_id=%s, error: %v", taskID, err)
		return false
	}
	return n > 0
}

// markProcessed 在任务成功后写入处理完成标记。
func (c *Consumer) markProcessed(ctx context.Context, taskID string) {
	if c.rdb == nil || taskID == "" {
		return
	}
	if err := c.rdb.Set(ctx, processedKey(taskID), 1, processedKeyTTL).Err(); err != nil {
		log.Warnf("写入任务处理标记失败: task_id=%s, error: %v", taskID, err)
	}
}

// commit 提交消息 offset。
func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交消息 offset 失败: %v", err)
	}
}

func processedKey(taskID string) string {
	return "tasks:done:" + taskID
}
