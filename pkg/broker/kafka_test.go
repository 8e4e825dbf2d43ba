package broker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vprofile-go/pkg/log"
	"vprofile-go/pkg/retry"
	"vprofile-go/pkg/tasks"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// fakeWriter 记录写入次数，按设定次数失败后成功。
type fakeWriter struct {
	failures int
	calls    int
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("broker unreachable")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishExhaustsRetryWindow(t *testing.T) {
	w := &fakeWriter{failures: 100}
	p := &Publisher{writer: w, attempts: 5, delay: time.Millisecond}

	err := p.Publish(context.Background(), tasks.ProfileVideoTask{InputPath: "/tmp/a.mp4"})

	require.Error(t, err)
	assert.Equal(t, 5, w.calls)
	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
}

func TestPublishRecoversAndAssignsTaskID(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := &Publisher{writer: w, attempts: 5, delay: time.Millisecond}

	err := p.Publish(context.Background(), tasks.ProfileVideoTask{InputPath: "/tmp/a.mp4"})

	require.NoError(t, err)
	assert.Equal(t, 3, w.calls)
	require.Len(t, w.messages, 1)

	decoded, err := tasks.Decode(w.messages[0].Value)
	require.NoError(t, err)
	assert.NotEmpty(t, decoded.TaskID)
	assert.Equal(t, decoded.TaskID, string(w.messages[0].Key))
	assert.Equal(t, "/tmp/a.mp4", decoded.InputPath)
}

// fakeReader 提交记录和可选的单条消息。
type fakeReader struct {
	message   *kafka.Message
	fetchErr  error
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	if r.message != nil {
		m := *r.message
		r.message = nil
		return m, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

// fakeProcessor 统计处理次数。
type fakeProcessor struct {
	err  error
	seen []tasks.ProfileVideoTask
}

func (p *fakeProcessor) Process(_ context.Context, task tasks.ProfileVideoTask) error {
	p.seen = append(p.seen, task)
	return p.err
}

func newTestConsumer(t *testing.T, reader messageReader, processor TaskProcessor) *Consumer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Consumer{
		reader:    reader,
		rdb:       rdb,
		processor: processor,
		attempts:  2,
		delay:     time.Millisecond,
		idle:      time.Millisecond,
	}
}

func encodeTask(t *testing.T, task tasks.ProfileVideoTask) []byte {
	t.Helper()
	data, err := task.Encode()
	require.NoError(t, err)
	return data
}

func TestHandleProcessesAndCommits(t *testing.T) {
	reader := &fakeReader{}
	processor := &fakeProcessor{}
	c := newTestConsumer(t, reader, processor)

	payload := encodeTask(t, tasks.ProfileVideoTask{TaskID: "t1", InputPath: "/tmp/a.mp4"})
	c.handle(context.Background(), kafka.Message{Value: payload})

	require.Len(t, processor.seen, 1)
	assert.Equal(t, "t1", processor.seen[0].TaskID)
	assert.Len(t, reader.committed, 1)

	// 同一任务的重复投递被去重，不二次处理。
	c.handle(context.Background(), kafka.Message{Value: payload})
	assert.Len(t, processor.seen, 1)
	assert.Len(t, reader.committed, 2)
}

func TestHandleDropsMalformedMessage(t *testing.T) {
	reader := &fakeReader{}
	processor := &fakeProcessor{}
	c := newTestConsumer(t, reader, processor)

	c.handle(context.Background(), kafka.Message{Value: []byte("not-json")})

	assert.Empty(t, processor.seen)
	assert.Len(t, reader.committed, 1)
}

func TestHandleDropsFailedTaskWithoutRetry(t *testing.T) {
	reader := &fakeReader{}
	processor := &fakeProcessor{err: errors.New("stage failed")}
	c := newTestConsumer(t, reader, processor)

	payload := encodeTask(t, tasks.ProfileVideoTask{TaskID: "t2", InputPath: "/tmp/b.mp4"})
	c.handle(context.Background(), kafka.Message{Value: payload})

	// 失败任务被丢弃：offset 提交，但不写处理完成标记。
	require.Len(t, processor.seen, 1)
	assert.Len(t, reader.committed, 1)
	assert.False(t, c.alreadyProcessed(context.Background(), "t2"))
}

func TestRunProcessesUntilCancelled(t *testing.T) {
	payload := encodeTask(t, tasks.ProfileVideoTask{TaskID: "t3", InputPath: "/tmp/c.mp4"})
	reader := &fakeReader{message: &kafka.Message{Value: payload}}
	processor := &fakeProcessor{}
	c := newTestConsumer(t, reader, processor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	require.Eventually(t, func() bool { return len(processor.seen) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("消费循环未在取消后退出")
	}
}

func TestRunDegradesOnReceiveErrors(t *testing.T) {
	reader := &fakeReader{fetchErr: errors.New("broker unreachable")}
	processor := &fakeProcessor{}
	c := newTestConsumer(t, reader, processor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	// 重试窗口耗尽后循环应继续空转，而不是退出。
	time.Sleep(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("消费循环在接收错误下不应退出")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("消费循环未在取消后退出")
	}
	assert.Empty(t, processor.seen)
}
