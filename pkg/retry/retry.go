// Package retry 提供了固定间隔、有限次数的重试策略。
// 发布端和消费端的接收循环使用同一套策略，间隔不做指数退避，便于运维告警对时。
package retry

import (
	"context"
	"fmt"
	"time"
)

// ExhaustedError 表示操作在用尽全部重试次数后仍然失败。
// 它记录实际使用的尝试次数和最后一次的底层错误。
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("操作在 %d 次尝试后仍然失败: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do 以固定间隔重复执行 op，最多 maxAttempts 次，首次成功即返回 nil。
// 每次失败后等待 delay 再进入下一次尝试；等待期间响应 ctx 取消。
// 用尽次数后返回 *ExhaustedError。
func Do(ctx context.Context, maxAttempts int, delay time.Duration, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := op(); err == nil {
			return nil
		} else {
			last = err
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, Last: last}
}
