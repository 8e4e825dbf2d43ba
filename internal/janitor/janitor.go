// Package janitor 负责定期回收管道留下的临时文件。
package janitor

import (
	"os"
	"path/filepath"
	"time"

	"vprofile-go/pkg/log"
)

// Janitor 按文件年龄清扫一组临时目录。
// 它不感知管道状态，只看最后修改时间；保留时长必须始终大于
// 管道最坏情况下的处理时长，这是两者之间唯一的安全边界。
type Janitor struct {
	dirs   []string
	maxAge time.Duration
}

// New 创建一个清扫器。maxAge 非正时使用 48 小时的默认保留时长。
func New(dirs []string, maxAge time.Duration) *Janitor {
	if maxAge <= 0 {
		maxAge = 48 * time.Hour
	}
	return &Janitor{dirs: dirs, maxAge: maxAge}
}

// Sweep 清扫所有目录并返回删除的文件总数。
// 目录不存在只记为警告；删除严格超过保留时长的普通文件。
func (j *Janitor) Sweep() int {
	cutoff := time.Now().Add(-j.maxAge)
	total := 0

	for _, dir := range j.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Warnf("[Janitor] 目录不可用, 跳过: %s, error: %v", dir, err)
			continue
		}

		deleted := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				log.Warnf("[Janitor] 读取文件信息失败: %s, error: %v", entry.Name(), err)
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Warnf("[Janitor] 删除文件失败: %s, error: %v", path, err)
				continue
			}
			deleted++
		}

		log.Infof("[Janitor] 目录 %s 清理完成, 删除 %d 个文件", dir, deleted)
		total += deleted
	}

	log.Infof("[Janitor] 本轮清理结束, 共删除 %d 个文件", total)
	return total
}
