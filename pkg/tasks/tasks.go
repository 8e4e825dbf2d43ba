// Package tasks defines the structure for tasks that are sent to the broker.
package tasks

import "encoding/json"

// ProfileVideoTask represents the data structure for one profile video upload job.
// 所有路径和 URL 字段在编码前都必须是普通字符串。
type ProfileVideoTask struct {
	// TaskID 是发布时生成的唯一标识，消费端依赖它做幂等去重。
	TaskID       string                 `json:"task_id"`
	InputPath    string                 `json:"input_path"`
	OutputPath   string                 `json:"output_path"`
	PreviewPath  string                 `json:"preview_path"`
	FormData     map[string]interface{} `json:"form_data"`
	WalletNumber string                 `json:"wallet_number"`
	UserLogoURL  string                 `json:"user_logo_url"`
}

// Encode 将任务序列化为发往消息通道的字节流。
func (t ProfileVideoTask) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// Decode 从消息通道的字节流中还原一个任务。
func Decode(data []byte) (ProfileVideoTask, error) {
	var t ProfileVideoTask
	err := json.Unmarshal(data, &t)
	return t, err
}
