package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRoundTrip(t *testing.T) {
	task := ProfileVideoTask{
		TaskID:      "0f4c2d8e-2b1a-4f6d-9c3e-5a7b8d9e0f12",
		InputPath:   "/tmp/vprofile/a.mp4",
		OutputPath:  "/tmp/vprofile/a_out.mp4",
		PreviewPath: "/tmp/vprofile/a_preview.mp4",
		FormData: map[string]interface{}{
			"name":     "Ada",
			"hobbies":  "chess",
			"city":     "Berlin",
			"address":  []interface{}{"Unter den Linden 1", "10117 Berlin"},
			"latitude": 52.5163,
			"is_mlm":   false,
			"hashtags": "#Chess#travel",
		},
		WalletNumber: "9c56cc51b374c3ba189210d5b6d4bf57790d351c96c47c02190ecf1e430635ab",
		// URL 型字段编码前必须是普通字符串，路径和查询串不能丢失。
		UserLogoURL: "https://cdn.example.com/logos/ada.png?v=2&sig=a%2Fb",
	}

	data, err := task.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, task.TaskID, decoded.TaskID)
	assert.Equal(t, task.InputPath, decoded.InputPath)
	assert.Equal(t, task.OutputPath, decoded.OutputPath)
	assert.Equal(t, task.PreviewPath, decoded.PreviewPath)
	assert.Equal(t, task.WalletNumber, decoded.WalletNumber)
	assert.Equal(t, task.UserLogoURL, decoded.UserLogoURL)
	assert.Equal(t, "Ada", decoded.FormData["name"])
	assert.Equal(t, "#Chess#travel", decoded.FormData["hashtags"])
}

func TestTaskWireKeys(t *testing.T) {
	data, err := ProfileVideoTask{TaskID: "t1"}.Encode()
	require.NoError(t, err)

	payload := string(data)
	for _, key := range []string{
		`"task_id"`, `"input_path"`, `"output_path"`, `"preview_path"`,
		`"form_data"`, `"wallet_number"`, `"user_logo_url"`,
	} {
		assert.Contains(t, payload, key)
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	_, err := Decode([]byte("not-json"))
	require.Error(t, err)
}
