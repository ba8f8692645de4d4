// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentTask 是发送给处理 worker 的队列消息体。
type DocumentTask struct {
	DocumentID string `json:"documentId"`
	Key        string `json:"key"`
	Bucket     string `json:"bucket"`
	MimeType   string `json:"mimetype"`
	Size       int64  `json:"size"`
	S3Path     string `json:"s3Path"`
}
