package model

import "time"

// UploadSession 记录一次进行中的分片上传。保存在 Redis 中，只用于续传和过期清理，
// 不是文档是否存在的依据。
type UploadSession struct {
	UploadID       string    `json:"uploadId"`
	Filename       string    `json:"filename"`
	ContentType    string    `json:"contentType"`
	CreatedAt      time.Time `json:"createdAt"`
	PresignedParts []int     `json:"presignedParts"`
}

// MaxPartNumber 是 S3 分片上传协议允许的最大分片编号。
const MaxPartNumber = 10000

// UploadPart 是客户端上传某个分片后从存储拿到的 ETag。
type UploadPart struct {
	PartNumber int    `json:"PartNumber"`
	ETag       string `json:"ETag"`
}

// UploadStatus 汇总一次上传的续传信息。
type UploadStatus struct {
	UploadID       string `json:"uploadId"`
	Filename       string `json:"filename"`
	PresignedParts []int  `json:"presignedParts"`
	ReceivedParts  []int  `json:"receivedParts"`
}
