package model

import "errors"

// 业务层哨兵错误，handler 通过 errors.Is 映射为 HTTP 状态码。
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUploadNotFound    = errors.New("upload not found")
	ErrDuplicateFilename = errors.New("a document with this filename already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStore             = errors.New("object store error")
	ErrQueuePublish      = errors.New("failed to publish to queue")
	ErrUnauthorized      = errors.New("unauthorized")
)
