// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strings"

	"docflow-go/internal/model"
	"docflow-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// respondError 把业务错误映射为 HTTP 状态码。存储和内部错误只返回通用信息，细节写日志。
func respondError(c *gin.Context, op string, err error) {
	status, message := http.StatusInternalServerError, op+" failed"
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		status, message = http.StatusBadRequest, clientMessage(err, model.ErrInvalidRequest)
	case errors.Is(err, model.ErrDocumentNotFound):
		status, message = http.StatusNotFound, model.ErrDocumentNotFound.Error()
	case errors.Is(err, model.ErrUploadNotFound):
		status, message = http.StatusNotFound, model.ErrUploadNotFound.Error()
	case errors.Is(err, model.ErrDuplicateFilename):
		status, message = http.StatusConflict, model.ErrDuplicateFilename.Error()
	case errors.Is(err, model.ErrInvalidTransition):
		status, message = http.StatusConflict, clientMessage(err, nil)
	case errors.Is(err, model.ErrQueuePublish):
		status, message = http.StatusServiceUnavailable, model.ErrQueuePublish.Error()
	case errors.Is(err, model.ErrUnauthorized):
		status, message = http.StatusUnauthorized, model.ErrUnauthorized.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Errorw("request failed", "op", op, "status", status, "path", c.FullPath(), "error", err)
	} else {
		log.Warnw("request rejected", "op", op, "status", status, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"code": status, "message": message})
}

// clientMessage 去掉哨兵前缀，只保留给客户端看的具体说明。
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	if sentinel != nil {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": message})
}
