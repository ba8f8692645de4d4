package handler

import (
	"errors"
	"io"
	"net/http"

	"docflow-go/internal/model"
	"docflow-go/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理所有与文件上传相关的 API 请求。
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// InitUploadRequest 定义了初始化分片上传的请求体。
type InitUploadRequest struct {
	Filename string `json:"filename"`
}

// PresignRequest 定义了获取分片上传地址的请求体。
type PresignRequest struct {
	Filename   string `json:"filename"`
	UploadID   string `json:"uploadId"`
	PartNumber int    `json:"partNumber"`
}

// CompleteUploadRequest 定义了完成分片上传的请求体。
type CompleteUploadRequest struct {
	Filename string             `json:"filename"`
	UploadID string             `json:"uploadId"`
	Parts    []model.UploadPart `json:"parts"`
}

// AbortUploadRequest 定义了中止分片上传的请求体。
type AbortUploadRequest struct {
	Filename string `json:"filename"`
	UploadID string `json:"uploadId"`
}

// SendPendingRequest 定义了重新发送 pending 文档的请求体，id 可选。
type SendPendingRequest struct {
	ID string `json:"id"`
}

// InitUpload 处理初始化分片上传的请求。
func (h *UploadHandler) InitUpload(c *gin.Context) {
	var req InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	uploadID, err := h.uploadService.InitUpload(c.Request.Context(), req.Filename)
	if err != nil {
		respondError(c, "init upload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadId": uploadID})
}

// Presign 处理获取分片上传地址的请求。
func (h *UploadHandler) Presign(c *gin.Context) {
	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "filename, uploadId, and partNumber are required")
		return
	}
	url, err := h.uploadService.PresignPart(c.Request.Context(), req.Filename, req.UploadID, req.PartNumber)
	if err != nil {
		respondError(c, "presign part", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CompleteUpload 处理完成分片上传的请求。
func (h *UploadHandler) CompleteUpload(c *gin.Context) {
	var req CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	result, err := h.uploadService.CompleteUpload(c.Request.Context(), req.Filename, req.UploadID, req.Parts)
	if err != nil {
		respondError(c, "complete upload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Upload completed successfully",
		"documentId": result.DocumentID,
		"status":     result.Status,
	})
}

// AbortUpload 处理中止分片上传的请求。
func (h *UploadHandler) AbortUpload(c *gin.Context) {
	var req AbortUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.uploadService.AbortUpload(c.Request.Context(), req.Filename, req.UploadID); err != nil {
		respondError(c, "abort upload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upload aborted successfully"})
}

// GetUploadStatus 处理查询上传进度的请求，用于断点续传。
func (h *UploadHandler) GetUploadStatus(c *gin.Context) {
	status, err := h.uploadService.GetUploadStatus(c.Request.Context(), c.Query("filename"), c.Query("uploadId"))
	if err != nil {
		respondError(c, "get upload status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// SendPending 处理重新发送 pending 文档到队列的请求。请求体可以为空。
func (h *UploadHandler) SendPending(c *gin.Context) {
	var req SendPendingRequest
	// 分块传输时 ContentLength 为 -1，空请求体只能靠 io.EOF 识别
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}
	msg, err := h.uploadService.SendPendingDocumentsToQueue(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, "send pending documents", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
