package handler

import (
	"net/http"

	"docflow-go/internal/service"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// EditDocumentRequest 定义了手动修改文档的请求体，字段均可选。
type EditDocumentRequest struct {
	Status  *string `json:"status"`
	Message *string `json:"message"`
}

// GetDocument 处理获取单个文档的请求。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.docService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get document", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// EditDocument 处理 ADMIN/EDITOR 手动修改文档状态或消息的请求。
func (h *DocumentHandler) EditDocument(c *gin.Context) {
	var req EditDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	doc, err := h.docService.EditDocument(c.Request.Context(), c.Param("id"), req.Status, req.Message)
	if err != nil {
		respondError(c, "edit document", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument 处理删除文档的请求：先删存储对象，再删记录。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.docService.Remove(c.Request.Context(), id); err != nil {
		respondError(c, "delete document", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Document deleted successfully",
		"deletedId": id,
	})
}
