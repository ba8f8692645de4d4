package handler

import (
	"net/http"

	"docflow-go/internal/model"
	"docflow-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ServiceHandler 处理服务间调用：服务认证和 worker 状态回调。
type ServiceHandler struct {
	authService service.ServiceAuthService
	docService  service.DocumentService
}

// NewServiceHandler 创建一个新的 ServiceHandler 实例。
func NewServiceHandler(authService service.ServiceAuthService, docService service.DocumentService) *ServiceHandler {
	return &ServiceHandler{authService: authService, docService: docService}
}

// AuthenticateRequest 定义了服务认证的请求体。
type AuthenticateRequest struct {
	ServiceID     string `json:"serviceId"`
	ServiceSecret string `json:"serviceSecret"`
}

// UpdateStatusRequest 定义了 worker 状态回调的请求体。
type UpdateStatusRequest struct {
	DocumentID string  `json:"documentId"`
	Status     string  `json:"status"`
	Message    *string `json:"message"`
}

// Authenticate 用服务凭据换取服务令牌。
func (h *ServiceHandler) Authenticate(c *gin.Context) {
	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	tok, err := h.authService.Authenticate(c.Request.Context(), req.ServiceID, req.ServiceSecret)
	if err != nil {
		respondError(c, "authenticate service", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken": tok.AccessToken,
		"expiresIn":   tok.ExpiresIn,
	})
}

// UpdateStatus 应用 worker 回报的处理结果。
func (h *ServiceHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	doc, err := h.docService.ApplyWorkerStatus(c.Request.Context(), req.DocumentID, req.Status, req.Message)
	if err != nil {
		respondError(c, "update status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Injection status updated successfully",
		"documentId": doc.ID,
		"status":     doc.Status,
		"updatedAt":  model.LocalTime(doc.UpdatedAt),
	})
}
