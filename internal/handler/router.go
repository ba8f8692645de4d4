package handler

import (
	"net/http"

	"docflow-go/internal/middleware"
	"docflow-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// RouterDeps 汇总构建路由所需的处理器和鉴权组件。
type RouterDeps struct {
	Upload        *UploadHandler
	Document      *DocumentHandler
	Service       *ServiceHandler
	StatusStream  *StatusStreamHandler
	UserTokens    *token.JWTManager
	ServiceTokens *token.JWTManager
	AllowedIPs    []string
}

// NewRouter 创建 gin 引擎并注册所有路由。
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		userAuth := []gin.HandlerFunc{
			middleware.AuthMiddleware(deps.UserTokens),
			middleware.RequireRoles(middleware.EditorRoles...),
		}

		// Upload 路由组，需要 ADMIN/EDITOR
		upload := apiV1.Group("/upload")
		upload.Use(userAuth...)
		{
			upload.POST("/init", deps.Upload.InitUpload)
			upload.POST("/presign", deps.Upload.Presign)
			upload.POST("/complete", deps.Upload.CompleteUpload)
			upload.POST("/abort", deps.Upload.AbortUpload)
			upload.GET("/status", deps.Upload.GetUploadStatus)
			upload.POST("/send-pending", deps.Upload.SendPending)
		}

		// WebSocket 无法携带授权头，token 走 query 参数，在处理器内校验
		apiV1.GET("/documents/events", deps.StatusStream.Handle)

		documents := apiV1.Group("/documents")
		documents.Use(userAuth...)
		{
			documents.GET("/:id", deps.Document.GetDocument)
			documents.PATCH("/:id", deps.Document.EditDocument)
			documents.DELETE("/:id", deps.Document.DeleteDocument)
		}

		// 服务间调用
		svc := apiV1.Group("/service")
		svc.Use(middleware.ServiceIPAllowlist(deps.AllowedIPs))
		{
			svc.POST("/authenticate", deps.Service.Authenticate)
			svc.POST("/update-status", middleware.ServiceAuthMiddleware(deps.ServiceTokens, token.PermUpdateStatus), deps.Service.UpdateStatus)
		}
	}
	return r
}
