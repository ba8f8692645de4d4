package handler

import (
	"net/http"
	"time"

	"docflow-go/internal/middleware"
	"docflow-go/pkg/log"
	"docflow-go/pkg/notify"
	"docflow-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，鉴权依赖 token
	},
}

// StatusStreamHandler 通过 WebSocket 推送文档状态变化。
type StatusStreamHandler struct {
	hub        *notify.Hub
	jwtManager *token.JWTManager
}

// NewStatusStreamHandler 创建一个新的 StatusStreamHandler。
func NewStatusStreamHandler(hub *notify.Hub, jwtManager *token.JWTManager) *StatusStreamHandler {
	return &StatusStreamHandler{hub: hub, jwtManager: jwtManager}
}

// Handle 校验 query 中的用户 token 后升级连接，并持续推送事件直到连接关闭。
func (h *StatusStreamHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token"})
		return
	}
	if !middleware.HasRole(claims.Role, middleware.EditorRoles...) {
		c.JSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "权限不足"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)
	log.Infof("状态订阅连接已建立，用户: %s", claims.Username)

	// 读循环只用于感知断开和处理 pong
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			log.Infof("状态订阅连接已断开，用户: %s", claims.Username)
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Warnf("推送状态事件失败: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
