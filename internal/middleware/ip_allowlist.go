package middleware

import (
	"net"
	"net/http"

	"docflow-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ServiceIPAllowlist 只放行来自允许地址的请求。列表为空或包含 "*" 时全部放行。
// 条目可以是单个 IP 或 CIDR。
func ServiceIPAllowlist(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	var ips []net.IP
	var nets []*net.IPNet
	for _, entry := range allowed {
		if entry == "*" {
			allowAll = true
			continue
		}
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
			continue
		}
		log.Warnf("[ServiceIPAllowlist] 忽略无效的地址: %s", entry)
	}

	return func(c *gin.Context) {
		if allowAll {
			c.Next()
			return
		}
		clientIP := net.ParseIP(c.ClientIP())
		if clientIP != nil {
			for _, ip := range ips {
				if ip.Equal(clientIP) {
					c.Next()
					return
				}
			}
			for _, n := range nets {
				if n.Contains(clientIP) {
					c.Next()
					return
				}
			}
		}
		log.Warnf("[ServiceIPAllowlist] 拒绝来自 %s 的服务调用", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "forbidden"})
	}
}
