package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Standard 全局中间件，顺序固定
// 请求日志包在 panic 恢复外层，恢复后写出的 500 同样会被记录
func Standard(logger *zap.Logger, allowedOrigins []string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		RequestID(),
		GinZapLogger(logger),
		GinZapRecovery(logger, true),
		CORS(allowedOrigins),
	}
}
