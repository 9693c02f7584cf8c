package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const internalKeyHeader = "X-Internal-Key"

// requireInternalKey rejects requests without the shared service key. An
// empty configured key rejects everything.
func requireInternalKey(key string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		got := ctx.GetHeader(internalKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx.Next()
	}
}
