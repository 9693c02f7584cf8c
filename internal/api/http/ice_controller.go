package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/medsignal/internal/api/http/converter"
	"github.com/immxrtalbeast/medsignal/internal/config"
)

type ICEController struct {
	resp *converter.ICEServersResponse
}

func NewICEController(cfg config.WebRTCConfig) *ICEController {
	return &ICEController{resp: converter.ICEServersFromConfig(cfg)}
}

func (c *ICEController) ListServers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.resp)
}
