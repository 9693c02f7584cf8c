package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/medsignal/internal/service"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
)

var errBodyNotObject = errors.New("body must be a JSON object")

// NotifyController exposes the broadcast gateway to the CRUD backend.
type NotifyController struct {
	notifier service.Broadcaster
	signals  service.SignalInteractor
	log      *slog.Logger
}

func NewNotifyController(notifier service.Broadcaster, signals service.SignalInteractor, log *slog.Logger) *NotifyController {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyController{notifier: notifier, signals: signals, log: log}
}

func (c *NotifyController) NotifyDoctor(ctx *gin.Context) {
	doctorID := ctx.Param("doctorID")
	if doctorID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "doctor id is required"})
		return
	}
	payload, ok := bindObject(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"delivered": c.notifier.BroadcastToDoctor(doctorID, payload)})
}

func (c *NotifyController) NotifyAdmins(ctx *gin.Context) {
	const op = "api.notify.admins"
	payload, ok := bindObject(ctx)
	if !ok {
		return
	}
	n, err := c.notifier.BroadcastToAdmins(ctx.Request.Context(), payload)
	if err != nil {
		c.log.Error("admin broadcast failed", slog.String("op", op), sl.Err(err))
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "admin directory unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"delivered": n})
}

func (c *NotifyController) NotifyRoom(ctx *gin.Context) {
	consultationID := ctx.Param("consultationID")
	if consultationID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "consultation id is required"})
		return
	}
	payload, ok := bindObject(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"delivered": c.notifier.BroadcastToRoom(consultationID, payload, nil)})
}

func (c *NotifyController) NotifyAll(ctx *gin.Context) {
	payload, ok := bindObject(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"delivered": c.notifier.BroadcastToAll(payload)})
}

func (c *NotifyController) Stats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.signals.Stats())
}

// bindObject reads the request body as a JSON object. It writes a 400 and
// returns false otherwise.
func bindObject(ctx *gin.Context) (map[string]json.RawMessage, bool) {
	var payload map[string]json.RawMessage
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return nil, false
	}
	if payload == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errBodyNotObject.Error()})
		return nil, false
	}
	return payload, true
}
