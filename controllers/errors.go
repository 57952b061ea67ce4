package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attachd/apperr"
	"attachd/utils"
)

// writeError maps a pipeline error kind to an HTTP status. Kinds the caller
// can fix are 4xx; storage trouble and invariant violations are 5xx.
func writeError(ctx *gin.Context, err error) {
	message := apperr.MessageOf(err)
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		utils.Error(ctx, http.StatusBadRequest, 40001, message)
	case apperr.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, 40401, message)
	case apperr.KindForbidden:
		utils.Error(ctx, http.StatusForbidden, 40301, message)
	case apperr.KindUpstreamStorage:
		logServerError(ctx, err)
		utils.Error(ctx, http.StatusBadGateway, 50201, message)
	default:
		logServerError(ctx, err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, message)
	}
}

func logServerError(ctx *gin.Context, err error) {
	if utils.Logger == nil {
		return
	}
	utils.Logger.Error("request failed",
		zap.String("path", ctx.Request.URL.Path),
		zap.String("request_id", ctx.GetString("request_id")),
		zap.Error(err))
}
