// Package controller holds helpers shared by the user and admin HTTP handlers.
package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/service"
	"github.com/rs/zerolog/log"
)

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAttemptClosed),
		errors.Is(err, service.ErrAlreadyGraded),
		errors.Is(err, service.ErrAttemptNotCompleted):
		return http.StatusConflict
	case errors.Is(err, service.ErrQuestionNotInAttempt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidExam),
		errors.Is(err, service.ErrInvalidSkill),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrNotManuallyGradable):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAssistantUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError logs a failed operation and writes the matching ErrorResponse.
func RespondError(ctx *gin.Context, op string, err error) {
	status := StatusFor(err)
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Int("status", status).Str("path", ctx.FullPath()).Msg(op + ": service error")
	ctx.JSON(status, dto.ErrorResponse{Message: op + " failed", Details: []string{err.Error()}})
}

// ParamID reads a positive numeric path parameter, answering 400 when it is malformed.
func ParamID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || val == 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

// BindJSON binds the body into req, answering 400 on failure.
func BindJSON(ctx *gin.Context, op string, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		log.Warn().Err(err).Msg(op + ": Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return false
	}
	return true
}
