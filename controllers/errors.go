package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// statusForKind maps a business error kind to its HTTP status.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindExpired:
		return http.StatusGone
	case services.KindPolicyDenied:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError writes err with the code a client can branch on.
// Anything that is not a business error is logged and reported as a 500.
func RespondServiceError(c *gin.Context, err error) {
	if e, ok := services.AsError(err); ok {
		utils.RespondErrorCode(c, statusForKind(e.Kind), e.Code, e.Message)
		return
	}
	utils.ErrorLogger.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).WithError(err).Error("request failed")
	utils.RespondErrorCode(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
