package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

// RequestLogger пишет в лог каждый запрос с кодом ответа и длительностью.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if userID, ok := UserID(c); ok {
			fields["user_id"] = userID
		}

		entry := logger.Get().WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("http: запрос завершился ошибкой")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("http: запрос отклонён")
		default:
			entry.Info("http: запрос обработан")
		}
	}
}

// ErrorHandler отвечает на ошибки, добавленные через c.Error, если хэндлер
// сам не записал ответ, и перехватывает panic. Внутренние ошибки маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Get().WithFields(logrus.Fields{
					"panic":  r,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
					"stack":  string(debug.Stack()),
				}).Error("http: panic в обработчике")
				if !c.Writer.Written() {
					response.Error(c, apperror.New(apperror.ErrCodeInternal, "internal server error"))
				}
				c.Abort()
			}
		}()

		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if apperror.CodeOf(err) == "" || apperror.CodeOf(err) == apperror.ErrCodeDatabaseError {
			logger.Get().WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("http: внутренняя ошибка")
		}
		response.Error(c, err)
	}
}
