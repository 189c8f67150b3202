package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/http/middleware"
	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/response"
)

// requireUser возвращает id пользователя или отвечает 401.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authorization required")
		return uuid.Nil, false
	}
	return userID, true
}

// pathUUID разбирает параметр пути или отвечает 400.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
