package websocket

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg gin.IRoutes, handler *Handler) {
	rg.GET("/ws", handler.ServeWS)
}
