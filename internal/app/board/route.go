package board

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg gin.IRoutes, handler Handler) {
	rg.POST("/boards", handler.CreateBoard)
	rg.GET("/boards/:slug", handler.GetBoardBySlug)
}
