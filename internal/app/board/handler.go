package board

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler interface {
	CreateBoard(c *gin.Context)
	GetBoardBySlug(c *gin.Context)
}

type handler struct {
	service Service
}

func NewHandler(service Service) Handler {
	return &handler{service: service}
}

// @Summary Create board
// @Tags Board
// @Accept json
// @Produce json
// @Param request body CreateBoardRequest true "Board title"
// @Success 201 {object} CreateBoardResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/boards [post]
func (h *handler) CreateBoard(c *gin.Context) {
	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	board, err := h.service.CreateBoard(c.Request.Context(), req.Title)
	if err != nil {
		if errors.Is(err, ErrInvalidTitle) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create board"})
		return
	}

	c.JSON(http.StatusCreated, CreateBoardResponse{
		ID:    board.ID,
		Slug:  board.Slug,
		Title: board.Title,
	})
}

// @Summary Get board by slug
// @Tags Board
// @Produce json
// @Param slug path string true "Board slug"
// @Success 200 {object} Board
// @Failure 404 {object} ErrorResponse
// @Router /api/boards/{slug} [get]
func (h *handler) GetBoardBySlug(c *gin.Context) {
	board, err := h.service.GetBoardBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "board not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch board"})
		return
	}
	c.JSON(http.StatusOK, board)
}
