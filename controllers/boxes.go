package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agusu/ppns-hub/models"
	"github.com/agusu/ppns-hub/services/boxes"
)

// BoxController maps the /box surface onto BoxRegistry.
type BoxController struct {
	registry *boxes.Registry
}

func NewBoxController(registry *boxes.Registry) *BoxController {
	return &BoxController{registry: registry}
}

// CreateBox handles PUT /box.
//
// @Summary Create or retrieve a box
// @Description Creates a box for (clientId, boxName), or returns the existing one.
// @Tags boxes
// @Accept json
// @Produce json
// @Param data body models.CreateBoxRequest true "Box creation request"
// @Success 201 {object} models.Box
// @Success 200 {object} models.Box
// @Failure 400 {object} models.ErrorResponse
// @Failure 415 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /box [put]
func (bc *BoxController) CreateBox(c *gin.Context) {
	if c.ContentType() != "application/json" {
		c.JSON(http.StatusUnsupportedMediaType, models.ErrorResponse{Error: "unsupported content type: must be application/json"})
		return
	}

	var req models.CreateBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	result := bc.registry.CreateBox(c.Request.Context(), req.ClientID, req.BoxName)
	switch result.Outcome {
	case models.BoxCreated:
		c.JSON(http.StatusCreated, result.Box)
	case models.BoxRetrieved:
		c.JSON(http.StatusOK, result.Box)
	default:
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: result.Reason})
	}
}

// GetBoxByNameAndClientID handles GET /box?boxName&clientId.
//
// @Summary Look up a box by name and client
// @Tags boxes
// @Produce json
// @Param boxName query string true "Box name"
// @Param clientId query string true "Client id"
// @Success 200 {object} models.Box
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /box [get]
func (bc *BoxController) GetBoxByNameAndClientID(c *gin.Context) {
	boxName := c.Query("boxName")
	clientID := c.Query("clientId")
	if boxName == "" || clientID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "boxName and clientId are required"})
		return
	}

	box, err := bc.registry.GetBoxByNameAndClientID(c.Request.Context(), boxName, clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	if box == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "box not found"})
		return
	}
	c.JSON(http.StatusOK, box)
}
