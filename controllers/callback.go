package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agusu/ppns-hub/models"
	"github.com/agusu/ppns-hub/services/callback"
)

// CallbackController maps PUT /box/{boxId}/callback onto CallbackValidator.
type CallbackController struct {
	validator *callback.Validator
}

func NewCallbackController(validator *callback.Validator) *CallbackController {
	return &CallbackController{validator: validator}
}

// UpdateCallbackURL handles PUT /box/{boxId}/callback.
//
// @Summary Update a box's callback URL
// @Description Validates and persists a new callback URL, or clears the subscriber when empty.
// @Tags callback
// @Accept json
// @Produce json
// @Param boxId path string true "Box id"
// @Param data body models.UpdateCallbackURLRequest true "Callback update request"
// @Success 200 {object} models.UpdateCallbackURLResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /box/{boxId}/callback [put]
func (cc *CallbackController) UpdateCallbackURL(c *gin.Context) {
	boxID, err := uuid.Parse(c.Param("boxId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid boxId"})
		return
	}

	var req models.UpdateCallbackURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	result := cc.validator.ValidateCallbackURL(c.Request.Context(), boxID, req)
	switch result.Outcome {
	case models.CallbackUpdated:
		c.JSON(http.StatusOK, models.UpdateCallbackURLResponse{Successful: true})
	case models.CallbackValidationFailed, models.CallbackUnableToUpdate:
		c.JSON(http.StatusOK, models.UpdateCallbackURLResponse{Successful: false, ErrorMessage: result.Reason})
	case models.CallbackUnauthorized:
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: result.Reason})
	case models.CallbackBoxNotFound:
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "box not found"})
	}
}
