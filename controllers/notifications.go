package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agusu/ppns-hub/models"
	"github.com/agusu/ppns-hub/services/delivery"
	"github.com/agusu/ppns-hub/services/notifications"
)

var errUnsupportedContentType = errors.New("unsupported content type: must be application/json or application/xml")

// NotificationController maps the /box/{boxId}/notifications surface
// onto DeliveryCoordinator and NotificationStore.
type NotificationController struct {
	coordinator *delivery.Coordinator
	store       *notifications.Store
}

func NewNotificationController(coordinator *delivery.Coordinator, store *notifications.Store) *NotificationController {
	return &NotificationController{coordinator: coordinator, store: store}
}

// Ingest handles POST /box/{boxId}/notifications.
//
// @Summary Publish a notification into a box
// @Tags notifications
// @Accept json,xml
// @Produce json
// @Param boxId path string true "Box id"
// @Success 202 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 415 {object} models.ErrorResponse
// @Router /box/{boxId}/notifications [post]
func (nc *NotificationController) Ingest(c *gin.Context) {
	boxID, err := uuid.Parse(c.Param("boxId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid boxId"})
		return
	}

	contentType, err := parseContentType(c.ContentType())
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, models.ErrorResponse{Error: err.Error()})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unable to read request body"})
		return
	}
	if len(payload) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "request body must not be empty"})
		return
	}

	notificationID := uuid.Nil
	if raw := c.GetHeader("X-Notification-Id"); raw != "" {
		notificationID, err = uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid X-Notification-Id"})
			return
		}
	}

	result := nc.coordinator.SaveAndMaybePush(c.Request.Context(), boxID, notificationID, contentType, payload)
	switch result.Outcome {
	case models.DeliverySuccess, models.DeliveryDuplicateSuppressed:
		c.JSON(http.StatusAccepted, models.MessageResponse{Message: "notification accepted"})
	case models.DeliveryBoxNotFound:
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: result.Reason})
	case models.DeliveryStorageFailure:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal storage failure"})
	}
}

// List handles GET /box/{boxId}/notifications?status&fromDate&toDate.
//
// @Summary List notifications in a box
// @Tags notifications
// @Produce json
// @Param boxId path string true "Box id"
// @Param status query string false "PENDING, ACKNOWLEDGED, or FAILED"
// @Param fromDate query string false "RFC3339 lower bound (inclusive)"
// @Param toDate query string false "RFC3339 upper bound (inclusive)"
// @Success 200 {array} notifications.DecryptedNotification
// @Failure 400 {object} models.ErrorResponse
// @Router /box/{boxId}/notifications [get]
func (nc *NotificationController) List(c *gin.Context) {
	boxID, err := uuid.Parse(c.Param("boxId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid boxId"})
		return
	}

	var filters notifications.Filters
	if raw := c.Query("status"); raw != "" {
		status := models.NotificationStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("fromDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid fromDate"})
			return
		}
		filters.From = &t
	}
	if raw := c.Query("toDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid toDate"})
			return
		}
		filters.To = &t
	}

	results, err := nc.store.GetByBoxIDAndFilters(c.Request.Context(), boxID, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

// Acknowledge handles PUT /box/{boxId}/notifications/acknowledge.
//
// @Summary Acknowledge notifications
// @Tags notifications
// @Accept json
// @Produce json
// @Param boxId path string true "Box id"
// @Param data body models.AcknowledgeRequest true "Notification ids to acknowledge"
// @Success 204 "No Content"
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /box/{boxId}/notifications/acknowledge [put]
func (nc *NotificationController) Acknowledge(c *gin.Context) {
	boxID, err := uuid.Parse(c.Param("boxId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid boxId"})
		return
	}

	var req models.AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.NotificationIDs))
	for _, raw := range req.NotificationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid notificationId: " + raw})
			return
		}
		ids = append(ids, id)
	}

	if !nc.store.Acknowledge(c.Request.Context(), boxID, ids) {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to acknowledge notifications"})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseContentType(raw string) (models.ContentType, error) {
	switch raw {
	case "application/json":
		return models.ContentTypeJSON, nil
	case "application/xml", "text/xml":
		return models.ContentTypeXML, nil
	default:
		return "", errUnsupportedContentType
	}
}
