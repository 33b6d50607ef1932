package main

import (
	"github.com/gin-gonic/gin"

	"github.com/agusu/ppns-hub/controllers"
)

// SetupRoutes wires the inbound API surface onto gin.
func SetupRoutes(router *gin.Engine, boxController *controllers.BoxController, notificationController *controllers.NotificationController, callbackController *controllers.CallbackController, uaAllowList gin.HandlerFunc) {
	router.Use(uaAllowList)

	router.PUT("/box", boxController.CreateBox)
	router.GET("/box", boxController.GetBoxByNameAndClientID)
	router.PUT("/box/:boxId/callback", callbackController.UpdateCallbackURL)
	router.POST("/box/:boxId/notifications", notificationController.Ingest)
	router.GET("/box/:boxId/notifications", notificationController.List)
	router.PUT("/box/:boxId/notifications/acknowledge", notificationController.Acknowledge)
}
