package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// GetNotifications returns the caller's most recent notifications
func (nc *NotificationController) GetNotifications(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	notifications, err := nc.notifications.List(ctx, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Notifications retrieved successfully", notifications)
}

func (nc *NotificationController) MarkRead(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := nc.notifications.MarkRead(ctx, actor, id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Notification marked as read", nil)
}
