// Package router đăng ký các route thuộc domain Notification: History (read-only).
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	notifhdl "civic_admin/internal/api/notification/handler"
	apirouter "civic_admin/internal/api/router"
)

// Register đăng ký tất cả route notification lên v1.
func Register(v1 fiber.Router, r *apirouter.Router) error {
	historyHandler, err := notifhdl.NewNotificationHistoryHandler()
	if err != nil {
		return fmt.Errorf("create notification history handler: %w", err)
	}
	r.RegisterCRUDRoutes(v1, "/notification/history", historyHandler, apirouter.ReadOnlyConfig)
	return nil
}
