package notifhdl

import (
	"fmt"

	basehdl "civic_admin/internal/api/base/handler"
	notifmodels "civic_admin/internal/api/notification/models"
	notifsvc "civic_admin/internal/api/notification/service"
)

// NotificationHistoryHandler xử lý các request đọc lịch sử fan-out (màn hình audit của admin)
type NotificationHistoryHandler struct {
	*basehdl.BaseHandler[notifmodels.NotificationLog, notifmodels.NotificationLog, notifmodels.NotificationLog]
}

// NewNotificationHistoryHandler tạo mới NotificationHistoryHandler
func NewNotificationHistoryHandler() (*NotificationHistoryHandler, error) {
	logSvc, err := notifsvc.NewNotificationLogService()
	if err != nil {
		return nil, fmt.Errorf("failed to create notification history service: %v", err)
	}
	hdl := &NotificationHistoryHandler{
		BaseHandler: basehdl.NewBaseHandler[notifmodels.NotificationLog, notifmodels.NotificationLog, notifmodels.NotificationLog](logSvc),
	}
	hdl.SetFilterOptions(basehdl.FilterOptions{
		DeniedFields:     []string{},
		AllowedOperators: []string{"$eq", "$gt", "$gte", "$lt", "$lte", "$in", "$nin", "$exists"},
		MaxFields:        10,
	})
	return hdl, nil
}
