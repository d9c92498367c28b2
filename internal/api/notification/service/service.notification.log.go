package notifsvc

import (
	"context"
	"fmt"

	basesvc "civic_admin/internal/api/base/service"
	notifmodels "civic_admin/internal/api/notification/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"
)

// NotificationLogService là cấu trúc chứa các phương thức liên quan đến NotificationLog
type NotificationLogService struct {
	*basesvc.BaseServiceMongoImpl[notifmodels.NotificationLog]
}

// NewNotificationLogService tạo mới NotificationLogService
func NewNotificationLogService() (*NotificationLogService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.NotificationLogs)
	if !exist {
		return nil, fmt.Errorf("failed to get notification_logs collection: %v", common.ErrNotFound)
	}

	return &NotificationLogService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[notifmodels.NotificationLog](collection),
	}, nil
}

// Append ghi một bản ghi audit fan-out. Log là append-only: không có API sửa/xóa.
func (s *NotificationLogService) Append(ctx context.Context, log notifmodels.NotificationLog) (notifmodels.NotificationLog, error) {
	return s.InsertOne(ctx, log)
}
