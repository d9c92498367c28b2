package notifsvc

import (
	"context"
	"fmt"

	basesvc "civic_admin/internal/api/base/service"
	notifmodels "civic_admin/internal/api/notification/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InAppNotificationService là cấu trúc chứa các phương thức liên quan đến InAppNotification
type InAppNotificationService struct {
	*basesvc.BaseServiceMongoImpl[notifmodels.InAppNotification]
}

// NewInAppNotificationService tạo mới InAppNotificationService
func NewInAppNotificationService() (*InAppNotificationService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.InAppNotifications)
	if !exist {
		return nil, fmt.Errorf("failed to get inapp_notifications collection: %v", common.ErrNotFound)
	}

	return &InAppNotificationService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[notifmodels.InAppNotification](collection),
	}, nil
}

// CreateForRecipients tạo một thông báo in-app cho TỪNG recipient dự kiến.
// Độc lập với kết quả push: push fail vẫn tạo in-app. Một recipient lỗi không chặn
// các recipient còn lại, trả về số bản ghi tạo được.
func (s *InAppNotificationService) CreateForRecipients(ctx context.Context, userIDs []primitive.ObjectID, title, body string, issueID *primitive.ObjectID) int {
	created := 0
	for _, userID := range userIDs {
		notification := notifmodels.InAppNotification{
			UserID:  userID,
			Title:   title,
			Body:    body,
			IssueID: issueID,
			IsRead:  false,
		}
		if _, err := s.InsertOne(ctx, notification); err != nil {
			logrus.WithFields(logrus.Fields{
				"userId": userID.Hex(),
				"error":  err.Error(),
			}).Error("❌ Không tạo được in-app notification")
			continue
		}
		created++
	}
	return created
}
