// Package notify thực hiện fan-out notification: lọc push token hợp lệ, gọi
// gateway một lần theo batch, ghi audit log và tạo thông báo in-app cho từng
// recipient dự kiến. Kết quả push không ảnh hưởng nhánh in-app.
package notify

import (
	"context"
	"fmt"
	"strings"

	notifmodels "civic_admin/internal/api/notification/models"
	notifsvc "civic_admin/internal/api/notification/service"
	"civic_admin/internal/logger"
	"civic_admin/internal/notify/gateway"
	"civic_admin/internal/utility"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// minPushTokenLength là độ dài tối thiểu của một push token hợp lệ
const minPushTokenLength = 8

// Recipient là một người nhận dự kiến của đợt fan-out
type Recipient struct {
	UserID    primitive.ObjectID
	PushToken string
}

// Result là kết quả đếm của một đợt fan-out
type Result struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// IsValidPushToken kiểm tra token có dạng hợp lệ để gửi đi hay không.
// Token là chuỗi opaque do client đăng ký, chỉ chặn các giá trị chắc chắn rác.
func IsValidPushToken(token string) bool {
	if len(token) < minPushTokenLength {
		return false
	}
	if strings.ContainsAny(token, " \t\n\r") {
		return false
	}
	return true
}

// LogAppender ghi bản ghi audit của một đợt fan-out
type LogAppender interface {
	Append(ctx context.Context, log notifmodels.NotificationLog) (notifmodels.NotificationLog, error)
}

// InAppCreator tạo thông báo in-app cho danh sách recipient
type InAppCreator interface {
	CreateForRecipients(ctx context.Context, userIDs []primitive.ObjectID, title, body string, issueID *primitive.ObjectID) int
}

// Fanout gom ba nhánh của một đợt gửi: push qua gateway, audit log, in-app
type Fanout struct {
	gateway gateway.Gateway
	logs    LogAppender
	inapp   InAppCreator
}

// NewFanout tạo mới Fanout với các service mặc định (đọc từ registry)
func NewFanout(gw gateway.Gateway) (*Fanout, error) {
	logSvc, err := notifsvc.NewNotificationLogService()
	if err != nil {
		return nil, fmt.Errorf("failed to create notification log service: %v", err)
	}
	inappSvc, err := notifsvc.NewInAppNotificationService()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-app notification service: %v", err)
	}
	return NewFanoutWith(gw, logSvc, inappSvc), nil
}

// NewFanoutWith tạo Fanout với các phụ thuộc được cung cấp sẵn
func NewFanoutWith(gw gateway.Gateway, logs LogAppender, inapp InAppCreator) *Fanout {
	return &Fanout{
		gateway: gw,
		logs:    logs,
		inapp:   inapp,
	}
}

// Send thực hiện một đợt fan-out đến danh sách recipient.
//
// Gateway chỉ được gọi một lần theo batch với các token hợp lệ. Không có token
// hợp lệ nào thì bỏ qua gateway nhưng vẫn ghi log (status failed) và vẫn tạo
// in-app. Gateway gọi được nhưng trả lỗi = đợt gửi ĐÃ diễn ra, mọi destination
// tính là thất bại và Send trả về nil error. Send chỉ trả error khi đợt gửi
// không thể diễn ra (chưa cấu hình gateway).
func (f *Fanout) Send(ctx context.Context, title, body, target string, recipients []Recipient, issueID *primitive.ObjectID) (Result, error) {
	log := logger.GetAppLogger()

	validTokens := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if IsValidPushToken(r.PushToken) {
			validTokens = append(validTokens, r.PushToken)
		}
	}

	var result Result
	if len(validTokens) == 0 {
		log.WithFields(map[string]interface{}{
			"target":     target,
			"recipients": len(recipients),
		}).Warn("📣 [FANOUT] Không có push token hợp lệ, bỏ qua gateway")
	} else {
		if f.gateway == nil {
			return Result{}, fmt.Errorf("push gateway chưa được cấu hình")
		}
		statuses, err := f.gateway.Send(ctx, title, body, validTokens)
		if err != nil {
			// Gọi được nhưng không gửi nổi: đợt gửi vẫn tính là đã diễn ra
			result.FailureCount = len(validTokens)
		} else {
			for _, status := range statuses {
				if status == gateway.StatusOK {
					result.SuccessCount++
				} else {
					result.FailureCount++
				}
			}
		}
	}

	status := notifmodels.NotificationStatusFailed
	if result.SuccessCount > 0 && result.FailureCount == 0 {
		status = notifmodels.NotificationStatusSent
	} else if result.SuccessCount > 0 {
		status = notifmodels.NotificationStatusPartial
	}

	if _, err := f.logs.Append(ctx, notifmodels.NotificationLog{
		Title:          title,
		Body:           body,
		Target:         target,
		RecipientCount: len(recipients),
		SuccessCount:   result.SuccessCount,
		FailureCount:   result.FailureCount,
		Status:         status,
		SentAt:         utility.CurrentTimeInMilli(),
	}); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"target": target,
			"status": status,
		}).Error("📣 [FANOUT] Không ghi được notification log")
	}

	userIDs := make([]primitive.ObjectID, 0, len(recipients))
	for _, r := range recipients {
		userIDs = append(userIDs, r.UserID)
	}
	created := f.inapp.CreateForRecipients(ctx, userIDs, title, body, issueID)

	log.WithFields(map[string]interface{}{
		"target":       target,
		"recipients":   len(recipients),
		"validTokens":  len(validTokens),
		"successCount": result.SuccessCount,
		"failureCount": result.FailureCount,
		"status":       status,
		"inappCreated": created,
	}).Info("📣 [FANOUT] Hoàn tất fan-out notification")

	return result, nil
}
