package gateway

import (
	"context"
	"fmt"

	"civic_admin/internal/logger"
	"civic_admin/internal/utility"

	"firebase.google.com/go/v4/messaging"
)

// FCMGateway gửi push qua Firebase Cloud Messaging
type FCMGateway struct {
	client *messaging.Client
}

// NewFCMGateway tạo mới FCMGateway từ Messaging client đã init lúc khởi động
func NewFCMGateway() (*FCMGateway, error) {
	client := utility.GetFirebaseMessaging()
	if client == nil {
		return nil, fmt.Errorf("firebase messaging chưa được khởi tạo")
	}
	return &FCMGateway{client: client}, nil
}

// Send gửi multicast đến FCM và map BatchResponse về trạng thái per-destination
func (g *FCMGateway) Send(ctx context.Context, title, body string, destinations []string) ([]string, error) {
	log := logger.GetAppLogger()

	message := &messaging.MulticastMessage{
		Tokens: destinations,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}

	batch, err := g.client.SendEachForMulticast(ctx, message)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"tokens": len(destinations),
		}).Error("📨 [PUSH_FCM] Lỗi khi gọi FCM")
		return nil, err
	}

	statuses := make([]string, len(destinations))
	for i, resp := range batch.Responses {
		if resp.Success {
			statuses[i] = StatusOK
		} else if resp.Error != nil {
			statuses[i] = resp.Error.Error()
		} else {
			statuses[i] = "delivery failed"
		}
	}
	return statuses, nil
}
