// Package models - NotificationLog thuộc domain Notification.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái của một lần fan-out
const (
	NotificationStatusSent    = "sent"    // Mọi destination hợp lệ đều nhận được
	NotificationStatusPartial = "partial" // Có cả thành công lẫn thất bại
	NotificationStatusFailed  = "failed"  // Không destination nào nhận được (kể cả khi không có destination hợp lệ)
)

// NotificationLog - bản ghi audit của một lần fan-out notification. Append-only,
// pipeline không bao giờ sửa hay xóa; màn hình history của admin đọc trực tiếp.
type NotificationLog struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title"`
	Body           string             `json:"body" bson:"body"`
	Target         string             `json:"target" bson:"target" index:"single:1"`
	RecipientCount int                `json:"recipientCount" bson:"recipientCount"`
	SuccessCount   int                `json:"successCount" bson:"successCount"`
	FailureCount   int                `json:"failureCount" bson:"failureCount"`
	Status         string             `json:"status" bson:"status" index:"single:1"`
	SentAt         int64              `json:"sentAt" bson:"sentAt" index:"single:-1"`
	CreatedAt      int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt      int64              `json:"updatedAt" bson:"updatedAt"`
}
