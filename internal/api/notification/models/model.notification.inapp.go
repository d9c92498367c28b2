// Package models - InAppNotification thuộc domain Notification.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InAppNotification - thông báo trong ứng dụng, tạo cho từng recipient dự kiến
// bất kể push có gửi được hay không.
type InAppNotification struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID  `json:"userId" bson:"userId" index:"single:1"`
	Title     string              `json:"title" bson:"title"`
	Body      string              `json:"body" bson:"body"`
	IssueID   *primitive.ObjectID `json:"issueId,omitempty" bson:"issueId,omitempty" index:"single:1,sparse"`
	IsRead    bool                `json:"isRead" bson:"isRead" index:"single:1"`
	CreatedAt int64               `json:"createdAt" bson:"createdAt" index:"single:-1"`
	UpdatedAt int64               `json:"updatedAt" bson:"updatedAt"`
}
