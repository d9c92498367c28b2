// Package models - AutomationRule thuộc domain Rule.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trigger của automation rule
const (
	TriggerIssueCreated    = "issue_created"
	TriggerStatusChanged   = "status_changed"
	TriggerIssueAssigned   = "issue_assigned"
	TriggerPriorityChanged = "priority_changed"
	TriggerCommentAdded    = "comment_added"
)

// AutomationRule - luật tự động gửi notification khi có sự kiện trên issue.
// TimesTriggered chỉ tăng, mỗi lần fan-out được thực hiện thành công tăng đúng 1.
type AutomationRule struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Trigger        string             `json:"trigger" bson:"trigger" index:"single:1"`
	Enabled        bool               `json:"enabled" bson:"enabled" index:"single:1" default:"true"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	TimesTriggered int64              `json:"timesTriggered" bson:"timesTriggered"`
	LastTriggered  *int64             `json:"lastTriggered,omitempty" bson:"lastTriggered,omitempty"`
	CreatedAt      int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt      int64              `json:"updatedAt" bson:"updatedAt"`
}
