// Package models - Issue thuộc domain Issue.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái của issue
const (
	IssueStatusOpen       = "open"        // Mới tiếp nhận, chưa xử lý
	IssueStatusInProgress = "in_progress" // Đang xử lý
	IssueStatusResolved   = "resolved"    // Đã xử lý xong
)

// Mức độ ưu tiên của issue
const (
	IssuePriorityCritical = "critical"
	IssuePriorityHigh     = "high"
	IssuePriorityMedium   = "medium"
	IssuePriorityLow      = "low"
)

// GeoPoint - tọa độ địa lý của issue (WGS84)
type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat" validate:"latitude_range"`
	Lng float64 `json:"lng" bson:"lng" validate:"longitude_range"`
}

// Issue - phản ánh của người dân (rác thải, ổ gà, chiếu sáng...)
// AssignedDepartment rỗng hoặc thiếu = chưa phân công (pipeline không bao giờ xóa giá trị đã gán).
// DuplicateOfID/DuplicateScore chỉ do pipeline ghi, admin có thể gỡ cờ qua API.
type Issue struct {
	ID                 primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Title              string              `json:"title" bson:"title"`
	Description        string              `json:"description,omitempty" bson:"description,omitempty"`
	Category           string              `json:"category" bson:"category" index:"single:1"`
	Status             string              `json:"status" bson:"status" index:"single:1" default:"open"`
	Priority           string              `json:"priority,omitempty" bson:"priority,omitempty"`
	AssignedDepartment string              `json:"assignedDepartment,omitempty" bson:"assignedDepartment,omitempty" index:"single:1"`
	Location           *GeoPoint           `json:"location,omitempty" bson:"location,omitempty"`
	ReportedAt         int64               `json:"reportedAt" bson:"reportedAt" index:"single:-1"`
	DuplicateOfID      *primitive.ObjectID `json:"duplicateOfId,omitempty" bson:"duplicateOfId,omitempty" index:"single:1,sparse"`
	DuplicateScore     *float64            `json:"duplicateScore,omitempty" bson:"duplicateScore,omitempty"`
	CreatedAt          int64               `json:"createdAt" bson:"createdAt"`
	UpdatedAt          int64               `json:"updatedAt" bson:"updatedAt"`
}

// IsUnassigned cho biết issue chưa được phân công phòng ban
func (i *Issue) IsUnassigned() bool {
	return i.AssignedDepartment == ""
}
