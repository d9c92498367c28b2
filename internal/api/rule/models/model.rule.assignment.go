// Package models - AssignmentRule thuộc domain Rule.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentRule - luật phân công: category nào → phòng ban nào.
// Order là thứ tự trên bảng cấu hình của admin; resolver duyệt theo thứ tự này
// (order tăng dần, createdAt tăng dần) và lấy luật khớp đầu tiên.
type AssignmentRule struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Category   string             `json:"category" bson:"category" index:"single:1"`
	Department string             `json:"department" bson:"department"`
	Priority   string             `json:"priority,omitempty" bson:"priority,omitempty"`
	Enabled    bool               `json:"enabled" bson:"enabled" index:"single:1" default:"true"`
	Order      int                `json:"order" bson:"order" index:"single:1"`
	CreatedAt  int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt  int64              `json:"updatedAt" bson:"updatedAt"`
}
