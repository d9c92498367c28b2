// Package models - Department thuộc domain Department.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Department - phòng ban xử lý issue. Name là khóa tự nhiên mà assignment rule trỏ tới.
// Categories chỉ mang tính mô tả, việc phân công do assignment_rules quyết định.
type Department struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name" index:"unique"`
	Active     bool               `json:"active" bson:"active" default:"true"`
	Categories []string           `json:"categories,omitempty" bson:"categories,omitempty"`
	CreatedAt  int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt  int64              `json:"updatedAt" bson:"updatedAt"`
}
