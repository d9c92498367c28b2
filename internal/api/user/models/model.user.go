// Package models - User thuộc domain User.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vai trò của user trong hệ thống admin
const (
	UserRoleAdministrator  = "administrator"
	UserRoleDepartmentHead = "department_head"
	UserRoleStaff          = "staff"
)

// User - tài khoản admin/nhân viên, đích nhận notification.
// PushToken rỗng = không nhận push, vẫn nhận in-app notification.
type User struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	DisplayName string             `json:"displayName" bson:"displayName"`
	Email       string             `json:"email" bson:"email" index:"unique"`
	Role        string             `json:"role" bson:"role" index:"single:1" default:"staff"`
	PushToken   string             `json:"pushToken,omitempty" bson:"pushToken,omitempty"`
	Active      bool               `json:"active" bson:"active" default:"true"`
	CreatedAt   int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt   int64              `json:"updatedAt" bson:"updatedAt"`
}
