package global

import (
	"civic_admin/config"
	"civic_admin/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// Validate là instance validator dùng chung cho toàn bộ ứng dụng
var Validate *validator.Validate

// MongoDB_Session là client MongoDB dùng chung
var MongoDB_Session *mongo.Client

// MongoDB_ServerConfig là cấu hình server đã load từ env
var MongoDB_ServerConfig *config.Configuration

// MongoDBColNames chứa tên các collection trong database
type MongoDBColNames struct {
	Issues             string
	IssueComments      string
	Departments        string
	AuthUsers          string
	AssignmentRules    string
	AutomationRules    string
	NotificationLogs   string
	InAppNotifications string
}

// MongoDB_ColNames là danh sách tên collection dùng chung
var MongoDB_ColNames = MongoDBColNames{
	Issues:             "issues",
	IssueComments:      "issue_comments",
	Departments:        "departments",
	AuthUsers:          "auth_users",
	AssignmentRules:    "assignment_rules",
	AutomationRules:    "automation_rules",
	NotificationLogs:   "notification_logs",
	InAppNotifications: "inapp_notifications",
}

// RegistryCollections quản lý các collection đã khởi tạo
var RegistryCollections = registry.NewRegistry[*mongo.Collection]()

// RegistryDatabase quản lý các database đã khởi tạo
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()
