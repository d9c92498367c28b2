package main

import (
	"context"

	"civic_admin/config"
	deptmodels "civic_admin/internal/api/department/models"
	issuemodels "civic_admin/internal/api/issue/models"
	notifmodels "civic_admin/internal/api/notification/models"
	rulemodels "civic_admin/internal/api/rule/models"
	usermodels "civic_admin/internal/api/user/models"
	"civic_admin/internal/database"
	"civic_admin/internal/global"
	"civic_admin/internal/utility"

	"github.com/sirupsen/logrus"
)

// Hàm khởi tạo các biến toàn cục.
// Tên collection khai báo tĩnh trong global.MongoDB_ColNames, không cần init riêng.
func InitGlobal() {
	initValidator()        // Khởi tạo validator
	initConfig()           // Khởi tạo cấu hình server
	initDatabase_MongoDB() // Khởi tạo kết nối database
	initFirebase()         // Khởi tạo Firebase (tùy chọn, cho kênh đẩy FCM)
}

// Hàm khởi tạo validator (dùng global.InitValidator để đăng ký custom validators: latitude_range, longitude_range, ...)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator") // Ghi log thông báo đã khởi tạo validator
}

// Hàm khởi tạo cấu hình server
func initConfig() {
	global.MongoDB_ServerConfig = config.NewConfig()
	if global.MongoDB_ServerConfig == nil {
		logrus.Fatalf("Failed to initialize config: config is nil") // Ghi log lỗi nếu khởi tạo cấu hình thất bại
	}
	logrus.Info("Initialized server config") // Ghi log thông báo đã khởi tạo cấu hình server
}

// Hàm khởi tạo kết nối database
func initDatabase_MongoDB() {
	var err error
	global.MongoDB_Session, err = database.GetInstance(global.MongoDB_ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to get database instance: %v", err) // Ghi log lỗi nếu kết nối database thất bại
	}
	logrus.Info("Connected to MongoDB") // Ghi log thông báo đã kết nối database thành công

	// Khởi tạo các db và collections nếu chưa có
	database.EnsureDatabaseAndCollections(global.MongoDB_Session)
	logrus.Info("Ensured database and collections") // Ghi log thông báo đã đảm bảo database và các collection

	// Khởi tạo các index cho các collection
	dbName := global.MongoDB_ServerConfig.MongoDB_DBName_Data
	db := global.MongoDB_Session.Database(dbName)
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Issues), issuemodels.Issue{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.IssueComments), issuemodels.IssueComment{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Departments), deptmodels.Department{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.AuthUsers), usermodels.User{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.AssignmentRules), rulemodels.AssignmentRule{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.AutomationRules), rulemodels.AutomationRule{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.NotificationLogs), notifmodels.NotificationLog{})
	database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.InAppNotifications), notifmodels.InAppNotification{})
}

// initFirebase khởi tạo Firebase Admin SDK (dùng cho kênh đẩy FCM).
// Không fatal khi thiếu config: hệ thống vẫn chạy được với HTTP push gateway.
func initFirebase() {
	cfg := global.MongoDB_ServerConfig

	if cfg.FirebaseProjectID == "" || cfg.FirebaseCredentialsPath == "" {
		logrus.Warn("Firebase config không đầy đủ, bỏ qua khởi tạo Firebase")
		return
	}

	err := utility.InitFirebase(cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
	if err != nil {
		logrus.Errorf("Failed to initialize Firebase: %v", err)
		return
	}

	logrus.Info("Firebase initialized successfully")
}
