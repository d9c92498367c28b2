package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v3"

	"civic_admin/internal/global"
	"civic_admin/internal/logger"
	"civic_admin/internal/notify"
	notifygw "civic_admin/internal/notify/gateway"
	"civic_admin/internal/pipeline"
	"civic_admin/internal/worker"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Khởi tạo logger với cấu hình mặc định
	// Logger sẽ tự động đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Log thông tin khởi tạo bằng logger mới
	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// buildPushGateway chọn kênh đẩy theo config: có PUSH_GATEWAY_URL thì dùng
// HTTP gateway, không thì dùng FCM (nếu Firebase đã init). Không có kênh nào
// cũng không fatal: fanout sẽ báo lỗi per-attempt và hệ thống vẫn chạy.
func buildPushGateway() notifygw.Gateway {
	log := logger.GetAppLogger()
	cfg := global.MongoDB_ServerConfig

	if cfg.PushGateway_URL != "" {
		log.WithFields(map[string]interface{}{
			"url": cfg.PushGateway_URL,
		}).Info("Using HTTP push gateway")
		return notifygw.NewHTTPGateway(cfg.PushGateway_URL, cfg.PushGateway_Token, cfg.PushGateway_Timeout)
	}

	fcm, err := notifygw.NewFCMGateway()
	if err != nil {
		log.WithError(err).Warn("Không có kênh đẩy nào được cấu hình, push notification sẽ không gửi được")
		return nil
	}
	log.Info("Using FCM push gateway")
	return fcm
}

// main_thread khởi tạo và chạy Fiber server
func main_thread(pipe *pipeline.Pipeline) {
	// Khởi tạo app với cấu hình
	app := InitFiberApp(pipe)

	// Khởi động server với cấu hình listen
	cfg := global.MongoDB_ServerConfig
	address := cfg.Address

	log := logger.GetAppLogger()
	log.Info("Starting Fiber server...")

	// Helper function để resolve đường dẫn từ thư mục gốc project
	resolvePath := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		currentDir, err := os.Getwd()
		if err != nil {
			return path
		}
		for {
			envDir := filepath.Join(currentDir, "config", "env")
			if _, err := os.Stat(envDir); err == nil {
				return filepath.Join(currentDir, path)
			}
			parentDir := filepath.Dir(currentDir)
			if parentDir == currentDir {
				return path
			}
			currentDir = parentDir
		}
	}

	// Kiểm tra xem có bật TLS không
	if cfg.EnableTLS && cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		// Resolve đường dẫn certificate và key
		certPath := resolvePath(cfg.TLSCertFile)
		keyPath := resolvePath(cfg.TLSKeyFile)

		// Kiểm tra file certificate và key tồn tại
		if _, err := os.Stat(certPath); os.IsNotExist(err) {
			log.Fatalf("TLS certificate file not found: %s (resolved from: %s)", certPath, cfg.TLSCertFile)
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			log.Fatalf("TLS key file not found: %s (resolved from: %s)", keyPath, cfg.TLSKeyFile)
		}

		// Load certificate và key
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			log.Fatalf("Error loading TLS certificate: %v", err)
		}

		// Tạo listener với TLS
		ln, err := net.Listen("tcp", address)
		if err != nil {
			log.Fatalf("Error creating listener: %v", err)
		}

		// Cấu hình TLS
		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}

		// Wrap listener với TLS
		tlsListener := tls.NewListener(ln, tlsConfig)

		log.WithFields(map[string]interface{}{
			"address": address,
			"cert":    certPath,
			"key":     keyPath,
		}).Info("Starting server with HTTPS/TLS")

		// Khởi động server với TLS listener
		if err := app.Listener(tlsListener); err != nil {
			log.Fatalf("Error in Fiber Listener with TLS: %v", err)
		}
	} else {
		// Khởi động server HTTP thông thường
		log.WithFields(map[string]interface{}{
			"address":  address,
			"protocol": "HTTP",
		}).Info("Starting server with HTTP")

		listenConfig := fiber.ListenConfig{}
		if err := app.Listen(address, listenConfig); err != nil {
			log.Fatalf("Error in Fiber Listen: %v", err)
		}
	}
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	log := logger.GetAppLogger()
	cfg := global.MongoDB_ServerConfig

	// Khởi tạo fan-out notification với kênh đẩy theo config
	fanout, err := notify.NewFanout(buildPushGateway())
	if err != nil {
		log.Fatalf("Failed to create notification fanout: %v", err)
	}

	// Khởi tạo và chạy pipeline xử lý issue (change stream consumers)
	pipe, err := pipeline.NewPipeline(time.Duration(cfg.Pipeline_DebounceMs)*time.Millisecond, fanout)
	if err != nil {
		log.Fatalf("Failed to create issue pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe.Start(ctx)
	defer pipe.Stop()

	// Chạy sweep worker định kỳ: lưới an toàn cho các sự kiện change stream bị lỡ
	sweepWorker := worker.NewAutoAssignSweepWorker(pipe, time.Duration(cfg.Pipeline_SweepIntervalSec)*time.Second, int64(cfg.Pipeline_SweepBatchSize))
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"panic": r,
				}).Error("🧹 [AUTO_ASSIGN_SWEEP] Worker goroutine panic")
			}
		}()
		sweepWorker.Start(ctx)
	}()

	// Chạy Fiber server trên main thread
	main_thread(pipe)
}
