package worker

import (
	"context"
	"time"

	"civic_admin/internal/logger"
	"civic_admin/internal/pipeline"
)

// AutoAssignSweepWorker quét định kỳ các issue chưa phân công và áp lại rule table.
// Là lưới an toàn cho change stream: sự kiện lỡ mất trong lúc stream đứt, hay issue
// chưa gán vì lúc đó rule table chưa có rule khớp, sẽ được gán ở lần quét sau.
type AutoAssignSweepWorker struct {
	pipe      *pipeline.Pipeline
	interval  time.Duration // Khoảng thời gian giữa các lần quét
	batchSize int64         // Số issue tối đa mỗi lần quét
}

// NewAutoAssignSweepWorker tạo mới AutoAssignSweepWorker.
// Tham số:
//   - pipe: pipeline đang chạy, dùng lại resolver của nó
//   - interval: Khoảng thời gian giữa các lần quét (mặc định: 5 phút)
//   - batchSize: Số issue tối đa mỗi lần quét (mặc định: 100)
func NewAutoAssignSweepWorker(pipe *pipeline.Pipeline, interval time.Duration, batchSize int64) *AutoAssignSweepWorker {
	if interval < time.Minute {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AutoAssignSweepWorker{
		pipe:      pipe,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start chạy worker trong vòng lặp: mỗi interval quét toàn bộ issue chưa phân công.
// Quét lặp lại là an toàn vì phép gán idempotent — lần quét thứ hai không ghi gì thêm.
func (w *AutoAssignSweepWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval":  w.interval.String(),
		"batchSize": w.batchSize,
	}).Info("🧹 [AUTO_ASSIGN_SWEEP] Starting Auto Assign Sweep Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🧹 [AUTO_ASSIGN_SWEEP] Auto Assign Sweep Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithFields(map[string]interface{}{
							"panic": r,
						}).Error("🧹 [AUTO_ASSIGN_SWEEP] Panic khi quét, sẽ tiếp tục ở lần chạy tiếp theo")
					}
				}()

				assigned, err := w.pipe.RunBulkAutoAssign(ctx, w.batchSize)
				if err != nil {
					log.WithError(err).Error("🧹 [AUTO_ASSIGN_SWEEP] Lỗi khi quét issue chưa phân công")
					return
				}
				if assigned > 0 {
					log.WithFields(map[string]interface{}{
						"assigned": assigned,
					}).Info("🧹 [AUTO_ASSIGN_SWEEP] Đã phân công issue trong lần quét")
				}
			}()
		}
	}
}
