// Package router đăng ký các route điều khiển pipeline cho admin UI.
package router

import (
	"github.com/gofiber/fiber/v3"

	pipehdl "civic_admin/internal/api/pipeline/handler"
	apirouter "civic_admin/internal/api/router"
	"civic_admin/internal/pipeline"
)

// Register trả về RegisterFunc đăng ký các route pipeline lên v1.
// Nhận pipeline đang chạy qua closure vì handler cần gọi vào resolver/detector của nó.
func Register(pipe *pipeline.Pipeline) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		handler := pipehdl.NewPipelineHandler(pipe)

		apirouter.RegisterRouteWithMiddleware(v1, "/pipeline", "POST", "/auto-assign/run", nil, handler.HandleRunBulkAutoAssign)
		apirouter.RegisterRouteWithMiddleware(v1, "/issue", "GET", "/:id/duplicates", nil, handler.HandleFindDuplicates)
		apirouter.RegisterRouteWithMiddleware(v1, "/issue", "POST", "/:id/duplicate-flag/clear", nil, handler.HandleClearDuplicateFlag)
		return nil
	}
}
