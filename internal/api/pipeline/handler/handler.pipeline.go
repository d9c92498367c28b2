// Package handler expose các thao tác pipeline cho admin UI: bulk auto-assign,
// tra cứu match trùng lặp và gỡ cờ trùng lặp.
package handler

import (
	"fmt"

	basehdl "civic_admin/internal/api/base/handler"
	"civic_admin/internal/common"
	"civic_admin/internal/pipeline"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PipelineHandler xử lý các route điều khiển pipeline
type PipelineHandler struct {
	*basehdl.BaseHandler[interface{}, interface{}, interface{}]
	pipe *pipeline.Pipeline
}

// NewPipelineHandler tạo một instance mới của PipelineHandler
func NewPipelineHandler(pipe *pipeline.Pipeline) *PipelineHandler {
	return &PipelineHandler{
		BaseHandler: &basehdl.BaseHandler[interface{}, interface{}, interface{}]{},
		pipe:        pipe,
	}
}

// issueIDFromContext đọc và validate param :id
func (h *PipelineHandler) issueIDFromContext(c fiber.Ctx) (primitive.ObjectID, error) {
	id := c.Params("id")
	if id == "" {
		return primitive.NilObjectID, common.NewError(
			common.ErrCodeValidationInput,
			"ID không được để trống",
			common.StatusBadRequest,
			nil,
		)
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("ID không hợp lệ: %s", id),
			common.StatusBadRequest,
			nil,
		)
	}
	return objectID, nil
}

// HandleRunBulkAutoAssign quét toàn bộ issue chưa phân công và áp rule table.
// Chạy lại nhiều lần an toàn: lần chạy thứ hai không ghi thêm gì.
// @Router /pipeline/auto-assign/run [post]
func (h *PipelineHandler) HandleRunBulkAutoAssign(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		assigned, err := h.pipe.RunBulkAutoAssign(c.Context(), 0)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		h.HandleResponse(c, fiber.Map{"assignedCount": assigned}, nil)
		return nil
	})
}

// HandleFindDuplicates trả về danh sách match trùng lặp xếp theo điểm giảm dần
// cho một issue. Issue không có location → danh sách rỗng.
// @Router /issue/:id/duplicates [get]
func (h *PipelineHandler) HandleFindDuplicates(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		issueID, err := h.issueIDFromContext(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		matches, err := h.pipe.FindDuplicatesByID(c.Context(), issueID)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if matches == nil {
			matches = []pipeline.DuplicateMatch{}
		}
		h.HandleResponse(c, matches, nil)
		return nil
	})
}

// HandleClearDuplicateFlag gỡ cờ trùng lặp của một issue (thao tác của admin).
// Issue không có cờ → vẫn thành công, trạng thái cuối như nhau.
// @Router /issue/:id/duplicate-flag/clear [post]
func (h *PipelineHandler) HandleClearDuplicateFlag(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		issueID, err := h.issueIDFromContext(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		if err := h.pipe.ClearDuplicateFlag(c.Context(), issueID); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		h.HandleResponse(c, fiber.Map{"issueId": issueID.Hex()}, nil)
		return nil
	})
}
