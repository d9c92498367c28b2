// Package common - Test map lỗi MongoDB về sentinel của hệ thống.
package common

import (
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestConvertMongoError_NoDocumentsMapsToNotFound(t *testing.T) {
	// FindOneAndUpdate không match filter nào trả về ErrNoDocuments — caller
	// của conditional patch phải nhận được đúng sentinel để so sánh pointer
	if got := ConvertMongoError(mongo.ErrNoDocuments); got != ErrNotFound {
		t.Errorf("ErrNoDocuments phải map về ErrNotFound, got %v", got)
	}
}

func TestConvertMongoError_WrappedNoDocuments(t *testing.T) {
	wrapped := fmt.Errorf("decode kết quả: %w", mongo.ErrNoDocuments)
	if got := ConvertMongoError(wrapped); got != ErrNotFound {
		t.Errorf("ErrNoDocuments được wrap vẫn phải map về ErrNotFound, got %v", got)
	}
}

func TestConvertMongoError_KeepsNotFoundSentinel(t *testing.T) {
	if got := ConvertMongoError(ErrNotFound); got != ErrNotFound {
		t.Errorf("ErrNotFound đi qua convert phải giữ nguyên pointer, got %v", got)
	}
}

func TestConvertMongoError_NilPassesThrough(t *testing.T) {
	if got := ConvertMongoError(nil); got != nil {
		t.Errorf("nil phải trả về nil, got %v", got)
	}
}
