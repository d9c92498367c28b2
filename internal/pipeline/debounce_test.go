// Package pipeline - Test lập lịch trễ có hủy.
package pipeline

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_FiresAfterDelay(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	d.Schedule("issue-1", func() { fired.Add(1) })

	if fired.Load() != 0 {
		t.Error("Task không được chạy trước khi hết độ trễ")
	}

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 1 {
		t.Errorf("Task phải chạy đúng 1 lần sau độ trễ, got %d", fired.Load())
	}
	if d.Pending() != 0 {
		t.Errorf("Task đã chạy phải được gỡ khỏi danh sách chờ, còn %d", d.Pending())
	}
}

func TestDebouncer_RescheduleReplacesPendingTask(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var first, second atomic.Int32
	d.Schedule("issue-1", func() { first.Add(1) })
	d.Schedule("issue-1", func() { second.Add(1) })

	time.Sleep(120 * time.Millisecond)
	if first.Load() != 0 {
		t.Error("Schedule lại cùng key phải hủy task cũ")
	}
	if second.Load() != 1 {
		t.Errorf("Task mới nhất phải chạy đúng 1 lần, got %d", second.Load())
	}
}

func TestDebouncer_IndependentKeys(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	d.Schedule("issue-1", func() { fired.Add(1) })
	d.Schedule("issue-2", func() { fired.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 2 {
		t.Errorf("Task của các key khác nhau phải chạy độc lập, got %d", fired.Load())
	}
}

func TestDebouncer_StopCancelsPendingTasks(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var fired atomic.Int32
	d.Schedule("issue-1", func() { fired.Add(1) })
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("Stop phải hủy mọi task đang chờ, got %d lần chạy", fired.Load())
	}

	// Sau Stop, mọi Schedule là no-op
	d.Schedule("issue-2", func() { fired.Add(1) })
	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("Schedule sau Stop phải là no-op, got %d lần chạy", fired.Load())
	}
}
