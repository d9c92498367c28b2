package pipeline

import (
	"sync"
	"time"
)

// DefaultDebounceDelay là độ trễ mặc định trước khi xử lý issue vừa tạo,
// để document kịp ổn định sau write đầu tiên. Heuristic, không phải bảo đảm
// đúng đắn — cấu hình qua PIPELINE_DEBOUNCE_MS.
const DefaultDebounceDelay = 500 * time.Millisecond

// Debouncer lập lịch task chạy trễ theo key, có hủy toàn bộ khi pipeline dừng.
// Schedule cùng key khi task cũ chưa chạy sẽ reset lại đồng hồ.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewDebouncer tạo mới Debouncer với độ trễ cho trước (≤ 0 dùng mặc định)
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule lập lịch fn chạy sau độ trễ. Task cùng key đang chờ bị thay thế.
// Sau Stop mọi Schedule là no-op — không còn task lơ lửng sau teardown.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}

	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		stopped := d.stopped
		d.mu.Unlock()

		if stopped {
			return
		}
		fn()
	})
}

// Pending trả về số task đang chờ chạy
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop hủy mọi task đang chờ và chặn Schedule mới
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
