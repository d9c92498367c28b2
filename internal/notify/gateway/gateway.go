// Package gateway trừu tượng hóa kênh đẩy push notification. Pipeline chỉ làm
// việc với interface Gateway; chọn HTTP gateway hay FCM là quyết định lúc khởi động.
package gateway

import "context"

// StatusOK là trạng thái per-destination khi gateway báo gửi thành công
const StatusOK = "ok"

// Gateway gửi một notification đến danh sách destination (push token).
// Trả về trạng thái theo từng destination, cùng thứ tự với destinations:
// StatusOK nếu gửi được, ngược lại là mô tả lỗi.
//
// Lỗi vận chuyển (không gọi được endpoint, timeout) trả về qua error —
// caller tự quyết định coi đó là thất bại toàn phần hay không.
type Gateway interface {
	Send(ctx context.Context, title, body string, destinations []string) ([]string, error)
}
