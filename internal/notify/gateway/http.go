package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"civic_admin/internal/logger"
)

// HTTPGateway gửi push qua một gateway HTTP ngoài (POST JSON batch).
// Dùng khi hạ tầng đẩy nằm sau một service riêng thay vì gọi FCM trực tiếp.
type HTTPGateway struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPGateway tạo mới HTTPGateway. Token rỗng = không gắn header xác thực.
func NewHTTPGateway(url, token string, timeoutSec int) *HTTPGateway {
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &HTTPGateway{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

// pushRequest là payload batch gửi lên gateway
type pushRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Tokens []string `json:"tokens"`
}

// pushResponse là kết quả per-token gateway trả về
type pushResponse struct {
	Results []struct {
		Token   string `json:"token"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	} `json:"results"`
}

// Send gửi một batch đến gateway và map kết quả về trạng thái per-destination.
// Gateway trả 2xx nhưng thiếu kết quả per-token thì coi toàn bộ là thành công.
func (g *HTTPGateway) Send(ctx context.Context, title, body string, destinations []string) ([]string, error) {
	log := logger.GetAppLogger()

	payload := pushRequest{
		Title:  title,
		Body:   body,
		Tokens: destinations,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"url":    g.url,
			"tokens": len(destinations),
		}).Error("📨 [PUSH_HTTP] Lỗi khi gọi push gateway")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.WithFields(map[string]interface{}{
			"url":        g.url,
			"statusCode": resp.StatusCode,
			"response":   string(bodyBytes),
		}).Error("📨 [PUSH_HTTP] Push gateway trả về lỗi")
		return nil, fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || len(result.Results) == 0 {
		// Gateway không trả chi tiết per-token, 2xx = gửi hết
		statuses := make([]string, len(destinations))
		for i := range statuses {
			statuses[i] = StatusOK
		}
		return statuses, nil
	}

	byToken := make(map[string]string, len(result.Results))
	for _, r := range result.Results {
		if r.Success {
			byToken[r.Token] = StatusOK
		} else if r.Error != "" {
			byToken[r.Token] = r.Error
		} else {
			byToken[r.Token] = "delivery failed"
		}
	}

	statuses := make([]string, len(destinations))
	for i, dest := range destinations {
		if status, ok := byToken[dest]; ok {
			statuses[i] = status
		} else {
			statuses[i] = StatusOK
		}
	}
	return statuses, nil
}
