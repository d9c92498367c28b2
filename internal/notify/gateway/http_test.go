// Package gateway - Test HTTP push gateway với server giả lập.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPGateway_SendMapsPerTokenResults(t *testing.T) {
	var received pushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method, "Gateway phải nhận POST")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("Không decode được payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"token": received.Tokens[0], "success": true},
				{"token": received.Tokens[1], "success": false, "error": "unregistered"},
			},
		})
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "", 5)
	statuses, err := g.Send(context.Background(), "Title", "Body", []string{"token-aaaaaaaa", "token-bbbbbbbb"})
	assert.NoError(t, err, "Send không được trả lỗi")

	assert.Equal(t, "Title", received.Title, "Title trong payload batch sai")
	assert.Equal(t, "Body", received.Body, "Body trong payload batch sai")
	assert.Len(t, received.Tokens, 2, "Batch phải chứa đủ token")

	if assert.Len(t, statuses, 2, "Phải có trạng thái cho từng destination") {
		assert.Equal(t, StatusOK, statuses[0], "Destination đầu phải ok")
		assert.Equal(t, "unregistered", statuses[1], "Destination thứ hai phải mang lỗi từ gateway")
	}
}

func TestHTTPGateway_SendsAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "secret-token", 5)
	_, err := g.Send(context.Background(), "T", "B", []string{"token-aaaaaaaa"})
	assert.NoError(t, err, "Send không được trả lỗi")
	assert.Equal(t, "Bearer secret-token", gotAuth, "Thiếu header xác thực")
}

func TestHTTPGateway_TwoHundredWithoutResultsMeansAllOk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "", 5)
	statuses, err := g.Send(context.Background(), "T", "B", []string{"token-aaaaaaaa", "token-bbbbbbbb"})
	assert.NoError(t, err, "Send không được trả lỗi")
	for i, status := range statuses {
		assert.Equal(t, StatusOK, status, "2xx không có chi tiết per-token phải coi destination %d là ok", i)
	}
}

func TestHTTPGateway_NonTwoHundredIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "", 5)
	_, err := g.Send(context.Background(), "T", "B", []string{"token-aaaaaaaa"})
	assert.Error(t, err, "Status ngoài 2xx phải trả lỗi")
}
