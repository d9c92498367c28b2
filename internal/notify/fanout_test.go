// Package notify - Test fan-out notification với gateway giả lập.
package notify

import (
	"context"
	"errors"
	"testing"

	notifmodels "civic_admin/internal/api/notification/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeGateway struct {
	statuses []string
	err      error
	calls    int
	lastSent []string
}

func (g *fakeGateway) Send(ctx context.Context, title, body string, destinations []string) ([]string, error) {
	g.calls++
	g.lastSent = destinations
	if g.err != nil {
		return nil, g.err
	}
	return g.statuses, nil
}

type memLogStore struct {
	entries []notifmodels.NotificationLog
}

func (s *memLogStore) Append(ctx context.Context, log notifmodels.NotificationLog) (notifmodels.NotificationLog, error) {
	s.entries = append(s.entries, log)
	return log, nil
}

type memInAppStore struct {
	userIDs []primitive.ObjectID
}

func (s *memInAppStore) CreateForRecipients(ctx context.Context, userIDs []primitive.ObjectID, title, body string, issueID *primitive.ObjectID) int {
	s.userIDs = append(s.userIDs, userIDs...)
	return len(userIDs)
}

func validRecipients(n int) []Recipient {
	recipients := make([]Recipient, 0, n)
	for i := 0; i < n; i++ {
		recipients = append(recipients, Recipient{
			UserID:    primitive.NewObjectID(),
			PushToken: "device-token-00000001",
		})
	}
	return recipients
}

func TestIsValidPushToken(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"device-token-00000001", true},
		{"", false},
		{"short", false},
		{"token with space", false},
		{"token\twith\ttab", false},
		{"exactly8c", true},
	}
	for _, tc := range cases {
		if got := IsValidPushToken(tc.token); got != tc.want {
			t.Errorf("IsValidPushToken(%q) = %v, muốn %v", tc.token, got, tc.want)
		}
	}
}

func TestFanout_PartialDelivery(t *testing.T) {
	gw := &fakeGateway{statuses: []string{"ok", "ok", "invalid token"}}
	logs := &memLogStore{}
	inapp := &memInAppStore{}
	f := NewFanoutWith(gw, logs, inapp)

	result, err := f.Send(context.Background(), "Title", "Body", "issue_assigned", validRecipients(3), nil)
	if err != nil {
		t.Fatalf("Send không được trả lỗi khi gateway đã gọi được: %v", err)
	}
	if result.SuccessCount != 2 || result.FailureCount != 1 {
		t.Errorf("Kết quả phải là {2,1}, got {%d,%d}", result.SuccessCount, result.FailureCount)
	}

	if len(logs.entries) != 1 {
		t.Fatalf("Mỗi đợt fan-out phải ghi đúng 1 log, got %d", len(logs.entries))
	}
	entry := logs.entries[0]
	if entry.Status != notifmodels.NotificationStatusPartial {
		t.Errorf("Status phải là partial, got %q", entry.Status)
	}
	if entry.RecipientCount != 3 || entry.SuccessCount != 2 || entry.FailureCount != 1 {
		t.Errorf("Counts trong log sai: %+v", entry)
	}
	if entry.SentAt == 0 {
		t.Error("SentAt phải được set")
	}
}

func TestFanout_AllDeliveredStatusSent(t *testing.T) {
	gw := &fakeGateway{statuses: []string{"ok", "ok"}}
	logs := &memLogStore{}
	f := NewFanoutWith(gw, logs, &memInAppStore{})

	result, err := f.Send(context.Background(), "Title", "Body", "issue_created", validRecipients(2), nil)
	if err != nil {
		t.Fatalf("Send trả lỗi: %v", err)
	}
	if result.SuccessCount != 2 || result.FailureCount != 0 {
		t.Errorf("Kết quả phải là {2,0}, got {%d,%d}", result.SuccessCount, result.FailureCount)
	}
	if logs.entries[0].Status != notifmodels.NotificationStatusSent {
		t.Errorf("Status phải là sent, got %q", logs.entries[0].Status)
	}
}

func TestFanout_NoValidTokensSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	logs := &memLogStore{}
	inapp := &memInAppStore{}
	f := NewFanoutWith(gw, logs, inapp)

	recipients := []Recipient{
		{UserID: primitive.NewObjectID(), PushToken: ""},
		{UserID: primitive.NewObjectID(), PushToken: "bad token"},
	}

	result, err := f.Send(context.Background(), "Title", "Body", "issue_created", recipients, nil)
	if err != nil {
		t.Fatalf("Send trả lỗi: %v", err)
	}
	if result.SuccessCount != 0 || result.FailureCount != 0 {
		t.Errorf("Không có token hợp lệ phải trả {0,0}, got {%d,%d}", result.SuccessCount, result.FailureCount)
	}
	if gw.calls != 0 {
		t.Error("Gateway không được gọi khi không có token hợp lệ")
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != notifmodels.NotificationStatusFailed {
		t.Error("Vẫn phải ghi 1 log với status failed")
	}
	// In-app vẫn tạo cho MỌI recipient dự kiến, kể cả không có push token
	if len(inapp.userIDs) != 2 {
		t.Errorf("In-app phải tạo cho cả 2 recipient, got %d", len(inapp.userIDs))
	}
}

func TestFanout_GatewayErrorIsFullFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("gateway timeout")}
	logs := &memLogStore{}
	inapp := &memInAppStore{}
	f := NewFanoutWith(gw, logs, inapp)

	result, err := f.Send(context.Background(), "Title", "Body", "status_changed", validRecipients(3), nil)
	if err != nil {
		t.Fatalf("Gateway throw = đợt gửi đã diễn ra, Send phải trả nil error, got %v", err)
	}
	if result.SuccessCount != 0 || result.FailureCount != 3 {
		t.Errorf("Gateway lỗi phải tính 100%% thất bại: {0,3}, got {%d,%d}", result.SuccessCount, result.FailureCount)
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != notifmodels.NotificationStatusFailed {
		t.Error("Vẫn phải ghi log với status failed khi gateway lỗi")
	}
	if len(inapp.userIDs) != 3 {
		t.Errorf("Push fail không được chặn in-app, got %d bản ghi", len(inapp.userIDs))
	}
}

func TestFanout_FiltersInvalidTokensFromBatch(t *testing.T) {
	gw := &fakeGateway{statuses: []string{"ok"}}
	f := NewFanoutWith(gw, &memLogStore{}, &memInAppStore{})

	recipients := []Recipient{
		{UserID: primitive.NewObjectID(), PushToken: "device-token-00000001"},
		{UserID: primitive.NewObjectID(), PushToken: ""},
	}

	if _, err := f.Send(context.Background(), "Title", "Body", "issue_created", recipients, nil); err != nil {
		t.Fatalf("Send trả lỗi: %v", err)
	}
	if len(gw.lastSent) != 1 {
		t.Errorf("Chỉ token hợp lệ được đưa vào batch, got %d", len(gw.lastSent))
	}
}

func TestFanout_NilGatewayCannotAttempt(t *testing.T) {
	logs := &memLogStore{}
	f := NewFanoutWith(nil, logs, &memInAppStore{})

	_, err := f.Send(context.Background(), "Title", "Body", "issue_created", validRecipients(1), nil)
	if err == nil {
		t.Fatal("Không có gateway thì đợt gửi không diễn ra được, Send phải trả lỗi")
	}
	if len(logs.entries) != 0 {
		t.Error("Đợt gửi không diễn ra thì không ghi log")
	}
}
