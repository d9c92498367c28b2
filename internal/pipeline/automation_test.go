// Package pipeline - Test dispatch automation rule và phân loại trigger.
package pipeline

import (
	"context"
	"errors"
	"testing"

	issuemodels "civic_admin/internal/api/issue/models"
	rulemodels "civic_admin/internal/api/rule/models"
	usermodels "civic_admin/internal/api/user/models"
	"civic_admin/internal/notify"
	"civic_admin/internal/watch"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSender struct {
	calls  int
	err    error
	result notify.Result
	target string
}

func (s *fakeSender) Send(ctx context.Context, title, body, target string, recipients []notify.Recipient, issueID *primitive.ObjectID) (notify.Result, error) {
	s.calls++
	s.target = target
	if s.err != nil {
		return notify.Result{}, s.err
	}
	return s.result, nil
}

type fakeMarker struct {
	marked map[primitive.ObjectID]int
}

func (m *fakeMarker) MarkTriggered(ctx context.Context, ruleID primitive.ObjectID) (rulemodels.AutomationRule, error) {
	if m.marked == nil {
		m.marked = map[primitive.ObjectID]int{}
	}
	m.marked[ruleID]++
	return rulemodels.AutomationRule{}, nil
}

type fakeAudience struct {
	users []usermodels.User
	err   error
}

func (a *fakeAudience) FindActiveByRoles(ctx context.Context, roles ...string) ([]usermodels.User, error) {
	return a.users, a.err
}

func newTestDispatcher(sender FanoutSender, marker *fakeMarker, audience *fakeAudience, rules ...rulemodels.AutomationRule) *AutomationDispatcher {
	store := &RuleStore{}
	store.ReplaceAutomationRules(rules)
	return NewAutomationDispatcherWith(store, marker, audience, sender)
}

func headUser() []usermodels.User {
	return []usermodels.User{{
		ID:        primitive.NewObjectID(),
		Role:      usermodels.UserRoleDepartmentHead,
		PushToken: "device-token-00000001",
		Active:    true,
	}}
}

func TestClassifyTriggers_Added(t *testing.T) {
	issue := &issuemodels.Issue{}
	triggers := ClassifyTriggers(watch.EventAdded, nil, issue)
	if len(triggers) != 1 || triggers[0] != rulemodels.TriggerIssueCreated {
		t.Errorf("Sự kiện added phải map sang issue_created, got %v", triggers)
	}
}

func TestClassifyTriggers_ModifiedFields(t *testing.T) {
	issue := &issuemodels.Issue{AssignedDepartment: "Public Works"}
	updated := map[string]interface{}{
		"assignedDepartment": "Public Works",
		"status":             "in_progress",
		"priority":           "high",
	}

	triggers := ClassifyTriggers(watch.EventModified, updated, issue)
	want := map[string]bool{
		rulemodels.TriggerIssueAssigned:   true,
		rulemodels.TriggerStatusChanged:   true,
		rulemodels.TriggerPriorityChanged: true,
	}
	if len(triggers) != len(want) {
		t.Fatalf("Một event modified nhiều field phải sinh đủ trigger, got %v", triggers)
	}
	for _, trigger := range triggers {
		if !want[trigger] {
			t.Errorf("Trigger không mong đợi: %q", trigger)
		}
	}
}

func TestClassifyTriggers_ClearedDepartmentIsNotAssigned(t *testing.T) {
	// Admin xóa phân công: field đổi nhưng giá trị rỗng, không phải issue_assigned
	issue := &issuemodels.Issue{AssignedDepartment: ""}
	updated := map[string]interface{}{"assignedDepartment": ""}

	triggers := ClassifyTriggers(watch.EventModified, updated, issue)
	for _, trigger := range triggers {
		if trigger == rulemodels.TriggerIssueAssigned {
			t.Error("Phân công bị xóa không được sinh trigger issue_assigned")
		}
	}
}

func TestClassifyTriggers_RemovedProducesNothing(t *testing.T) {
	if got := ClassifyTriggers(watch.EventRemoved, nil, nil); len(got) != 0 {
		t.Errorf("Sự kiện removed không sinh trigger, got %v", got)
	}
}

func TestDispatch_MarksTriggeredPerSuccessfulAttempt(t *testing.T) {
	rule := rulemodels.AutomationRule{ID: primitive.NewObjectID(), Trigger: rulemodels.TriggerIssueAssigned, Enabled: true}
	sender := &fakeSender{result: notify.Result{SuccessCount: 1}}
	marker := &fakeMarker{}
	d := newTestDispatcher(sender, marker, &fakeAudience{users: headUser()}, rule)

	issue := &issuemodels.Issue{ID: primitive.NewObjectID(), Title: "Pothole", AssignedDepartment: "Public Works"}

	// Dispatch hai lần cho cùng một event: mỗi đợt fan-out thành công tính một lần
	d.Dispatch(context.Background(), rulemodels.TriggerIssueAssigned, issue)
	d.Dispatch(context.Background(), rulemodels.TriggerIssueAssigned, issue)

	if sender.calls != 2 {
		t.Fatalf("Mỗi dispatch phải fan-out một lần, got %d", sender.calls)
	}
	if marker.marked[rule.ID] != 2 {
		t.Errorf("timesTriggered phải tăng đúng theo số đợt fan-out thành công, got %d", marker.marked[rule.ID])
	}
}

func TestDispatch_FanoutFailureDoesNotMarkTriggered(t *testing.T) {
	rule := rulemodels.AutomationRule{ID: primitive.NewObjectID(), Trigger: rulemodels.TriggerIssueCreated, Enabled: true}
	sender := &fakeSender{err: errors.New("gateway chưa được cấu hình")}
	marker := &fakeMarker{}
	d := newTestDispatcher(sender, marker, &fakeAudience{users: headUser()}, rule)

	issue := &issuemodels.Issue{ID: primitive.NewObjectID(), Title: "Pothole", Category: "Roads"}
	d.Dispatch(context.Background(), rulemodels.TriggerIssueCreated, issue)

	if sender.calls != 1 {
		t.Fatalf("Fan-out phải được thử, got %d", sender.calls)
	}
	if len(marker.marked) != 0 {
		t.Error("Đợt gửi không diễn ra được thì không tăng timesTriggered")
	}
}

func TestDispatch_EmptyAudienceSkipsSilently(t *testing.T) {
	rule := rulemodels.AutomationRule{ID: primitive.NewObjectID(), Trigger: rulemodels.TriggerIssueCreated, Enabled: true}
	sender := &fakeSender{result: notify.Result{}}
	marker := &fakeMarker{}
	d := newTestDispatcher(sender, marker, &fakeAudience{}, rule)

	issue := &issuemodels.Issue{ID: primitive.NewObjectID(), Title: "Pothole", Category: "Roads"}
	d.Dispatch(context.Background(), rulemodels.TriggerIssueCreated, issue)

	if sender.calls != 0 {
		t.Error("Audience rỗng phải bỏ qua rule, không gọi fan-out")
	}
	if len(marker.marked) != 0 {
		t.Error("Rule bị bỏ qua không tăng timesTriggered")
	}
}

func TestDispatch_NoMatchingRules(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, &fakeMarker{}, &fakeAudience{users: headUser()})

	issue := &issuemodels.Issue{ID: primitive.NewObjectID(), Title: "Pothole"}
	d.Dispatch(context.Background(), rulemodels.TriggerStatusChanged, issue)

	if sender.calls != 0 {
		t.Error("Không có rule nào khớp trigger thì không fan-out")
	}
}

func TestDispatch_TargetIsTriggerName(t *testing.T) {
	rule := rulemodels.AutomationRule{ID: primitive.NewObjectID(), Trigger: rulemodels.TriggerStatusChanged, Enabled: true}
	sender := &fakeSender{result: notify.Result{SuccessCount: 1}}
	d := newTestDispatcher(sender, &fakeMarker{}, &fakeAudience{users: headUser()}, rule)

	issue := &issuemodels.Issue{ID: primitive.NewObjectID(), Title: "Pothole", Status: issuemodels.IssueStatusInProgress}
	d.Dispatch(context.Background(), rulemodels.TriggerStatusChanged, issue)

	if sender.target != rulemodels.TriggerStatusChanged {
		t.Errorf("Target của log phải là tên trigger, got %q", sender.target)
	}
}
