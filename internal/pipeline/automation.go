package pipeline

import (
	"context"
	"fmt"

	issuemodels "civic_admin/internal/api/issue/models"
	rulemodels "civic_admin/internal/api/rule/models"
	rulesvc "civic_admin/internal/api/rule/service"
	usermodels "civic_admin/internal/api/user/models"
	usersvc "civic_admin/internal/api/user/service"
	"civic_admin/internal/logger"
	"civic_admin/internal/notify"
	"civic_admin/internal/watch"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FanoutSender gửi một đợt notification. Triển khai thật là notify.Fanout.
type FanoutSender interface {
	Send(ctx context.Context, title, body, target string, recipients []notify.Recipient, issueID *primitive.ObjectID) (notify.Result, error)
}

// triggerMarker cập nhật counter của automation rule sau một đợt fan-out
type triggerMarker interface {
	MarkTriggered(ctx context.Context, ruleID primitive.ObjectID) (rulemodels.AutomationRule, error)
}

// audienceFinder trả về danh sách user nhận thông báo theo role
type audienceFinder interface {
	FindActiveByRoles(ctx context.Context, roles ...string) ([]usermodels.User, error)
}

// AutomationDispatcher khớp sự kiện vòng đời issue với automation rule và gọi
// fan-out cho từng rule khớp. Một rule lỗi không chặn các rule còn lại.
type AutomationDispatcher struct {
	rules   *RuleStore
	ruleSvc triggerMarker
	userSvc audienceFinder
	fanout  FanoutSender
}

// NewAutomationDispatcher tạo mới AutomationDispatcher với các service mặc định
func NewAutomationDispatcher(rules *RuleStore, fanout FanoutSender) (*AutomationDispatcher, error) {
	ruleSvc, err := rulesvc.NewAutomationRuleService()
	if err != nil {
		return nil, fmt.Errorf("failed to create automation rule service: %v", err)
	}
	userSvc, err := usersvc.NewUserService()
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %v", err)
	}
	return NewAutomationDispatcherWith(rules, ruleSvc, userSvc, fanout), nil
}

// NewAutomationDispatcherWith tạo AutomationDispatcher với phụ thuộc được cung cấp sẵn
func NewAutomationDispatcherWith(rules *RuleStore, ruleSvc triggerMarker, userSvc audienceFinder, fanout FanoutSender) *AutomationDispatcher {
	return &AutomationDispatcher{
		rules:   rules,
		ruleSvc: ruleSvc,
		userSvc: userSvc,
		fanout:  fanout,
	}
}

// ClassifyTriggers map một change event của issue sang danh sách trigger cần đánh giá.
// Event modified có thể sinh nhiều trigger (ví dụ admin vừa đổi status vừa đổi priority).
func ClassifyTriggers(eventType watch.EventType, updatedFields map[string]interface{}, issue *issuemodels.Issue) []string {
	switch eventType {
	case watch.EventAdded:
		return []string{rulemodels.TriggerIssueCreated}
	case watch.EventModified:
		var triggers []string
		if _, ok := updatedFields["assignedDepartment"]; ok && issue != nil && issue.AssignedDepartment != "" {
			triggers = append(triggers, rulemodels.TriggerIssueAssigned)
		}
		if _, ok := updatedFields["status"]; ok {
			triggers = append(triggers, rulemodels.TriggerStatusChanged)
		}
		if _, ok := updatedFields["priority"]; ok {
			triggers = append(triggers, rulemodels.TriggerPriorityChanged)
		}
		return triggers
	default:
		return nil
	}
}

// audienceRoles trả về các role nhận thông báo của một trigger
func audienceRoles(trigger string) []string {
	switch trigger {
	case rulemodels.TriggerIssueCreated, rulemodels.TriggerCommentAdded:
		return []string{usermodels.UserRoleAdministrator}
	case rulemodels.TriggerIssueAssigned:
		return []string{usermodels.UserRoleDepartmentHead}
	case rulemodels.TriggerStatusChanged, rulemodels.TriggerPriorityChanged:
		return []string{usermodels.UserRoleAdministrator, usermodels.UserRoleDepartmentHead}
	default:
		return nil
	}
}

// resolveMessage trả về title/body cố định theo từng trigger
func resolveMessage(trigger string, issue *issuemodels.Issue) (string, string) {
	switch trigger {
	case rulemodels.TriggerIssueCreated:
		return "New issue reported", fmt.Sprintf("New issue %q reported in category %s", issue.Title, issue.Category)
	case rulemodels.TriggerIssueAssigned:
		return "Issue assigned", fmt.Sprintf("Issue %q was assigned to %s", issue.Title, issue.AssignedDepartment)
	case rulemodels.TriggerStatusChanged:
		return "Issue status updated", fmt.Sprintf("Issue %q changed status to %s", issue.Title, issue.Status)
	case rulemodels.TriggerPriorityChanged:
		return "Issue priority updated", fmt.Sprintf("Issue %q changed priority to %s", issue.Title, issue.Priority)
	case rulemodels.TriggerCommentAdded:
		return "New comment on issue", fmt.Sprintf("A new comment was added on issue %q", issue.Title)
	default:
		return "", ""
	}
}

// Dispatch đánh giá mọi automation rule đang bật khớp trigger và fan-out cho từng rule.
// timesTriggered chỉ tăng khi đợt fan-out ĐÃ diễn ra (fanout trả nil error),
// không tăng khi không gọi nổi gateway. Audience rỗng thì bỏ qua rule, không lỗi.
func (d *AutomationDispatcher) Dispatch(ctx context.Context, trigger string, issue *issuemodels.Issue) {
	log := logger.GetAppLogger()

	rules := d.rules.ActiveAutomationRules(trigger)
	if len(rules) == 0 {
		return
	}

	title, body := resolveMessage(trigger, issue)
	if title == "" {
		log.WithFields(map[string]interface{}{
			"trigger": trigger,
		}).Warn("⚙️ [AUTOMATION] Trigger không có template, bỏ qua")
		return
	}

	recipients, err := d.resolveAudience(ctx, trigger)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"trigger": trigger,
			"issueId": issue.ID.Hex(),
		}).Error("⚙️ [AUTOMATION] Lỗi khi resolve audience")
		return
	}
	if len(recipients) == 0 {
		return
	}

	issueID := issue.ID
	for _, rule := range rules {
		d.dispatchRule(ctx, rule, trigger, title, body, recipients, &issueID)
	}
}

// dispatchRule fan-out cho MỘT rule, có recover để rule lỗi không chặn rule sau
func (d *AutomationDispatcher) dispatchRule(ctx context.Context, rule rulemodels.AutomationRule, trigger, title, body string, recipients []notify.Recipient, issueID *primitive.ObjectID) {
	log := logger.GetAppLogger()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"ruleId":  rule.ID.Hex(),
				"trigger": trigger,
				"panic":   fmt.Sprintf("%v", r),
			}).Error("⚙️ [AUTOMATION] Panic khi fan-out cho rule")
		}
	}()

	result, err := d.fanout.Send(ctx, title, body, trigger, recipients, issueID)
	if err != nil {
		// Đợt gửi không diễn ra được: không tính trigger cho rule này
		log.WithError(err).WithFields(map[string]interface{}{
			"ruleId":  rule.ID.Hex(),
			"trigger": trigger,
		}).Error("⚙️ [AUTOMATION] Không thực hiện được fan-out")
		return
	}

	if _, err := d.ruleSvc.MarkTriggered(ctx, rule.ID); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"ruleId": rule.ID.Hex(),
		}).Error("⚙️ [AUTOMATION] Không cập nhật được timesTriggered")
	}

	log.WithFields(map[string]interface{}{
		"ruleId":       rule.ID.Hex(),
		"trigger":      trigger,
		"recipients":   len(recipients),
		"successCount": result.SuccessCount,
		"failureCount": result.FailureCount,
	}).Info("⚙️ [AUTOMATION] Đã fan-out cho rule")
}

// resolveAudience map role của trigger sang danh sách recipient
func (d *AutomationDispatcher) resolveAudience(ctx context.Context, trigger string) ([]notify.Recipient, error) {
	roles := audienceRoles(trigger)
	if len(roles) == 0 {
		return nil, nil
	}

	users, err := d.userSvc.FindActiveByRoles(ctx, roles...)
	if err != nil {
		return nil, err
	}

	recipients := make([]notify.Recipient, 0, len(users))
	for _, user := range users {
		recipients = append(recipients, notify.Recipient{
			UserID:    user.ID,
			PushToken: user.PushToken,
		})
	}
	return recipients, nil
}
