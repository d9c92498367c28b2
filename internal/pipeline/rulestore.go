package pipeline

import (
	"context"
	"sync"

	rulemodels "civic_admin/internal/api/rule/models"
	rulesvc "civic_admin/internal/api/rule/service"
	"civic_admin/internal/logger"
	"civic_admin/internal/watch"
)

// RuleStore giữ bản sao in-memory của hai bảng cấu hình: assignment_rules và
// automation_rules. Mỗi sự kiện change stream trên bảng nào thì thay toàn bộ
// snapshot của bảng đó; đọc là pure read trên snapshot cuối, không gọi mạng.
// Subscription lỗi → giữ nguyên snapshot known-good cuối cùng và log, không
// bao giờ ném lỗi cho caller.
type RuleStore struct {
	mu              sync.RWMutex
	assignmentRules []rulemodels.AssignmentRule
	automationRules []rulemodels.AutomationRule

	assignmentSvc *rulesvc.AssignmentRuleService
	automationSvc *rulesvc.AutomationRuleService

	cancel context.CancelFunc
}

// NewRuleStore tạo mới RuleStore với các service truy cập hai bảng rule
func NewRuleStore() (*RuleStore, error) {
	assignmentSvc, err := rulesvc.NewAssignmentRuleService()
	if err != nil {
		return nil, err
	}
	automationSvc, err := rulesvc.NewAutomationRuleService()
	if err != nil {
		return nil, err
	}

	return &RuleStore{
		assignmentSvc: assignmentSvc,
		automationSvc: automationSvc,
	}, nil
}

// Start nạp snapshot ban đầu và mở change stream consumer cho cả hai bảng.
// Lỗi nạp ban đầu chỉ log — store phục vụ snapshot rỗng cho tới sự kiện đầu tiên.
func (s *RuleStore) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	log := logger.GetAppLogger()

	s.reloadAssignmentRules(ctx)
	s.reloadAutomationRules(ctx)

	assignmentWatcher := watch.NewWatcher(s.assignmentSvc.Collection(), "assignment_rules", func(ctx context.Context, _ watch.Event) {
		s.reloadAssignmentRules(ctx)
	})
	automationWatcher := watch.NewWatcher(s.automationSvc.Collection(), "automation_rules", func(ctx context.Context, _ watch.Event) {
		s.reloadAutomationRules(ctx)
	})

	go assignmentWatcher.Start(ctx)
	go automationWatcher.Start(ctx)

	log.Info("📋 [RULESTORE] Rule store started")
}

// Stop đóng các subscription của store
func (s *RuleStore) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// reloadAssignmentRules thay toàn bộ snapshot assignment rule theo thứ tự bảng
func (s *RuleStore) reloadAssignmentRules(ctx context.Context) {
	rules, err := s.assignmentSvc.FindAllInTableOrder(ctx)
	if err != nil {
		logger.GetAppLogger().WithError(err).Error("📋 [RULESTORE] Lỗi nạp assignment rules, giữ snapshot cũ")
		return
	}
	s.ReplaceAssignmentRules(rules)
}

// reloadAutomationRules thay toàn bộ snapshot automation rule
func (s *RuleStore) reloadAutomationRules(ctx context.Context) {
	rules, err := s.automationSvc.FindAll(ctx)
	if err != nil {
		logger.GetAppLogger().WithError(err).Error("📋 [RULESTORE] Lỗi nạp automation rules, giữ snapshot cũ")
		return
	}
	s.ReplaceAutomationRules(rules)
}

// ReplaceAssignmentRules thay snapshot assignment rule (giữ nguyên thứ tự đưa vào)
func (s *RuleStore) ReplaceAssignmentRules(rules []rulemodels.AssignmentRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignmentRules = rules
}

// ReplaceAutomationRules thay snapshot automation rule
func (s *RuleStore) ReplaceAutomationRules(rules []rulemodels.AutomationRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.automationRules = rules
}

// ActiveAssignmentRules trả về các assignment rule đang bật, đúng thứ tự bảng
func (s *RuleStore) ActiveAssignmentRules() []rulemodels.AssignmentRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]rulemodels.AssignmentRule, 0, len(s.assignmentRules))
	for _, rule := range s.assignmentRules {
		if rule.Enabled {
			active = append(active, rule)
		}
	}
	return active
}

// ActiveAutomationRules trả về các automation rule đang bật khớp trigger cho trước
func (s *RuleStore) ActiveAutomationRules(trigger string) []rulemodels.AutomationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]rulemodels.AutomationRule, 0, len(s.automationRules))
	for _, rule := range s.automationRules {
		if rule.Enabled && rule.Trigger == trigger {
			active = append(active, rule)
		}
	}
	return active
}
