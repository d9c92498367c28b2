// Package pipeline là engine phản ứng của hệ thống: mỗi sự kiện thay đổi trên
// collection issues đi qua chuỗi phân công phòng ban → dò trùng lặp → đánh giá
// automation rule. Mọi bước ghi đều idempotent vì chính các bản ghi của pipeline
// lại sinh ra sự kiện mới (vòng tự nuôi).
package pipeline

import (
	"context"
	"fmt"
	"time"

	issuemodels "civic_admin/internal/api/issue/models"
	issuesvc "civic_admin/internal/api/issue/service"
	rulemodels "civic_admin/internal/api/rule/models"
	"civic_admin/internal/logger"
	"civic_admin/internal/watch"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pipeline sở hữu toàn bộ các thành phần xử lý và vòng đời của chúng.
// Start/Stop là một đơn vị: dừng pipeline là hủy mọi subscription và task chờ.
type Pipeline struct {
	rules      *RuleStore
	resolver   *AssignmentResolver
	detector   *DuplicateDetector
	dispatcher *AutomationDispatcher
	debouncer  *Debouncer

	issueSvc   *issuesvc.IssueService
	commentSvc *issuesvc.IssueCommentService

	runCtx context.Context
	cancel context.CancelFunc
}

// NewPipeline tạo mới Pipeline với độ trễ debounce cho issue mới tạo
func NewPipeline(debounceDelay time.Duration, fanout FanoutSender) (*Pipeline, error) {
	rules, err := NewRuleStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create rule store: %v", err)
	}
	resolver, err := NewAssignmentResolver(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment resolver: %v", err)
	}
	detector, err := NewDuplicateDetector()
	if err != nil {
		return nil, fmt.Errorf("failed to create duplicate detector: %v", err)
	}
	dispatcher, err := NewAutomationDispatcher(rules, fanout)
	if err != nil {
		return nil, fmt.Errorf("failed to create automation dispatcher: %v", err)
	}
	issueSvc, err := issuesvc.NewIssueService()
	if err != nil {
		return nil, fmt.Errorf("failed to create issue service: %v", err)
	}
	commentSvc, err := issuesvc.NewIssueCommentService()
	if err != nil {
		return nil, fmt.Errorf("failed to create issue comment service: %v", err)
	}

	return &Pipeline{
		rules:      rules,
		resolver:   resolver,
		detector:   detector,
		dispatcher: dispatcher,
		debouncer:  NewDebouncer(debounceDelay),
		issueSvc:   issueSvc,
		commentSvc: commentSvc,
	}, nil
}

// Start nạp snapshot rule và mở các change stream consumer.
// Mỗi collection một consumer, handler chạy tuần tự theo thứ tự sự kiện.
func (p *Pipeline) Start(ctx context.Context) {
	p.runCtx, p.cancel = context.WithCancel(ctx)

	p.rules.Start(p.runCtx)

	issueWatcher := watch.NewWatcher(p.issueSvc.Collection(), "issues", p.handleIssueEvent)
	commentWatcher := watch.NewWatcher(p.commentSvc.Collection(), "issue_comments", p.handleCommentEvent)
	go issueWatcher.Start(p.runCtx)
	go commentWatcher.Start(p.runCtx)

	logger.GetAppLogger().Info("🚦 [PIPELINE] Issue pipeline started")
}

// Stop hạ toàn bộ pipeline như một đơn vị: hủy subscription, hủy task debounce
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.debouncer.Stop()
	p.rules.Stop()
	logger.GetAppLogger().Info("🚦 [PIPELINE] Issue pipeline stopped")
}

// RunBulkAutoAssign quét issue chưa phân công và áp rule table, trả về số issue
// đã gán. limit <= 0 = quét toàn bộ (endpoint admin dùng 0, sweep worker dùng batch size).
func (p *Pipeline) RunBulkAutoAssign(ctx context.Context, limit int64) (int, error) {
	return p.resolver.RunBulkAutoAssign(ctx, limit)
}

// FindDuplicatesByID trả về danh sách match xếp hạng cho một issue, phục vụ admin UI
func (p *Pipeline) FindDuplicatesByID(ctx context.Context, issueID primitive.ObjectID) ([]DuplicateMatch, error) {
	issue, err := p.issueSvc.FindOneById(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return p.detector.FindDuplicates(ctx, issue)
}

// ClearDuplicateFlag gỡ cờ trùng lặp của một issue theo yêu cầu admin
func (p *Pipeline) ClearDuplicateFlag(ctx context.Context, issueID primitive.ObjectID) error {
	return p.detector.ClearDuplicateFlag(ctx, issueID)
}

// handleIssueEvent là handler cho change stream của collection issues
func (p *Pipeline) handleIssueEvent(ctx context.Context, event watch.Event) {
	log := logger.GetAppLogger()

	if event.Type == watch.EventRemoved {
		return
	}

	var issue issuemodels.Issue
	if err := bson.Unmarshal(event.FullDocument, &issue); err != nil {
		// updateLookup có thể trả document rỗng nếu document vừa bị xóa
		log.WithError(err).WithFields(map[string]interface{}{
			"documentId": event.DocumentID.Hex(),
		}).Warn("🚦 [PIPELINE] Bỏ qua sự kiện issue không decode được")
		return
	}

	switch event.Type {
	case watch.EventAdded:
		p.resolver.HandleIssueAdded(ctx, issue)

		// Chờ document ổn định rồi mới dò trùng lặp, tránh đua với write đầu tiên
		issueID := issue.ID
		p.debouncer.Schedule(issueID.Hex(), func() {
			p.detector.ProcessNewIssue(p.runCtx, issueID)
		})
	}

	for _, trigger := range ClassifyTriggers(event.Type, event.UpdatedFields, &issue) {
		p.dispatcher.Dispatch(ctx, trigger, &issue)
	}
}

// handleCommentEvent là handler cho change stream của collection issue_comments.
// Comment do "System" ghi (audit của chính pipeline) không sinh trigger.
func (p *Pipeline) handleCommentEvent(ctx context.Context, event watch.Event) {
	log := logger.GetAppLogger()

	if event.Type != watch.EventAdded {
		return
	}

	var comment issuemodels.IssueComment
	if err := bson.Unmarshal(event.FullDocument, &comment); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"documentId": event.DocumentID.Hex(),
		}).Warn("🚦 [PIPELINE] Bỏ qua sự kiện comment không decode được")
		return
	}
	if comment.Author == issuemodels.CommentAuthorSystem {
		return
	}

	issue, err := p.issueSvc.FindOneById(ctx, comment.IssueID)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"issueId": comment.IssueID.Hex(),
		}).Warn("🚦 [PIPELINE] Không đọc được issue của comment mới")
		return
	}

	p.dispatcher.Dispatch(ctx, rulemodels.TriggerCommentAdded, &issue)
}
