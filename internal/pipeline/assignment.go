package pipeline

import (
	"context"
	"fmt"
	"strings"

	deptmodels "civic_admin/internal/api/department/models"
	deptsvc "civic_admin/internal/api/department/service"
	issuemodels "civic_admin/internal/api/issue/models"
	issuesvc "civic_admin/internal/api/issue/service"
	rulemodels "civic_admin/internal/api/rule/models"
	"civic_admin/internal/common"
	"civic_admin/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// issueAssigner là phần ghi phân công của IssueService mà resolver cần
type issueAssigner interface {
	AssignDepartment(ctx context.Context, issueID primitive.ObjectID, department string) (issuemodels.Issue, error)
	FindUnassigned(ctx context.Context, limit int64) ([]issuemodels.Issue, error)
}

// auditCommenter ghi audit comment với author "System" lên issue
type auditCommenter interface {
	AddSystemComment(ctx context.Context, issueID primitive.ObjectID, body string) (issuemodels.IssueComment, error)
}

// departmentFinder tra phòng ban theo tên (cảnh báo khi rule trỏ sai)
type departmentFinder interface {
	FindByName(ctx context.Context, name string) (deptmodels.Department, error)
}

// ResolveAssignment tra bảng assignment rule theo thứ tự, trả về phòng ban của
// rule đầu tiên có category khớp (không phân biệt hoa thường) — first-match-wins.
// Thuần túy, không I/O.
func ResolveAssignment(rules []rulemodels.AssignmentRule, category string) (string, bool) {
	for _, rule := range rules {
		if strings.EqualFold(rule.Category, category) {
			return rule.Department, true
		}
	}
	return "", false
}

// AssignmentResolver phân công issue vào phòng ban theo assignment rule table
type AssignmentResolver struct {
	rules      *RuleStore
	issueSvc   issueAssigner
	commentSvc auditCommenter
	deptSvc    departmentFinder
}

// NewAssignmentResolver tạo mới AssignmentResolver đọc rule từ store được inject
func NewAssignmentResolver(rules *RuleStore) (*AssignmentResolver, error) {
	issueSvc, err := issuesvc.NewIssueService()
	if err != nil {
		return nil, err
	}
	commentSvc, err := issuesvc.NewIssueCommentService()
	if err != nil {
		return nil, err
	}
	deptSvc, err := deptsvc.NewDepartmentService()
	if err != nil {
		return nil, err
	}

	return NewAssignmentResolverWith(rules, issueSvc, commentSvc, deptSvc), nil
}

// NewAssignmentResolverWith tạo AssignmentResolver với các dependency được inject.
// deptSvc có thể nil — khi đó bỏ qua bước kiểm tra tên phòng ban.
func NewAssignmentResolverWith(rules *RuleStore, issueSvc issueAssigner, commentSvc auditCommenter, deptSvc departmentFinder) *AssignmentResolver {
	return &AssignmentResolver{
		rules:      rules,
		issueSvc:   issueSvc,
		commentSvc: commentSvc,
		deptSvc:    deptSvc,
	}
}

// Resolve trả về tên phòng ban cho issue theo rule table hiện tại, hoặc ("", false)
// nếu không rule nào khớp (configuration absence — không phải lỗi).
func (a *AssignmentResolver) Resolve(issue issuemodels.Issue) (string, bool) {
	return ResolveAssignment(a.rules.ActiveAssignmentRules(), issue.Category)
}

// Apply resolve và ghi phân công cho issue. Idempotent dưới retry: issue đã có
// phòng ban thì bỏ qua, conditional patch ở tầng service chặn race khi hai sự kiện
// của cùng issue chen nhau. Trả về true nếu lần gọi này thực sự phân công.
func (a *AssignmentResolver) Apply(ctx context.Context, issue issuemodels.Issue) (bool, error) {
	if !issue.IsUnassigned() {
		return false, nil
	}

	department, ok := a.Resolve(issue)
	if !ok {
		return false, nil
	}

	log := logger.GetAppLogger()

	// Rule table trỏ theo tên phòng ban, không có ràng buộc FK — phân công vẫn
	// diễn ra, chỉ cảnh báo khi rule trỏ tới phòng ban không tồn tại hoặc đã ngưng.
	if a.deptSvc != nil {
		dept, err := a.deptSvc.FindByName(ctx, department)
		switch {
		case err == common.ErrNotFound:
			log.WithFields(map[string]interface{}{
				"department": department,
				"category":   issue.Category,
			}).Warn("🏷️ [ASSIGN] Rule trỏ tới phòng ban chưa được khai báo")
		case err == nil && !dept.Active:
			log.WithFields(map[string]interface{}{
				"department": department,
			}).Warn("🏷️ [ASSIGN] Phòng ban được phân công đã ngưng hoạt động")
		}
	}

	if _, err := a.issueSvc.AssignDepartment(ctx, issue.ID, department); err != nil {
		if err == common.ErrNotFound {
			// Issue đã được phân công bởi sự kiện khác trong lúc xử lý — bỏ qua
			return false, nil
		}
		log.WithError(err).WithFields(map[string]interface{}{
			"issueId":    issue.ID.Hex(),
			"department": department,
		}).Error("🏷️ [ASSIGN] Lỗi ghi phân công, issue giữ nguyên chưa phân công chờ sweep kế tiếp")
		return false, err
	}

	body := fmt.Sprintf("Auto-assigned to %s based on category %s", department, issue.Category)
	if _, err := a.commentSvc.AddSystemComment(ctx, issue.ID, body); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"issueId": issue.ID.Hex(),
		}).Warn("🏷️ [ASSIGN] Không ghi được audit comment")
	}

	log.WithFields(map[string]interface{}{
		"issueId":    issue.ID.Hex(),
		"category":   issue.Category,
		"department": department,
	}).Info("🏷️ [ASSIGN] Đã phân công issue")

	return true, nil
}

// RunBulkAutoAssign quét issue chưa phân công và apply resolver cho từng issue,
// trả về số issue được phân công lần này. limit <= 0 = quét toàn bộ. Issue không
// có rule khớp giữ nguyên; chạy lại lần hai không ghi thêm gì.
func (a *AssignmentResolver) RunBulkAutoAssign(ctx context.Context, limit int64) (int, error) {
	issues, err := a.issueSvc.FindUnassigned(ctx, limit)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, issue := range issues {
		ok, err := a.Apply(ctx, issue)
		if err != nil {
			// Một issue lỗi không chặn các issue còn lại
			continue
		}
		if ok {
			assigned++
		}
	}

	if assigned > 0 {
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"assigned": assigned,
			"total":    len(issues),
		}).Info("🏷️ [ASSIGN] Bulk auto-assign hoàn tất")
	}

	return assigned, nil
}

// HandleIssueAdded là entry point incremental: chỉ apply cho issue vừa được thêm
// với phòng ban còn trống
func (a *AssignmentResolver) HandleIssueAdded(ctx context.Context, issue issuemodels.Issue) {
	if !issue.IsUnassigned() {
		return
	}
	if _, err := a.Apply(ctx, issue); err != nil {
		logger.GetAppLogger().WithError(err).WithFields(map[string]interface{}{
			"issueId": issue.ID.Hex(),
		}).Error("🏷️ [ASSIGN] Lỗi phân công incremental, sẽ tự phục hồi ở sweep kế tiếp")
	}
}
