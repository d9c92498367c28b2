// Package pipeline - Test tra bảng assignment rule (first-match-wins, case-insensitive).
package pipeline

import (
	"context"
	"testing"

	issuemodels "civic_admin/internal/api/issue/models"
	rulemodels "civic_admin/internal/api/rule/models"
	"civic_admin/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolveAssignment_CaseInsensitiveMatch(t *testing.T) {
	rules := []rulemodels.AssignmentRule{
		{Category: "Roads", Department: "Public Works", Enabled: true},
	}

	department, ok := ResolveAssignment(rules, "roads")
	if !ok {
		t.Fatal("ResolveAssignment phải khớp category không phân biệt hoa thường")
	}
	if department != "Public Works" {
		t.Errorf("ResolveAssignment trả về %q, muốn %q", department, "Public Works")
	}
}

func TestResolveAssignment_NoMatchingRule(t *testing.T) {
	rules := []rulemodels.AssignmentRule{
		{Category: "Roads", Department: "Public Works", Enabled: true},
	}

	if _, ok := ResolveAssignment(rules, "Water Leak"); ok {
		t.Error("ResolveAssignment không được khớp category không có trong bảng")
	}
}

func TestResolveAssignment_FirstMatchWins(t *testing.T) {
	rules := []rulemodels.AssignmentRule{
		{Category: "Garbage", Department: "Sanitation", Enabled: true},
		{Category: "garbage", Department: "Waste Management", Enabled: true},
	}

	department, ok := ResolveAssignment(rules, "Garbage")
	if !ok {
		t.Fatal("ResolveAssignment phải tìm thấy rule khớp")
	}
	if department != "Sanitation" {
		t.Errorf("Rule đầu tiên trong bảng phải thắng, got %q", department)
	}
}

func TestResolveAssignment_EmptyTable(t *testing.T) {
	if _, ok := ResolveAssignment(nil, "Roads"); ok {
		t.Error("ResolveAssignment trên bảng rỗng phải trả về không khớp")
	}
}

func TestRuleStore_ActiveAssignmentRulesFiltersDisabled(t *testing.T) {
	store := &RuleStore{}
	store.ReplaceAssignmentRules([]rulemodels.AssignmentRule{
		{Category: "Roads", Department: "Public Works", Enabled: true},
		{Category: "Garbage", Department: "Sanitation", Enabled: false},
		{Category: "Lighting", Department: "Utilities", Enabled: true},
	})

	active := store.ActiveAssignmentRules()
	if len(active) != 2 {
		t.Fatalf("ActiveAssignmentRules phải lọc rule disabled, got %d rules", len(active))
	}
	// Thứ tự bảng phải được giữ nguyên
	if active[0].Department != "Public Works" || active[1].Department != "Utilities" {
		t.Errorf("ActiveAssignmentRules phải giữ thứ tự bảng, got %v", active)
	}
}

func TestRuleStore_ActiveAutomationRulesFiltersByTrigger(t *testing.T) {
	store := &RuleStore{}
	store.ReplaceAutomationRules([]rulemodels.AutomationRule{
		{Trigger: rulemodels.TriggerIssueCreated, Enabled: true},
		{Trigger: rulemodels.TriggerIssueAssigned, Enabled: true},
		{Trigger: rulemodels.TriggerIssueCreated, Enabled: false},
	})

	created := store.ActiveAutomationRules(rulemodels.TriggerIssueCreated)
	if len(created) != 1 {
		t.Errorf("ActiveAutomationRules(issue_created) phải trả về 1 rule enabled, got %d", len(created))
	}
	assigned := store.ActiveAutomationRules(rulemodels.TriggerIssueAssigned)
	if len(assigned) != 1 {
		t.Errorf("ActiveAutomationRules(issue_assigned) phải trả về 1 rule, got %d", len(assigned))
	}
	if got := store.ActiveAutomationRules(rulemodels.TriggerCommentAdded); len(got) != 0 {
		t.Errorf("Trigger không có rule nào phải trả về rỗng, got %d", len(got))
	}
}

// memIssueStore giả lập collection issues với đúng ngữ nghĩa conditional patch
// của IssueService: patch chỉ ghi khi document còn ở pre-state, ngược lại trả
// common.ErrNotFound để caller bỏ qua.
type memIssueStore struct {
	issues       map[primitive.ObjectID]*issuemodels.Issue
	assignWrites int
	flagWrites   int
	clearWrites  int
}

func newMemIssueStore(issues ...issuemodels.Issue) *memIssueStore {
	store := &memIssueStore{issues: make(map[primitive.ObjectID]*issuemodels.Issue)}
	for i := range issues {
		cp := issues[i]
		store.issues[cp.ID] = &cp
	}
	return store
}

func (s *memIssueStore) AssignDepartment(ctx context.Context, issueID primitive.ObjectID, department string) (issuemodels.Issue, error) {
	issue, ok := s.issues[issueID]
	if !ok || !issue.IsUnassigned() {
		return issuemodels.Issue{}, common.ErrNotFound
	}
	issue.AssignedDepartment = department
	s.assignWrites++
	return *issue, nil
}

func (s *memIssueStore) FindUnassigned(ctx context.Context, limit int64) ([]issuemodels.Issue, error) {
	var out []issuemodels.Issue
	for _, issue := range s.issues {
		if issue.IsUnassigned() {
			out = append(out, *issue)
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *memIssueStore) FindOneById(ctx context.Context, id primitive.ObjectID) (issuemodels.Issue, error) {
	issue, ok := s.issues[id]
	if !ok {
		return issuemodels.Issue{}, common.ErrNotFound
	}
	return *issue, nil
}

func (s *memIssueStore) FindDuplicateCandidates(ctx context.Context, subject issuemodels.Issue) ([]issuemodels.Issue, error) {
	cutoff := subject.ReportedAt - duplicateWindowMillis
	var out []issuemodels.Issue
	for _, issue := range s.issues {
		if issue.ID == subject.ID || issue.Location == nil {
			continue
		}
		if issue.Status != issuemodels.IssueStatusOpen && issue.Status != issuemodels.IssueStatusInProgress {
			continue
		}
		if issue.ReportedAt <= cutoff {
			continue
		}
		out = append(out, *issue)
	}
	return out, nil
}

func (s *memIssueStore) FlagDuplicate(ctx context.Context, issueID primitive.ObjectID, duplicateOfID primitive.ObjectID, score float64) (issuemodels.Issue, error) {
	issue, ok := s.issues[issueID]
	if !ok {
		return issuemodels.Issue{}, common.ErrNotFound
	}
	if issue.DuplicateOfID != nil && *issue.DuplicateOfID == duplicateOfID {
		return issuemodels.Issue{}, common.ErrNotFound
	}
	dup := duplicateOfID
	sc := score
	issue.DuplicateOfID = &dup
	issue.DuplicateScore = &sc
	s.flagWrites++
	return *issue, nil
}

func (s *memIssueStore) ClearDuplicateFlag(ctx context.Context, issueID primitive.ObjectID) (issuemodels.Issue, error) {
	issue, ok := s.issues[issueID]
	if !ok || issue.DuplicateOfID == nil {
		return issuemodels.Issue{}, common.ErrNotFound
	}
	issue.DuplicateOfID = nil
	issue.DuplicateScore = nil
	s.clearWrites++
	return *issue, nil
}

// memCommenter thu lại các audit comment "System" được ghi
type memCommenter struct {
	comments []issuemodels.IssueComment
}

func (m *memCommenter) AddSystemComment(ctx context.Context, issueID primitive.ObjectID, body string) (issuemodels.IssueComment, error) {
	comment := issuemodels.IssueComment{
		IssueID: issueID,
		Author:  issuemodels.CommentAuthorSystem,
		Body:    body,
	}
	m.comments = append(m.comments, comment)
	return comment, nil
}

func newTestResolver(store *memIssueStore, comments *memCommenter, rules []rulemodels.AssignmentRule) *AssignmentResolver {
	ruleStore := &RuleStore{}
	ruleStore.ReplaceAssignmentRules(rules)
	return NewAssignmentResolverWith(ruleStore, store, comments, nil)
}

func unassignedIssue(category string) issuemodels.Issue {
	return issuemodels.Issue{
		ID:       primitive.NewObjectID(),
		Title:    "Pothole on main street",
		Category: category,
		Status:   issuemodels.IssueStatusOpen,
	}
}

func TestApply_AssignsAndWritesAuditComment(t *testing.T) {
	issue := unassignedIssue("Roads")
	store := newMemIssueStore(issue)
	comments := &memCommenter{}
	resolver := newTestResolver(store, comments, []rulemodels.AssignmentRule{
		{Category: "Roads", Department: "Public Works", Enabled: true},
	})

	ok, err := resolver.Apply(context.Background(), issue)
	if err != nil {
		t.Fatalf("Apply trên issue chưa phân công không được trả lỗi: %v", err)
	}
	if !ok {
		t.Fatal("Apply phải báo đã phân công")
	}
	if got := store.issues[issue.ID].AssignedDepartment; got != "Public Works" {
		t.Errorf("Issue phải được gán Public Works, got %q", got)
	}
	if len(comments.comments) != 1 {
		t.Fatalf("Phải ghi đúng một audit comment, got %d", len(comments.comments))
	}
	if got := comments.comments[0].Body; got != "Auto-assigned to Public Works based on category Roads" {
		t.Errorf("Nội dung audit comment sai: %q", got)
	}
}

func TestApply_SecondRunIsSilentNoOp(t *testing.T) {
	issue := unassignedIssue("Roads")
	store := newMemIssueStore(issue)
	comments := &memCommenter{}
	resolver := newTestResolver(store, comments, []rulemodels.AssignmentRule{
		{Category: "Roads", Department: "Public Works", Enabled: true},
	})

	if _, err := resolver.Apply(context.Background(), issue); err != nil {
		t.Fatalf("Lần Apply đầu trả lỗi: %v", err)
	}

	// Sự kiện chen nhau: lần hai vẫn thấy bản issue cũ (chưa phân công) nhưng
	// store đã chuyển trạng thái — conditional patch phải thành no-op, không lỗi
	ok, err := resolver.Apply(context.Background(), issue)
	if err != nil {
		t.Fatalf("Apply lặp lại phải là no-op im lặng, got lỗi: %v", err)
	}
	if ok {
		t.Error("Apply lặp lại không được báo đã phân công lần nữa")
	}
	if store.assignWrites != 1 {
		t.Errorf("Chỉ được ghi phân công đúng một lần, got %d", store.assignWrites)
	}
	if len(comments.comments) != 1 {
		t.Errorf("Không được ghi thêm audit comment khi lặp, got %d", len(comments.comments))
	}
}

func TestRunBulkAutoAssign_AssignsExactlyMatched(t *testing.T) {
	roads := unassignedIssue("Roads")
	garbage := unassignedIssue("Garbage")
	noRule := unassignedIssue("Water Leak")
	store := newMemIssueStore(roads, garbage, noRule)
	comments := &memCommenter{}
	resolver := newTestResolver(store, comments, []rulemodels.AssignmentRule{
		{Category: "Roads", Department: "Public Works", Enabled: true},
		{Category: "Garbage", Department: "Sanitation", Enabled: true},
	})

	assigned, err := resolver.RunBulkAutoAssign(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunBulkAutoAssign trả lỗi: %v", err)
	}
	if assigned != 2 {
		t.Errorf("Phải phân công đúng M=2 issue có rule khớp, got %d", assigned)
	}
	if !store.issues[noRule.ID].IsUnassigned() {
		t.Error("Issue không có rule khớp phải giữ nguyên chưa phân công")
	}
	if len(comments.comments) != 2 {
		t.Errorf("Mỗi phân công một audit comment, got %d", len(comments.comments))
	}

	// Chạy lần hai ngay sau đó: không còn gì để gán, không ghi gì thêm
	assigned, err = resolver.RunBulkAutoAssign(context.Background(), 0)
	if err != nil {
		t.Fatalf("Lần chạy thứ hai trả lỗi: %v", err)
	}
	if assigned != 0 {
		t.Errorf("Lần chạy thứ hai phải gán 0 issue, got %d", assigned)
	}
	if store.assignWrites != 2 {
		t.Errorf("Lần chạy thứ hai không được ghi thêm, tổng writes = %d", store.assignWrites)
	}
}
