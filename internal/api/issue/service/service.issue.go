package issuesvc

import (
	"context"
	"fmt"
	"time"

	basesvc "civic_admin/internal/api/base/service"
	issuemodels "civic_admin/internal/api/issue/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UnassignedFilter là điều kiện "chưa phân công": assignedDepartment rỗng HOẶC thiếu hẳn.
// (Insert của base service strip chuỗi rỗng nên field có thể không tồn tại trong document.)
func UnassignedFilter() bson.M {
	return bson.M{
		"$or": []bson.M{
			{"assignedDepartment": ""},
			{"assignedDepartment": bson.M{"$exists": false}},
		},
	}
}

// IssueService là cấu trúc chứa các phương thức liên quan đến Issue
type IssueService struct {
	*basesvc.BaseServiceMongoImpl[issuemodels.Issue]
}

// NewIssueService tạo mới IssueService
func NewIssueService() (*IssueService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Issues)
	if !exist {
		return nil, fmt.Errorf("failed to get issues collection: %v", common.ErrNotFound)
	}

	return &IssueService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[issuemodels.Issue](collection),
	}, nil
}

// FindUnassigned trả về các issue chưa được phân công phòng ban.
// limit <= 0 nghĩa là không giới hạn (dùng cho bulk assign qua API);
// sweep worker truyền batch size để mỗi lần quét không phình vô hạn.
func (s *IssueService) FindUnassigned(ctx context.Context, limit int64) ([]issuemodels.Issue, error) {
	opts := options.Find().SetSort(bson.M{"reportedAt": 1})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.Collection().Find(ctx, UnassignedFilter(), opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var issues []issuemodels.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, common.ConvertMongoError(err)
	}

	return issues, nil
}

// AssignDepartment gán phòng ban cho issue bằng conditional patch: chỉ ghi khi issue
// còn chưa phân công. Trả về common.ErrNotFound nếu issue đã có phòng ban — caller
// dùng điều này để bỏ qua (idempotent dưới retry, không bao giờ ghi đè phân công cũ).
func (s *IssueService) AssignDepartment(ctx context.Context, issueID primitive.ObjectID, department string) (issuemodels.Issue, error) {
	filter := bson.M{"_id": issueID}
	for k, v := range UnassignedFilter() {
		filter[k] = v
	}

	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"assignedDepartment": department,
		},
	}
	return s.UpdateOne(ctx, filter, update, nil)
}

// FindDuplicateCandidates trả về các ứng viên trùng lặp cho subject: status open/in_progress,
// reportedAt trong 7 ngày liền trước reportedAt của subject (mốc cắt cứng theo subject,
// không phải cửa sổ trượt theo "now"), có location và không phải chính subject.
func (s *IssueService) FindDuplicateCandidates(ctx context.Context, subject issuemodels.Issue) ([]issuemodels.Issue, error) {
	cutoff := subject.ReportedAt - 7*24*time.Hour.Milliseconds()

	filter := bson.M{
		"_id":        bson.M{"$ne": subject.ID},
		"status":     bson.M{"$in": []string{issuemodels.IssueStatusOpen, issuemodels.IssueStatusInProgress}},
		"reportedAt": bson.M{"$gt": cutoff},
		"location":   bson.M{"$exists": true, "$ne": nil},
	}

	opts := options.Find().SetSort(bson.M{"reportedAt": -1})
	cursor, err := s.Collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var candidates []issuemodels.Issue
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, common.ConvertMongoError(err)
	}

	return candidates, nil
}

// FlagDuplicate ghi cờ trùng lặp lên issue. Conditional patch: bỏ qua (ErrNotFound)
// nếu issue đã được gắn đúng cờ này — lần chạy lặp không tạo ghi thừa.
func (s *IssueService) FlagDuplicate(ctx context.Context, issueID primitive.ObjectID, duplicateOfID primitive.ObjectID, score float64) (issuemodels.Issue, error) {
	if issueID == duplicateOfID {
		return *new(issuemodels.Issue), common.NewError(
			common.ErrCodeValidationInput,
			"duplicateOfId không được trùng với chính issue",
			common.StatusBadRequest,
			nil,
		)
	}

	filter := bson.M{
		"_id":           issueID,
		"duplicateOfId": bson.M{"$ne": duplicateOfID},
	}
	update := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"duplicateOfId":  duplicateOfID,
			"duplicateScore": score,
		},
	}
	return s.UpdateOne(ctx, filter, update, nil)
}

// ClearDuplicateFlag gỡ cờ trùng lặp (admin thao tác qua API). Bỏ qua nếu không có cờ.
func (s *IssueService) ClearDuplicateFlag(ctx context.Context, issueID primitive.ObjectID) (issuemodels.Issue, error) {
	filter := bson.M{
		"_id":           issueID,
		"duplicateOfId": bson.M{"$exists": true},
	}
	update := &basesvc.UpdateData{
		Unset: map[string]interface{}{
			"duplicateOfId":  "",
			"duplicateScore": "",
		},
	}
	return s.UpdateOne(ctx, filter, update, nil)
}
