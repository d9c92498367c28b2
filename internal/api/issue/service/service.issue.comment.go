package issuesvc

import (
	"context"
	"fmt"

	basesvc "civic_admin/internal/api/base/service"
	issuemodels "civic_admin/internal/api/issue/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCommentService là cấu trúc chứa các phương thức liên quan đến IssueComment
type IssueCommentService struct {
	*basesvc.BaseServiceMongoImpl[issuemodels.IssueComment]
}

// NewIssueCommentService tạo mới IssueCommentService
func NewIssueCommentService() (*IssueCommentService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.IssueComments)
	if !exist {
		return nil, fmt.Errorf("failed to get issue_comments collection: %v", common.ErrNotFound)
	}

	return &IssueCommentService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[issuemodels.IssueComment](collection),
	}, nil
}

// AddSystemComment ghi audit comment với author "System" lên issue
func (s *IssueCommentService) AddSystemComment(ctx context.Context, issueID primitive.ObjectID, body string) (issuemodels.IssueComment, error) {
	comment := issuemodels.IssueComment{
		IssueID: issueID,
		Author:  issuemodels.CommentAuthorSystem,
		Body:    body,
	}
	return s.InsertOne(ctx, comment)
}
