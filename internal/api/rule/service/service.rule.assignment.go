package rulesvc

import (
	"context"
	"fmt"

	basesvc "civic_admin/internal/api/base/service"
	rulemodels "civic_admin/internal/api/rule/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AssignmentRuleService là cấu trúc chứa các phương thức liên quan đến AssignmentRule
type AssignmentRuleService struct {
	*basesvc.BaseServiceMongoImpl[rulemodels.AssignmentRule]
}

// NewAssignmentRuleService tạo mới AssignmentRuleService
func NewAssignmentRuleService() (*AssignmentRuleService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.AssignmentRules)
	if !exist {
		return nil, fmt.Errorf("failed to get assignment_rules collection: %v", common.ErrNotFound)
	}

	return &AssignmentRuleService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[rulemodels.AssignmentRule](collection),
	}, nil
}

// FindAllInTableOrder trả về toàn bộ assignment rule theo đúng thứ tự bảng cấu hình
// của admin (order tăng dần, createdAt tăng dần). Thứ tự này quyết định first-match-wins
// nên phải được giữ nguyên khi nạp vào snapshot.
func (s *AssignmentRuleService) FindAllInTableOrder(ctx context.Context) ([]rulemodels.AssignmentRule, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "order", Value: 1},
		{Key: "createdAt", Value: 1},
	})
	cursor, err := s.Collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var rules []rulemodels.AssignmentRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, common.ConvertMongoError(err)
	}

	return rules, nil
}
