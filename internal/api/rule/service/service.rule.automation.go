package rulesvc

import (
	"context"
	"fmt"

	basesvc "civic_admin/internal/api/base/service"
	rulemodels "civic_admin/internal/api/rule/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"
	"civic_admin/internal/utility"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AutomationRuleService là cấu trúc chứa các phương thức liên quan đến AutomationRule
type AutomationRuleService struct {
	*basesvc.BaseServiceMongoImpl[rulemodels.AutomationRule]
}

// NewAutomationRuleService tạo mới AutomationRuleService
func NewAutomationRuleService() (*AutomationRuleService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.AutomationRules)
	if !exist {
		return nil, fmt.Errorf("failed to get automation_rules collection: %v", common.ErrNotFound)
	}

	return &AutomationRuleService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[rulemodels.AutomationRule](collection),
	}, nil
}

// FindAll trả về toàn bộ automation rule (snapshot nạp tất cả, filter enabled khi đọc)
func (s *AutomationRuleService) FindAll(ctx context.Context) ([]rulemodels.AutomationRule, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := s.Collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var rules []rulemodels.AutomationRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, common.ConvertMongoError(err)
	}

	return rules, nil
}

// MarkTriggered tăng timesTriggered đúng 1 và cập nhật lastTriggered.
// Chỉ gọi sau một lần fan-out được thực hiện thành công — counter chỉ tăng, không bao giờ set lại.
func (s *AutomationRuleService) MarkTriggered(ctx context.Context, ruleID primitive.ObjectID) (rulemodels.AutomationRule, error) {
	update := &basesvc.UpdateData{
		Inc: map[string]interface{}{
			"timesTriggered": int64(1),
		},
		Set: map[string]interface{}{
			"lastTriggered": utility.CurrentTimeInMilli(),
		},
	}
	return s.UpdateOne(ctx, bson.M{"_id": ruleID}, update, nil)
}
