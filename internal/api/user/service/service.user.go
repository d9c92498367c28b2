package usersvc

import (
	"context"
	"fmt"

	basesvc "civic_admin/internal/api/base/service"
	usermodels "civic_admin/internal/api/user/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"

	"go.mongodb.org/mongo-driver/bson"
)

// UserService là cấu trúc chứa các phương thức liên quan đến User
type UserService struct {
	*basesvc.BaseServiceMongoImpl[usermodels.User]
}

// NewUserService tạo mới UserService
func NewUserService() (*UserService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.AuthUsers)
	if !exist {
		return nil, fmt.Errorf("failed to get auth_users collection: %v", common.ErrNotFound)
	}

	return &UserService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[usermodels.User](collection),
	}, nil
}

// FindActiveByRoles trả về các user đang hoạt động thuộc một trong các role cho trước.
// Dùng để resolve audience cho automation rule (vd: issue_assigned → department_head).
func (s *UserService) FindActiveByRoles(ctx context.Context, roles ...string) ([]usermodels.User, error) {
	filter := bson.M{"active": true}
	if len(roles) > 0 {
		filter["role"] = bson.M{"$in": roles}
	}

	cursor, err := s.Collection().Find(ctx, filter)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var users []usermodels.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, common.ConvertMongoError(err)
	}

	return users, nil
}
