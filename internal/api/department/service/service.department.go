package deptsvc

import (
	"context"
	"fmt"

	basesvc "civic_admin/internal/api/base/service"
	deptmodels "civic_admin/internal/api/department/models"
	"civic_admin/internal/common"
	"civic_admin/internal/global"

	"go.mongodb.org/mongo-driver/bson"
)

// DepartmentService là cấu trúc chứa các phương thức liên quan đến Department
type DepartmentService struct {
	*basesvc.BaseServiceMongoImpl[deptmodels.Department]
}

// NewDepartmentService tạo mới DepartmentService
func NewDepartmentService() (*DepartmentService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Departments)
	if !exist {
		return nil, fmt.Errorf("failed to get departments collection: %v", common.ErrNotFound)
	}

	return &DepartmentService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[deptmodels.Department](collection),
	}, nil
}

// FindByName tìm phòng ban theo tên (khóa tự nhiên mà assignment rule trỏ tới)
func (s *DepartmentService) FindByName(ctx context.Context, name string) (deptmodels.Department, error) {
	return s.FindOne(ctx, bson.M{"name": name}, nil)
}
