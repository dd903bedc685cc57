package service

import (
	"context"
	"strings"
	"time"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/pkg/util"
)

// UserService 用户服务
// 处理个人资料、修改密码以及管理员的用户管理
type UserService struct {
	store          *repository.Store
	passwordScheme string // 新密码使用的哈希方案
	now            func() time.Time
}

// NewUserService 创建 UserService 实例
func NewUserService(store *repository.Store, passwordScheme string) *UserService {
	return &UserService{
		store:          store,
		passwordScheme: passwordScheme,
		now:            time.Now,
	}
}

// GetProfile 获取用户资料
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//
// 返回:
//   - *model.User: 用户信息
//   - error: 用户不存在返回错误
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, persistence(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword 修改自己的密码
func (s *UserService) ChangePassword(ctx context.Context, caller Caller, req *ChangePasswordRequest) error {
	hash, err := util.HashPassword(req.NewPassword, s.passwordScheme)
	if err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.GetByID(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if !util.CheckPassword(req.OldPassword, user.PasswordHash) {
			return ErrOldPasswordWrong
		}
		if err := tx.Users.UpdateFields(ctx, user.ID, map[string]interface{}{"password": hash}); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionUpdate, model.TableUsers, s.now(),
			"用户 %s 修改密码", user.Code)
	})
	return persistence(err)
}

// CreateUserRequest 新增用户请求
type CreateUserRequest struct {
	Code     string     `json:"code" binding:"required"`
	Name     string     `json:"uname" binding:"required"`
	Role     model.Role `json:"role" binding:"required"`
	Password string     `json:"password" binding:"required,min=6"`
	Phone    *string    `json:"phone"`
}

// UpdateUserRequest 部分更新用户请求，nil 字段表示不修改
type UpdateUserRequest struct {
	Code     *string     `json:"code"`
	Name     *string     `json:"uname"`
	Role     *model.Role `json:"role"`
	Password *string     `json:"password"`
	Phone    *string     `json:"phone"`
}

// List 列出用户，仅管理员
func (s *UserService) List(ctx context.Context, caller Caller, role model.Role) ([]model.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	users, err := s.store.Users.List(ctx, role)
	if err != nil {
		return nil, persistence(err)
	}
	return users, nil
}

// Get 获取用户，管理员可看所有人，其他人只能看自己
func (s *UserService) Get(ctx context.Context, caller Caller, id int64) (*model.User, error) {
	if !caller.IsAdmin() && caller.UserID != id {
		return nil, ErrPermissionDenied
	}
	return s.GetProfile(ctx, id)
}

// Create 新增用户
// 管理员通过接口调用，管理命令行以空调用者调用（审计记录的操作人为空）
func (s *UserService) Create(ctx context.Context, caller Caller, req *CreateUserRequest) (*model.User, error) {
	if caller.UserID != 0 && !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	code := strings.TrimSpace(req.Code)
	name := strings.TrimSpace(req.Name)
	if code == "" || name == "" {
		return nil, validation("账号和姓名不能为空")
	}
	if !req.Role.Valid() {
		return nil, validation("无效的角色")
	}
	hash, err := util.HashPassword(req.Password, s.passwordScheme)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Name:         name,
		Role:         req.Role,
		Code:         code,
		PasswordHash: hash,
		Phone:        req.Phone,
	}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		exists, err := tx.Users.ExistsByCode(ctx, code, 0)
		if err != nil {
			return err
		}
		if exists {
			return ErrCodeExists
		}
		if err := tx.Users.Create(ctx, &user); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionInsert, model.TableUsers, s.now(),
			"新增用户 #%d %s(%s)，角色 %s", user.ID, user.Name, user.Code, user.Role)
	})
	if err != nil {
		return nil, persistence(err)
	}
	return &user, nil
}

// Update 部分更新用户，仅管理员
func (s *UserService) Update(ctx context.Context, caller Caller, id int64, req *UpdateUserRequest) (*model.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	fields := map[string]interface{}{}
	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code == "" {
			return nil, validation("账号不能为空")
		}
		fields["code"] = code
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validation("姓名不能为空")
		}
		fields["uname"] = name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, validation("无效的角色")
		}
		fields["role"] = *req.Role
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return nil, validation("密码至少 6 位")
		}
		hash, err := util.HashPassword(*req.Password, s.passwordScheme)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
	}
	if len(fields) == 0 {
		return nil, validation("没有需要更新的字段")
	}

	var updated *model.User
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if code, ok := fields["code"].(string); ok {
			exists, err := tx.Users.ExistsByCode(ctx, code, id)
			if err != nil {
				return err
			}
			if exists {
				return ErrCodeExists
			}
		}
		if err := tx.Users.UpdateFields(ctx, id, fields); err != nil {
			return err
		}
		if err := appendAudit(ctx, tx, caller, model.ActionUpdate, model.TableUsers, s.now(),
			"更新用户 #%d，字段 %s", id, fieldNames(fields)); err != nil {
			return err
		}
		updated, err = tx.Users.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}
	return updated, nil
}

// Delete 删除用户，仅管理员，不能删除自己
func (s *UserService) Delete(ctx context.Context, caller Caller, id int64) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	if caller.UserID == id {
		return ErrCannotDeleteSelf
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if err := tx.Users.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionDelete, model.TableUsers, s.now(),
			"删除用户 #%d %s(%s)", user.ID, user.Name, user.Code)
	})
	return persistence(err)
}
