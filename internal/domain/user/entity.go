package user

import (
	"strings"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleMember Role = "member" // 普通借阅人
	RoleAdmin  Role = "admin"  // 馆员(登记借出、确认归还)
)

// User 用户实体(聚合根)
// 设计说明:
// 1. 密码只保存bcrypt哈希值
// 2. Role在注册时确定,决定能否访问管理端接口
// 3. 领域实体不依赖GORM tag
type User struct {
	ID        uint
	Email     string
	Password  string // bcrypt哈希值
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建新用户(工厂方法)
// hashedPassword必须是bcrypt加密后的密码
func NewUser(email, hashedPassword, name string, role Role) *User {
	now := time.Now()
	return &User{
		Email:     strings.ToLower(email),
		Password:  hashedPassword,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin 是否馆员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Rename 修改显示名
// 已有借阅中的借阅人快照不受影响
func (u *User) Rename(name string) {
	u.Name = name
	u.UpdatedAt = time.Now()
}
