package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// DefaultHashCost bcrypt默认cost
const DefaultHashCost = 12

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	letterPattern = regexp.MustCompile(`[a-zA-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
)

// Service 用户领域服务
type Service interface {
	// Register 用户注册(角色由管理员邮箱名单决定)
	Register(ctx context.Context, email, password, name string) (*User, error)

	// Login 用户登录
	Login(ctx context.Context, email, password string) (*User, error)

	// GetUser 查询用户(创建借阅时复制借阅人快照)
	GetUser(ctx context.Context, id uint) (*User, error)
}

type service struct {
	repo        Repository
	adminEmails map[string]struct{}
	hashCost    int
}

// Option 服务选项
type Option func(*service)

// WithHashCost 调整bcrypt cost(测试使用bcrypt.MinCost)
func WithHashCost(cost int) Option {
	return func(s *service) { s.hashCost = cost }
}

// NewService 创建用户服务
// adminEmails中的邮箱注册后自动成为馆员
func NewService(repo Repository, adminEmails []string, opts ...Option) Service {
	s := &service{
		repo:        repo,
		adminEmails: make(map[string]struct{}, len(adminEmails)),
		hashCost:    DefaultHashCost,
	}
	for _, e := range adminEmails {
		s.adminEmails[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register 用户注册
// 业务规则:
// 1. 邮箱格式校验
// 2. 密码8-20位,包含字母和数字
// 3. 姓名2-50个字符
// 4. 邮箱唯一性由数据库UNIQUE索引保证
func (s *service) Register(ctx context.Context, email, password, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "邮箱格式不正确")
	}

	if err := validatePasswordStrength(password); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "姓名长度应为2-50个字符")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, apperrors.Wrap(err, "密码加密失败")
	}

	role := RoleMember
	if _, ok := s.adminEmails[email]; ok {
		role = RoleAdmin
	}

	u := NewUser(email, string(hashed), name, role)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 用户登录
// 邮箱不存在与密码错误返回同一个错误,避免枚举账号
func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidPassword
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, apperrors.ErrInvalidPassword
		}
		return nil, apperrors.Wrap(err, "密码验证失败")
	}
	return u, nil
}

// GetUser 查询用户
func (s *service) GetUser(ctx context.Context, id uint) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// validatePasswordStrength 密码强度校验
func validatePasswordStrength(password string) error {
	if len(password) < 8 || len(password) > 20 {
		return apperrors.ErrWeakPassword
	}
	if !letterPattern.MatchString(password) || !digitPattern.MatchString(password) {
		return apperrors.ErrWeakPassword
	}
	return nil
}
