package title

import (
	"context"
	"errors"
	"regexp"
)

// Service 书目领域服务
type Service interface {
	// PublishTitle 校验并创建书目(不含副本)
	PublishTitle(ctx context.Context, isbn, name, author, publisher string, price int64, description string) (*Title, error)

	// GetTitle 查询书目
	GetTitle(ctx context.Context, id uint) (*Title, error)

	// ListTitles 分页查询
	ListTitles(ctx context.Context, params ListParams) ([]*Title, int64, error)
}

type service struct {
	repo Repository
}

// NewService 创建书目领域服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// PublishTitle 上架书目
// 业务规则:
// 1. ISBN为10位或13位数字(允许分隔符)
// 2. 借阅费用 1 ~ 10,000,000 VND
// 3. ISBN唯一
func (s *service) PublishTitle(ctx context.Context, isbn, name, author, publisher string, price int64, description string) (*Title, error) {
	if !isValidISBN(isbn) {
		return nil, ErrInvalidISBN
	}
	if price < 1 || price > 10_000_000 {
		return nil, ErrInvalidPrice
	}

	t := NewTitle(isbn, name, author, publisher, price, description)
	if t.Name == "" {
		return nil, ErrInvalidName
	}

	existing, err := s.repo.FindByISBN(ctx, t.ISBN)
	if err == nil && existing != nil {
		return nil, ErrISBNDuplicate
	}
	if err != nil && !errors.Is(err, ErrTitleNotFound) {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTitle 查询书目
func (s *service) GetTitle(ctx context.Context, id uint) (*Title, error) {
	return s.repo.FindByID(ctx, id)
}

// ListTitles 分页查询,参数兜底
func (s *service) ListTitles(ctx context.Context, params ListParams) ([]*Title, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	return s.repo.List(ctx, params)
}

var isbnDigits = regexp.MustCompile(`[^0-9Xx]`)

// isValidISBN 校验ISBN格式
// 简化实现:去掉分隔符后只检查位数(ISBN-10末位允许X)
func isValidISBN(isbn string) bool {
	clean := isbnDigits.ReplaceAllString(isbn, "")
	return len(clean) == 10 || len(clean) == 13
}
