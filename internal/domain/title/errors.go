package title

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 书目领域错误定义
var (
	// ErrTitleNotFound 书目不存在(或已归档)
	ErrTitleNotFound = apperrors.New(apperrors.ErrCodeTitleNotFound, "书目不存在")

	// ErrISBNDuplicate ISBN重复
	ErrISBNDuplicate = apperrors.New(apperrors.ErrCodeISBNDuplicate, "ISBN号已存在")

	// ErrInvalidPrice 借阅费用非法
	ErrInvalidPrice = apperrors.New(apperrors.ErrCodeInvalidParams, "借阅费用必须大于0")

	// ErrInvalidISBN ISBN格式错误
	ErrInvalidISBN = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN格式不正确")

	// ErrInvalidName 书名为空
	ErrInvalidName = apperrors.New(apperrors.ErrCodeInvalidParams, "书名不能为空")

	// ErrTitleOnLoan 仍有副本借出,不能归档
	ErrTitleOnLoan = apperrors.New(apperrors.ErrCodeTitleOnLoan, "该书仍有副本未归还,不能下架")
)
