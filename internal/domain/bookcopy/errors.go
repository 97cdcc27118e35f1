package bookcopy

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 副本台账领域错误
var (
	// ErrCopyNotFound 副本不存在
	ErrCopyNotFound = apperrors.New(apperrors.ErrCodeCopyNotFound, "副本不存在")

	// ErrNoAvailableCopy 没有可借的副本(或指定副本已被借出)
	ErrNoAvailableCopy = apperrors.New(apperrors.ErrCodeNoAvailableCopy, "没有可借的副本")

	// ErrCopyStateMismatch 副本当前持有者与预期借阅不一致
	// 属于数据一致性故障,必须人工介入,不能自动重试
	ErrCopyStateMismatch = apperrors.New(apperrors.ErrCodeCopyStateMismatch, "副本状态与借阅记录不一致")

	// ErrInvalidQuantity 新增数量非法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "副本数量必须在1到500之间")
)
