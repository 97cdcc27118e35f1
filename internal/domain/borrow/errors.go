package borrow

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 借阅与支付对账领域错误
var (
	// ErrBorrowNotFound 借阅不存在、已归还或不属于当前借阅人
	ErrBorrowNotFound = apperrors.New(apperrors.ErrCodeBorrowNotFound, "借阅记录不存在")

	// ErrDuplicateActiveBorrow 同一书目已有未归还借阅
	ErrDuplicateActiveBorrow = apperrors.New(apperrors.ErrCodeDuplicateActiveBorrow, "已借阅该书且尚未归还")

	// ErrAlreadyOverdue 已逾期,不能续借
	ErrAlreadyOverdue = apperrors.New(apperrors.ErrCodeAlreadyOverdue, "借阅已逾期,不能续借")

	// ErrRenewalLimitReached 续借次数已达上限
	ErrRenewalLimitReached = apperrors.New(apperrors.ErrCodeRenewalLimitReached, "续借次数已达上限")

	// ErrBorrowConflict 并发修改
	ErrBorrowConflict = apperrors.New(apperrors.ErrCodeBorrowConflict, "借阅记录已被修改,请重试")

	// ErrInvalidPaymentMethod 不支持的支付方式
	ErrInvalidPaymentMethod = apperrors.New(apperrors.ErrCodeInvalidParams, "不支持的支付方式")

	// ErrWrongMethod 支付方式与支付意向不符
	ErrWrongMethod = apperrors.New(apperrors.ErrCodeWrongMethod, "该借阅不是现金支付")

	// ErrInvalidPaymentTransition 非法的支付状态转换
	ErrInvalidPaymentTransition = apperrors.New(apperrors.ErrCodeInvalidPaymentState, "支付状态不允许此操作")

	// ErrAlreadyPaid 已收款(终态)
	ErrAlreadyPaid = apperrors.New(apperrors.ErrCodeAlreadyPaid, "该借阅已支付")

	// ErrReconciliationFailed 已收款但归还流程失败,需要人工对账
	ErrReconciliationFailed = apperrors.New(apperrors.ErrCodeReconciliationFailed, "已收款但归还失败,请联系管理员处理")
)
