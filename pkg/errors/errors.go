package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较
// 预定义错误经过WithCause包装后仍然可以用errors.Is匹配
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// WithCause 基于预定义错误附加内部原因（不修改原错误）
func (e *AppError) WithCause(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、数据一致性故障）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeUnavailable   = 50003 // 依赖服务不可用(就绪检查失败)

	// 数据一致性故障（需要人工介入）
	ErrCodeCopyStateMismatch    = 50010 // 副本状态与借阅记录不一致
	ErrCodeReconciliationFailed = 50011 // 已收款但归还流程失败

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized     = 40100 // 未登录
	ErrCodeInvalidToken     = 40101 // Token无效
	ErrCodeTokenExpired     = 40102 // Token过期
	ErrCodeInvalidPassword  = 40103 // 密码错误
	ErrCodeForbidden        = 40104 // 无权限
	ErrCodeInvalidSignature = 40105 // 支付回调签名无效

	// 资源错误（40400-40499）
	ErrCodeNotFound       = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound   = 40401 // 用户不存在
	ErrCodeTitleNotFound  = 40402 // 书目不存在
	ErrCodeBorrowNotFound = 40405 // 借阅记录不存在
	ErrCodeCopyNotFound   = 40406 // 副本不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError         = 40000 // 业务错误(通用)
	ErrCodeEmailDuplicate        = 40003 // 邮箱已存在
	ErrCodeISBNDuplicate         = 40004 // ISBN已存在
	ErrCodeWeakPassword          = 40005 // 密码强度不足
	ErrCodeDuplicateEntry        = 40009 // 重复记录(通用)
	ErrCodeDuplicateActiveBorrow = 40010 // 同一书目存在未归还借阅
	ErrCodeNoAvailableCopy       = 40011 // 无可借副本
	ErrCodeAlreadyOverdue        = 40012 // 已逾期不可续借
	ErrCodeRenewalLimitReached   = 40013 // 续借次数已达上限
	ErrCodeWrongMethod           = 40014 // 支付方式不匹配
	ErrCodeInvalidPaymentState   = 40015 // 支付状态不允许此操作
	ErrCodeAlreadyPaid           = 40016 // 已支付
	ErrCodeTitleOnLoan           = 40017 // 仍有副本借出
	ErrCodeBorrowConflict        = 40018 // 借阅记录并发修改

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")
	ErrUnavailable   = New(ErrCodeUnavailable, "服务暂不可用")

	// 认证授权
	ErrUnauthorized    = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken    = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired    = New(ErrCodeTokenExpired, "Token已过期")
	ErrInvalidPassword = New(ErrCodeInvalidPassword, "密码错误")
	ErrForbidden       = New(ErrCodeForbidden, "无权限访问")

	// 资源不存在
	ErrUserNotFound = New(ErrCodeUserNotFound, "用户不存在")

	// 业务规则
	ErrEmailDuplicate = New(ErrCodeEmailDuplicate, "邮箱已被注册")
	ErrWeakPassword   = New(ErrCodeWeakPassword, "密码强度不足（需8-20位，包含字母和数字）")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// IsFatal 判断是否为需要人工对账的数据一致性错误
func IsFatal(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == ErrCodeCopyStateMismatch || appErr.Code == ErrCodeReconciliationFailed
}
