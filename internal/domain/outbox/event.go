// Package outbox 事务性发件箱
//
// 业务写入与事件写入放在同一个数据库事务里,
// 由后台relay轮询未发送的事件投递到RabbitMQ(至少一次)。
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 事件类型(同时作为RabbitMQ routing key)
const (
	TypeBorrowCreated               = "borrow.created"
	TypeBorrowRenewed               = "borrow.renewed"
	TypeBorrowReturned              = "borrow.returned"
	TypePaymentPrepared             = "payment.prepared"
	TypePaymentPaid                 = "payment.paid"
	TypePaymentFailed               = "payment.failed"
	TypePaymentReconciliationFailed = "payment.reconciliation_failed"
)

// Status 投递状态
type Status int

const (
	StatusPending Status = 1 // 待投递
	StatusSent    Status = 2 // 已投递
	StatusDead    Status = 3 // 超过重试次数,等待人工处理
)

// MaxAttempts 最大投递次数
const MaxAttempts = 10

// Event 发件箱事件
type Event struct {
	ID          uint
	EventID     string // 全局唯一ID(消费端幂等键)
	Type        string
	AggregateID uint
	Payload     []byte
	Status      Status
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	SentAt      *time.Time
}

// NewEvent 创建待投递事件
func NewEvent(eventType string, aggregateID uint, payload interface{}) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "事件序列化失败")
	}
	return &Event{
		EventID:     uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     body,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}, nil
}

// Repository 发件箱仓储
type Repository interface {
	// Append 写入事件(调用方通过ctx传入业务事务)
	Append(ctx context.Context, e *Event) error

	// FetchPending 按写入顺序取待投递事件
	FetchPending(ctx context.Context, limit int) ([]*Event, error)

	// MarkSent 标记已投递
	MarkSent(ctx context.Context, id uint, sentAt time.Time) error

	// MarkAttemptFailed 记录一次失败;达到MaxAttempts后转为StatusDead
	MarkAttemptFailed(ctx context.Context, id uint, reason string) error
}

// Recorder 供用例写事件的便捷封装
type Recorder struct {
	repo Repository
}

// NewRecorder 创建事件记录器
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record 序列化并写入事件
func (r *Recorder) Record(ctx context.Context, eventType string, aggregateID uint, payload interface{}) error {
	e, err := NewEvent(eventType, aggregateID, payload)
	if err != nil {
		return err
	}
	return r.repo.Append(ctx, e)
}
