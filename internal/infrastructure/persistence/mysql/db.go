package mysql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// NewDB 创建数据库连接
// 设计说明:
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数(MaxOpenConns、MaxIdleConns、ConnMaxLifetime)
// 3. 开发环境开启SQL日志,生产环境关闭
// 4. TranslateError把驱动的唯一键冲突统一翻译成gorm.ErrDuplicatedKey
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	zap.L().Info("database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	// 注意:生产环境应使用版本化的迁移脚本
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// Ping 就绪检查
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return apperrors.ErrDatabaseError.WithCause(err)
	}
	return nil
}

// AutoMigrate 自动迁移表结构
// 导出给测试使用(SQLite临时库同样走这里建表)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&TitleModel{},
		&CopyModel{},
		&BorrowModel{},
		&BorrowSnapshotModel{},
		&OutboxEventModel{},
	)
}

// UserModel GORM用户模型
type UserModel struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string         `gorm:"size:255;not null;comment:密码(bcrypt)"`
	Name      string         `gorm:"size:50;not null;comment:姓名"`
	Role      string         `gorm:"size:16;not null;default:member;comment:角色(member/admin)"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// TitleModel GORM书目模型
// 设计说明:
// 1. 金额统一用int64存VND(越南盾没有小数单位)
// 2. total_copies/available_copies/is_available只由副本台账重算写入
// 3. 归档使用软删除,借阅记录里的书名快照不受影响
type TitleModel struct {
	ID              uint           `gorm:"primaryKey"`
	ISBN            string         `gorm:"uniqueIndex;size:20;not null;comment:ISBN号"`
	Name            string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author          string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Publisher       string         `gorm:"size:100;comment:出版社"`
	Price           int64          `gorm:"not null;comment:单次借阅费用(VND)"`
	Description     string         `gorm:"type:text;comment:简介"`
	TotalCopies     int            `gorm:"not null;default:0;comment:副本总数(派生)"`
	AvailableCopies int            `gorm:"not null;default:0;comment:在架副本数(派生)"`
	IsAvailable     bool           `gorm:"index;not null;default:false;comment:是否可借(派生)"`
	CreatedAt       time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt       time.Time      `gorm:"comment:更新时间"`
	DeletedAt       gorm.DeletedAt `gorm:"index;comment:归档时间(软删除)"`
}

// TableName 指定表名
func (TitleModel) TableName() string {
	return "titles"
}

// CopyModel GORM副本模型
// 教学要点:
// 1. (title_id, copy_number)唯一,保证同一书目下序号不重复
// 2. (title_id, status)联合索引服务于抢占候选查询
// 3. current_borrow_id可空:在架副本没有持有者
type CopyModel struct {
	ID              uint      `gorm:"primaryKey"`
	TitleID         uint      `gorm:"not null;uniqueIndex:idx_title_number,priority:1;index:idx_title_status,priority:1;comment:书目ID"`
	CopyNumber      int       `gorm:"not null;uniqueIndex:idx_title_number,priority:2;comment:书目内序号"`
	CopyCode        string    `gorm:"uniqueIndex;size:64;not null;comment:副本编码"`
	Status          int       `gorm:"not null;type:tinyint;default:1;index:idx_title_status,priority:2;comment:状态(1在架2借出)"`
	CurrentBorrowID *uint     `gorm:"index;comment:当前持有的借阅ID"`
	CreatedAt       time.Time `gorm:"comment:创建时间"`
	UpdatedAt       time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (CopyModel) TableName() string {
	return "copies"
}

// BorrowModel GORM借阅模型
// 教学要点:
// 1. active_key = "借阅人:书目",仅在未归还时有值;唯一索引 + NULL 实现"同一书目只能有一条未归还借阅"
//    (MySQL/SQLite的唯一索引都允许多个NULL)
// 2. 支付子记录平铺在借阅表里,不单独建表
// 3. transaction_id同样可空唯一,每次prepare生成新值
type BorrowModel struct {
	ID            uint       `gorm:"primaryKey"`
	BorrowerID    uint       `gorm:"index;not null;comment:借阅人ID"`
	BorrowerName  string     `gorm:"size:50;not null;comment:借阅人姓名快照"`
	BorrowerEmail string     `gorm:"size:100;not null;comment:借阅人邮箱快照"`
	TitleID       uint       `gorm:"index;not null;comment:书目ID"`
	TitleName     string     `gorm:"size:200;not null;comment:书名快照"`
	CopyID        uint       `gorm:"index;not null;comment:副本ID"`
	CopyCode      string     `gorm:"size:64;not null;comment:副本编码快照"`
	Price         int64      `gorm:"not null;comment:借阅费用快照(VND)"`
	DueDate       time.Time  `gorm:"not null;comment:应还日期"`
	RenewCount    int        `gorm:"not null;default:0;comment:续借次数"`
	LastRenewedAt *time.Time `gorm:"comment:最近续借时间"`
	ReturnDate    *time.Time `gorm:"index;comment:归还时间(NULL表示未归还)"`
	ActiveKey     *string    `gorm:"uniqueIndex;size:64;comment:未归还去重键"`
	Fine          int64      `gorm:"not null;default:0;comment:罚金(VND)"`
	PaymentMethod string     `gorm:"size:16;not null;default:cash;comment:支付方式"`
	PaymentStatus int        `gorm:"index;type:tinyint;not null;default:1;comment:支付状态(1未支付2待确认3已支付4失败)"`
	PaymentAmount int64      `gorm:"not null;default:0;comment:应收金额(VND)"`
	TransactionID *string    `gorm:"uniqueIndex;size:64;comment:网关交易号"`
	PaidAt        *time.Time `gorm:"comment:收款时间"`
	CreatedAt     time.Time  `gorm:"index;comment:借出时间"`
	UpdatedAt     time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BorrowModel) TableName() string {
	return "borrows"
}

// BorrowSnapshotModel 借阅人视图投影
type BorrowSnapshotModel struct {
	ID            uint       `gorm:"primaryKey"`
	BorrowID      uint       `gorm:"uniqueIndex;not null;comment:借阅ID"`
	UserID        uint       `gorm:"index;not null;comment:借阅人ID"`
	TitleID       uint       `gorm:"not null;comment:书目ID"`
	TitleName     string     `gorm:"size:200;not null;comment:书名"`
	CopyCode      string     `gorm:"size:64;not null;comment:副本编码"`
	BorrowedAt    time.Time  `gorm:"not null;comment:借出时间"`
	DueDate       time.Time  `gorm:"not null;comment:应还日期"`
	RenewCount    int        `gorm:"not null;default:0;comment:续借次数"`
	LastRenewedAt *time.Time `gorm:"comment:最近续借时间"`
	Returned      bool       `gorm:"not null;default:false;comment:是否已归还"`
	UpdatedAt     time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BorrowSnapshotModel) TableName() string {
	return "borrow_snapshots"
}

// OutboxEventModel 发件箱事件
type OutboxEventModel struct {
	ID          uint       `gorm:"primaryKey"`
	EventID     string     `gorm:"uniqueIndex;size:36;not null;comment:事件ID(UUID)"`
	Type        string     `gorm:"size:64;not null;comment:事件类型"`
	AggregateID uint       `gorm:"index;not null;comment:聚合ID"`
	Payload     []byte     `gorm:"type:blob;comment:事件内容(JSON)"`
	Status      int        `gorm:"index;type:tinyint;not null;default:1;comment:状态(1待投递2已投递3死信)"`
	Attempts    int        `gorm:"not null;default:0;comment:投递次数"`
	LastError   string     `gorm:"size:500;comment:最近一次失败原因"`
	CreatedAt   time.Time  `gorm:"comment:创建时间"`
	SentAt      *time.Time `gorm:"comment:投递时间"`
}

// TableName 指定表名
func (OutboxEventModel) TableName() string {
	return "outbox_events"
}
