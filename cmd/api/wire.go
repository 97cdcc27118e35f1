//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 运行 `wire gen ./cmd/api` 重新生成wire_gen.go。
// Provider按层分组,Injector声明最终要构造的*App。
package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	appcopy "github.com/xiebiao/library/internal/application/bookcopy"
	appborrow "github.com/xiebiao/library/internal/application/borrow"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	apptitle "github.com/xiebiao/library/internal/application/title"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/domain/title"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
)

// infrastructureSet 基础设施:数据库、Redis、消息
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideMQPublisher,
	provideRelay,
)

// repositorySet 仓储与缓存
var repositorySet = wire.NewSet(
	mysql.NewUserRepository,
	mysql.NewTitleRepository,
	mysql.NewCopyRepository,
	mysql.NewBorrowRepository,
	mysql.NewSnapshotRepository,
	mysql.NewOutboxRepository,
	mysql.NewTxManager,
	redis.NewSessionStore,
	provideSnapshotCache,
	wire.Bind(new(borrow.SnapshotCache), new(*redis.SnapshotCache)),
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	provideUserService,
	title.NewService,
	bookcopy.NewLedger,
	outbox.NewRecorder,
	provideFinePolicy,
	provideGateway,
	provideJWTManager,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	appuser.NewRegisterUseCase,
	appuser.NewLoginUseCase,
	appuser.NewLogoutUseCase,
	apptitle.NewPublishTitleUseCase,
	apptitle.NewListTitlesUseCase,
	apptitle.NewGetTitleUseCase,
	apptitle.NewArchiveTitleUseCase,
	apptitle.NewRestoreTitleUseCase,
	appcopy.NewAddCopiesUseCase,
	appcopy.NewListAvailableCopiesUseCase,
	appcopy.NewRecomputeTitleUseCase,
	appborrow.NewCreateBorrowUseCase,
	appborrow.NewRenewBorrowUseCase,
	appborrow.NewCloseBorrowUseCase,
	appborrow.NewListMyBorrowsUseCase,
	appborrow.NewListBorrowsUseCase,
	apppayment.NewPrepareReturnUseCase,
	apppayment.NewConfirmCashUseCase,
	apppayment.NewHandleGatewayCallbackUseCase,
	apppayment.NewRepairCloseUseCase,
	apppayment.NewListUnreconciledUseCase,
	// 支付对账通过Finalizer接口调用归还,不直接依赖借阅用例的实现
	wire.Bind(new(apppayment.Finalizer), new(*appborrow.CloseBorrowUseCase)),
)

// interfaceSet HTTP层
var interfaceSet = wire.NewSet(
	middleware.NewAuthMiddleware,
	handler.NewUserHandler,
	handler.NewTitleHandler,
	handler.NewBorrowHandler,
	providePaymentHandler,
	handler.NewHealthHandler,
	router.New,
)

// InitializeApp 初始化整个应用
// cleanup按依赖的逆序关闭连接
func InitializeApp(cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		interfaceSet,
		newApp,
	)
	return nil, nil, nil
}
