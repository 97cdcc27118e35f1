package main

import (
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/fine"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/mq"
	"github.com/xiebiao/library/pkg/vnpay"
)

// App 进程内的长生命周期组件
type App struct {
	Engine *gin.Engine
	Relay  *messaging.Relay
}

func newApp(engine *gin.Engine, relay *messaging.Relay) *App {
	return &App{Engine: engine, Relay: relay}
}

// provideDB 数据库连接,cleanup时关闭连接池
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("close database failed", zap.Error(err))
			}
		}
	}
	return db, cleanup, nil
}

// provideRedis Redis连接
func provideRedis(cfg *config.Config, logger *zap.Logger) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis failed", zap.Error(err))
		}
	}
	return client, cleanup, nil
}

func provideSnapshotCache(client *goredis.Client, cfg *config.Config) *redis.SnapshotCache {
	return redis.NewSnapshotCache(client, cfg.Lending.SnapshotCacheTTL)
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

func provideUserService(repo user.Repository, cfg *config.Config) user.Service {
	return user.NewService(repo, cfg.Auth.AdminEmails)
}

func provideFinePolicy(cfg *config.Config) fine.Policy {
	return fine.NewPerDayPolicy(cfg.Lending.FinePerDay)
}

func provideGateway(cfg *config.Config) *vnpay.Client {
	return vnpay.NewClient(vnpay.Config{
		TmnCode:    cfg.VNPay.TmnCode,
		HashSecret: cfg.VNPay.HashSecret,
		PayURL:     cfg.VNPay.PayURL,
		ReturnURL:  cfg.VNPay.ReturnURL,
	})
}

// provideMQPublisher RabbitMQ发布者
func provideMQPublisher(cfg *config.Config, logger *zap.Logger) (*mq.Publisher, func(), error) {
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close mq publisher failed", zap.Error(err))
		}
	}
	return publisher, cleanup, nil
}

// provideRelay 发件箱投递器,熔断器保护RabbitMQ
func provideRelay(cfg *config.Config, repo outbox.Repository, publisher *mq.Publisher, logger *zap.Logger) *messaging.Relay {
	breaker := circuitbreaker.NewCircuitBreaker("outbox-relay", circuitbreaker.DefaultConfig())
	breaker.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return messaging.NewRelay(repo, publisher, breaker, cfg.Outbox.BatchSize, cfg.Outbox.Interval, logger)
}

func providePaymentHandler(
	prepare *apppayment.PrepareReturnUseCase,
	confirmCash *apppayment.ConfirmCashUseCase,
	callback *apppayment.HandleGatewayCallbackUseCase,
	repair *apppayment.RepairCloseUseCase,
	unreconciled *apppayment.ListUnreconciledUseCase,
	cfg *config.Config,
) *handler.PaymentHandler {
	return handler.NewPaymentHandler(prepare, confirmCash, callback, repair, unreconciled, cfg.VNPay.AppBaseURL)
}
