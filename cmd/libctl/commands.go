package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	appcopy "github.com/xiebiao/library/internal/application/bookcopy"
	appborrow "github.com/xiebiao/library/internal/application/borrow"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/bookcopy"
	"github.com/xiebiao/library/internal/domain/outbox"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/mq"
)

// withEnv 打开依赖、执行命令、释放依赖
func withEnv(opts *globalOptions, fn func(ctx context.Context, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		e, err := opts.open()
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd.Context(), e)
	}
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("无效的ID: %q", arg)
	}
	return uint(id), nil
}

// migrate 建表;NewDB内部已执行AutoMigrate
func newMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "同步数据库表结构",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(_ context.Context, e *env) error {
			fmt.Fprintf(e.out, "schema of %s is up to date\n", e.cfg.Database.DBName)
			return nil
		}),
	}
}

func newAdminCommand(opts *globalOptions) *cobra.Command {
	admin := &cobra.Command{Use: "admin", Short: "馆员账号"}

	var email, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "创建馆员账号(密码从终端读取,非终端时读取标准输入第一行)",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env) error {
			password, err := readPassword()
			if err != nil {
				return err
			}
			// 只对这一个邮箱授予馆员角色,其余规则与注册接口一致
			svc := user.NewService(mysql.NewUserRepository(e.db), []string{email})
			u, err := svc.Register(ctx, email, password, name)
			if err != nil {
				return err
			}
			e.logger.Info("admin created", zap.Uint("user_id", u.ID), zap.String("email", u.Email))
			view := map[string]any{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role}
			return e.table(view, []string{"ID", "EMAIL", "NAME", "ROLE"}, [][]string{
				{strconv.FormatUint(uint64(u.ID), 10), u.Email, u.Name, string(u.Role)},
			})
		}),
	}
	create.Flags().StringVar(&email, "email", "", "馆员邮箱")
	create.Flags().StringVar(&name, "name", "", "馆员姓名")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")

	var promoteEmail string
	promote := &cobra.Command{
		Use:   "promote",
		Short: "把已注册的借阅人提升为馆员",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env) error {
			repo := mysql.NewUserRepository(e.db)
			u, err := repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(promoteEmail)))
			if err != nil {
				return err
			}
			if u.IsAdmin() {
				fmt.Fprintf(e.out, "%s is already admin\n", u.Email)
				return nil
			}
			if err := repo.UpdateRole(ctx, u.ID, user.RoleAdmin); err != nil {
				return err
			}

			// 旧Token里的角色仍是member,强制重新登录
			client, err := redis.NewClient(e.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			if err := redis.NewSessionStore(client).RevokeUser(ctx, u.ID, time.Now(), e.cfg.JWT.AccessTokenExpire); err != nil {
				return err
			}

			e.logger.Info("user promoted", zap.Uint("user_id", u.ID), zap.String("email", u.Email))
			fmt.Fprintf(e.out, "%s promoted to admin, please log in again\n", u.Email)
			return nil
		}),
	}
	promote.Flags().StringVar(&promoteEmail, "email", "", "借阅人邮箱")
	_ = promote.MarkFlagRequired("email")

	admin.AddCommand(create, promote)
	return admin
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("读取密码失败: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("两次输入的密码不一致")
	}
	return strings.TrimSpace(string(first)), nil
}

func newTitlesCommand(opts *globalOptions) *cobra.Command {
	titles := &cobra.Command{Use: "titles", Short: "书目"}

	recompute := &cobra.Command{
		Use:   "recompute <title-id>",
		Short: "从副本记录重算书目的总数与在架数",
		Args:  cobra.ExactArgs(1),
	}
	recompute.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withEnv(opts, func(ctx context.Context, e *env) error {
			titleRepo := mysql.NewTitleRepository(e.db)
			ledger := bookcopy.NewLedger(mysql.NewCopyRepository(e.db), titleRepo)
			uc := appcopy.NewRecomputeTitleUseCase(titleRepo, ledger, mysql.NewTxManager(e.db), e.logger)

			resp, err := uc.Execute(ctx, id)
			if err != nil {
				return err
			}
			return e.table(resp, []string{"TITLE", "TOTAL", "AVAILABLE"}, [][]string{{
				strconv.FormatUint(uint64(resp.TitleID), 10),
				strconv.Itoa(resp.TotalCopies),
				strconv.Itoa(resp.AvailableCopies),
			}})
		})(cmd, args)
	}

	titles.AddCommand(recompute)
	return titles
}

func newBorrowsCommand(opts *globalOptions) *cobra.Command {
	borrows := &cobra.Command{Use: "borrows", Short: "借阅与对账"}

	var limit int
	unreconciled := &cobra.Command{
		Use:   "unreconciled",
		Short: "列出已收款但未归还的借阅",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env) error {
			list, err := apppayment.NewListUnreconciledUseCase(mysql.NewBorrowRepository(e.db)).Execute(ctx, limit)
			if err != nil {
				return err
			}
			return e.table(list, borrowHeader, borrowRows(list))
		}),
	}
	unreconciled.Flags().IntVar(&limit, "limit", 50, "最多返回条数")

	repair := &cobra.Command{
		Use:   "repair <borrow-id>",
		Short: "对已收款的借阅重新执行归还",
		Args:  cobra.ExactArgs(1),
	}
	repair.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withEnv(opts, func(ctx context.Context, e *env) error {
			closer, err := newCloser(e)
			if err != nil {
				return err
			}
			uc := apppayment.NewRepairCloseUseCase(mysql.NewBorrowRepository(e.db), closer, e.logger)
			resp, err := uc.Execute(ctx, id)
			if err != nil {
				return err
			}
			return e.table(resp, borrowHeader, borrowRows([]*appborrow.BorrowResponse{resp}))
		})(cmd, args)
	}

	borrows.AddCommand(unreconciled, repair)
	return borrows
}

// newCloser 归还需要Redis失效借阅人视图缓存
func newCloser(e *env) (*appborrow.CloseBorrowUseCase, error) {
	client, err := redis.NewClient(e.cfg)
	if err != nil {
		return nil, err
	}
	e.onClose(func() { _ = client.Close() })

	titleRepo := mysql.NewTitleRepository(e.db)
	return appborrow.NewCloseBorrowUseCase(
		mysql.NewBorrowRepository(e.db),
		mysql.NewSnapshotRepository(e.db),
		redis.NewSnapshotCache(client, e.cfg.Lending.SnapshotCacheTTL),
		bookcopy.NewLedger(mysql.NewCopyRepository(e.db), titleRepo),
		outbox.NewRecorder(mysql.NewOutboxRepository(e.db)),
		mysql.NewTxManager(e.db),
		e.logger,
	), nil
}

var borrowHeader = []string{"ID", "BORROWER", "TITLE", "COPY", "AMOUNT", "PAYMENT", "PAID_AT", "RETURNED"}

func borrowRows(list []*appborrow.BorrowResponse) [][]string {
	rows := make([][]string, len(list))
	for i, b := range list {
		rows[i] = []string{
			strconv.FormatUint(uint64(b.ID), 10),
			b.BorrowerEmail,
			b.TitleName,
			b.CopyCode,
			strconv.FormatInt(b.PaymentAmount, 10),
			b.PaymentStatus,
			deref(b.PaidAt),
			deref(b.ReturnDate),
		}
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// outbox flush 在API进程之外把积压事件一次性投递完
func newOutboxCommand(opts *globalOptions) *cobra.Command {
	ob := &cobra.Command{Use: "outbox", Short: "领域事件发件箱"}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "投递所有待发送事件后退出",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env) error {
			publisher, err := mq.NewPublisher(e.cfg.MQ.URL, e.cfg.MQ.Exchange, e.cfg.MQ.ExchangeType)
			if err != nil {
				return err
			}
			e.onClose(func() { _ = publisher.Close() })

			breaker := circuitbreaker.NewCircuitBreaker("outbox-flush", circuitbreaker.DefaultConfig())
			relay := messaging.NewRelay(mysql.NewOutboxRepository(e.db), publisher, breaker,
				e.cfg.Outbox.BatchSize, e.cfg.Outbox.Interval, e.logger)

			total := 0
			for {
				sent, err := relay.ProcessOnce(ctx)
				total += sent
				if err != nil {
					return err
				}
				// 一批都没发出去:已清空,或熔断器打开
				if sent == 0 {
					break
				}
			}
			fmt.Fprintf(e.out, "%d events published\n", total)
			return nil
		}),
	}

	ob.AddCommand(flush)
	return ob
}
