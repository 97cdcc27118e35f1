// libctl 馆员运维命令行
//
// 与API进程共用配置与数据库,用于上线初始化和对账补救:
//
//	libctl migrate
//	libctl admin create --email librarian@example.com --name "Thu Thu"
//	libctl admin promote --email an@example.com
//	libctl titles recompute 3
//	libctl borrows unreconciled --limit 20
//	libctl borrows repair 42
//	libctl outbox flush
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "libctl",
		Short:         "图书馆借阅系统运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "配置文件路径(默认按API进程规则查找config/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "以JSON输出(标准输出不是终端时默认开启)")

	root.AddCommand(
		newMigrateCommand(opts),
		newAdminCommand(opts),
		newTitlesCommand(opts),
		newBorrowsCommand(opts),
		newOutboxCommand(opts),
	)
	return root
}
