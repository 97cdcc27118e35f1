package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/logger"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

type globalOptions struct {
	configPath string
	jsonOutput bool
}

// env 单条命令的依赖,close按打开顺序的逆序释放
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	out    io.Writer
	asJSON bool

	closers []func()
}

func (o *globalOptions) open() (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	zl, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	rt := &env{
		cfg:    cfg,
		logger: zl,
		out:    os.Stdout,
		asJSON: o.jsonOutput || !term.IsTerminal(int(os.Stdout.Fd())),
	}
	rt.onClose(func() { _ = zl.Sync() })

	db, err := mysql.NewDB(cfg)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.db = db
	rt.onClose(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return rt, nil
}

func (rt *env) onClose(fn func()) {
	rt.closers = append(rt.closers, fn)
}

func (rt *env) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// table 终端下按列对齐输出,否则输出JSON(便于脚本处理)
func (rt *env) table(v any, header []string, rows [][]string) error {
	if rt.asJSON {
		enc := json.NewEncoder(rt.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
	writeRow(w, header)
	for _, r := range rows {
		writeRow(w, r)
	}
	return w.Flush()
}

func writeRow(w io.Writer, cols []string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
