package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
  mode: test
jwt:
  secret: test-secret
auth:
  admin_emails:
    - librarian@example.com
lending:
  fine_per_day: 3000
vnpay:
  tmn_code: DEMO0001
  hash_secret: SECRET
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"librarian@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, int64(3000), cfg.Lending.FinePerDay)
	assert.Equal(t, "DEMO0001", cfg.VNPay.TmnCode)

	// 未配置的字段使用默认值
	assert.Equal(t, 10*time.Minute, cfg.Lending.SnapshotCacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Outbox.Interval)
	assert.Equal(t, "library.events", cfg.MQ.Exchange)
	assert.Equal(t, 2*time.Hour, cfg.JWT.AccessTokenExpire)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("LIBRARY_VNPAY_HASH_SECRET", "from-env")
	t.Setenv("LIBRARY_LENDING_FINE_PER_DAY", "7000")

	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.VNPay.HashSecret)
	assert.Equal(t, int64(7000), cfg.Lending.FinePerDay)
}

func TestLoadFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"缺少JWT密钥", "server:\n  port: 8080\n"},
		{"罚金为负", "jwt:\n  secret: s\nlending:\n  fine_per_day: -1\n"},
		{"生产环境缺少网关密钥", "server:\n  mode: release\njwt:\n  secret: s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 3306, User: "root", Password: "pw", DBName: "library",
		Charset: "utf8mb4", ParseTime: true, Loc: "Asia/Ho_Chi_Minh",
	}
	assert.Equal(t, "root:pw@tcp(db:3306)/library?charset=utf8mb4&parseTime=true&loc=Asia%2FHo_Chi_Minh", d.DSN())
}
