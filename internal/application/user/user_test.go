package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/testutil"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
)

func TestRegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	_, rdb := testutil.NewTestRedis(t)

	svc := user.NewService(mysql.NewUserRepository(db), []string{"Librarian@Example.com"}, user.WithHashCost(bcrypt.MinCost))
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	sessions := redis.NewSessionStore(rdb)

	register := NewRegisterUseCase(svc, zap.NewNop())
	login := NewLoginUseCase(svc, jwtManager, zap.NewNop())
	logout := NewLogoutUseCase(jwtManager, sessions)

	admin, err := register.Execute(ctx, RegisterRequest{Email: "librarian@example.com", Password: "secret123", Name: "Thu Thu"})
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)

	member, err := register.Execute(ctx, RegisterRequest{Email: "reader@example.com", Password: "secret123", Name: "Doc Gia"})
	require.NoError(t, err)
	assert.Equal(t, "member", member.Role)

	_, err = login.Execute(ctx, LoginRequest{Email: "reader@example.com", Password: "wrong1234"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	resp, err := login.Execute(ctx, LoginRequest{Email: "reader@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, member.ID, resp.User.ID)

	claims, err := jwtManager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "member", claims.Role)

	require.NoError(t, logout.Execute(ctx, resp.AccessToken))
	blacklisted, err := sessions.IsInBlacklist(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}
