package admins

import (
	"context"
	"fmt"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/sweetshop-backend/pkg/auth"
	"github.com/angelmondragon/sweetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "sweetshop", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}
	weakPW  = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
	testPW  = config.PasswordConfig{ArgonMemoryKB: 16, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

type fakeSessions struct {
	records map[string]fakeRecord
	revoked []string
}

type fakeRecord struct {
	adminID uuid.UUID
	refresh string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: map[string]fakeRecord{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string, adminID uuid.UUID) (string, error) {
	token := "refresh-" + accessID
	f.records[accessID] = fakeRecord{adminID: adminID, refresh: token}
	return token, nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (session.Rotation, error) {
	rec, ok := f.records[oldAccessID]
	if !ok || rec.refresh != provided {
		return session.Rotation{}, session.ErrInvalidRefreshToken
	}
	delete(f.records, oldAccessID)
	next := session.Rotation{AdminID: rec.adminID, AccessID: session.NewAccessID()}
	next.RefreshToken = "refresh-" + next.AccessID
	f.records[next.AccessID] = fakeRecord{adminID: rec.adminID, refresh: next.RefreshToken}
	return next, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.records, accessID)
	f.revoked = append(f.revoked, accessID)
	return nil
}

func setupAdminsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:admins_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func newAdminsService(t *testing.T, hashCfg config.PasswordConfig) (Service, *Repository, *fakeSessions, *models.AdminUser) {
	t.Helper()
	repo := NewRepository(setupAdminsTestDB(t))
	hash, err := security.HashPassword("s3cret-pass", hashCfg)
	require.NoError(t, err)
	admin, err := repo.Create(context.Background(), &models.AdminUser{
		Username:     "admin",
		PasswordHash: hash,
		Role:         enums.AdminRoleOwner,
	})
	require.NoError(t, err)

	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		Repo:           repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPW,
		Logger:         logger.Nop(),
	})
	require.NoError(t, err)
	return svc, repo, sessions, admin
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, repo, sessions, admin := newAdminsService(t, testPW)
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Username: "  ADMIN ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resp.Admin.ID)
	assert.NotNil(t, resp.Admin.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)
	assert.Equal(t, enums.AdminRoleOwner, claims.Role)
	assert.Equal(t, "refresh-"+claims.ID, resp.RefreshToken)
	assert.Contains(t, sessions.records, claims.ID)

	stored, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _, _ := newAdminsService(t, testPW)
	ctx := context.Background()

	for _, req := range []LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "nobody", Password: "s3cret-pass"},
		{Username: "", Password: "s3cret-pass"},
		{Username: "admin", Password: ""},
	} {
		_, err := svc.Login(ctx, req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "request %+v", req)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	svc, repo, _, admin := newAdminsService(t, weakPW)
	ctx := context.Background()
	require.True(t, security.NeedsRehash(admin.PasswordHash, testPW))

	_, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "s3cret-pass"})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.False(t, security.NeedsRehash(stored.PasswordHash, testPW))
	ok, err := security.VerifyPassword("s3cret-pass", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions, admin := newAdminsService(t, testPW)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "s3cret-pass"})
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)
	assert.Contains(t, sessions.records, claims.ID)

	_, err = svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Refresh(ctx, "garbage", pair.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	svc, _, sessions, admin := newAdminsService(t, testPW)
	ctx := context.Background()

	accessID := session.NewAccessID()
	refresh, err := sessions.Generate(ctx, accessID, admin.ID)
	require.NoError(t, err)
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		AdminID: admin.ID, Username: admin.Username, Role: admin.Role, JTI: accessID,
	})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, expired, refresh)
	assert.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions, _ := newAdminsService(t, testPW)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "s3cret-pass"})
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, login.AccessToken))
	assert.Equal(t, []string{claims.ID}, sessions.revoked)
	assert.NotContains(t, sessions.records, claims.ID)

	assert.True(t, pkgerrors.IsCode(svc.Logout(ctx, "bad"), pkgerrors.CodeUnauthorized))
}

func TestRepositoryUpdatesReportMissingRows(t *testing.T) {
	_, repo, _, admin := newAdminsService(t, testPW)
	ctx := context.Background()

	require.NoError(t, repo.UpdatePasswordHash(ctx, admin.ID, "rotated"))
	got, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdateLastLogin(ctx, uuid.New(), time.Now()), gorm.ErrRecordNotFound)
	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
