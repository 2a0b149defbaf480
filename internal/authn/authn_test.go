package authn

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/practicum/internal/database"
	"github.com/dukerupert/practicum/internal/model"
	"github.com/dukerupert/practicum/internal/password"
	"github.com/dukerupert/practicum/internal/store"
	"github.com/dukerupert/practicum/internal/token"
)

type fixture struct {
	db       *sql.DB
	svc      *Service
	users    *store.UserStore
	sessions *store.SessionStore
}

func newFixture(t *testing.T, scheme password.Scheme) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	ss := store.NewSessionStore(db)
	issuer := token.NewIssuer([]byte("test-secret"), "practicum", 24*time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(us, ss, issuer, Config{Scheme: scheme, SessionTTL: 24 * time.Hour}, logger)
	return &fixture{db: db, svc: svc, users: us, sessions: ss}
}

func TestRegisterFirstUserIsOwner(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, first.Role)

	second, err := f.svc.Register(ctx, "Bob", "bob@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, second.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "Ada again", " ADA@example.com ", "other")
	require.ErrorIs(t, err, ErrEmailInUse)

	n, err := f.users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)

	_, err := f.svc.Register(context.Background(), "", "x@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Register(context.Background(), "X", "x@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginRoundTrip(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.EqualValues(t, 1, issued.User.LoginCount)

	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.LoginCount)
}

func TestLoginWrongPasswordLeavesCount(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ada@example.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "ghost@example.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.LoginCount)
}

func TestLoginStoresOnlyIdentityHash(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	identity, err := token.NewIssuer([]byte("test-secret"), "practicum", time.Hour).Parse(issued.Token)
	require.NoError(t, err)
	assert.Len(t, identity, IdentitySize*2)

	var stored string
	require.NoError(t, f.db.QueryRow(`SELECT token FROM sessions`).Scan(&stored))
	assert.Equal(t, HashIdentity(identity), stored)
	assert.NotEqual(t, identity, stored)
}

func TestVerifyContinue(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	v := f.svc.Verify(ctx, issued.Token)
	require.Equal(t, Continue, v.Action)
	require.NotNil(t, v.Credentials)
	assert.Equal(t, Credentials{
		ID:         u.ID,
		Email:      "ada@example.com",
		Name:       "Ada",
		Role:       model.RoleOwner,
		Active:     model.StatusActive,
		LoginCount: 1,
	}, *v.Credentials)
}

func TestVerifyLogoutCases(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, Logout, f.svc.Verify(ctx, "").Action)
	assert.Equal(t, Logout, f.svc.Verify(ctx, "garbage").Action)

	forged, _, err := token.NewIssuer([]byte("other-secret"), "practicum", time.Hour).Issue("id")
	require.NoError(t, err)
	assert.Equal(t, Logout, f.svc.Verify(ctx, forged).Action)

	// Valid signature, but no session row for this identity.
	orphan, _, err := token.NewIssuer([]byte("test-secret"), "practicum", time.Hour).Issue("id")
	require.NoError(t, err)
	assert.Equal(t, Logout, f.svc.Verify(ctx, orphan).Action)
}

func TestVerifyExpiredSessionRow(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = f.db.Exec(`UPDATE sessions SET expiration_time = ?`, time.Now().Add(-time.Minute).UnixMilli())
	require.NoError(t, err)

	assert.Equal(t, Logout, f.svc.Verify(ctx, issued.Token).Action)
}

func TestVerifyExpiredFlag(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = f.db.Exec(`UPDATE sessions SET expired = 1`)
	require.NoError(t, err)

	assert.Equal(t, Logout, f.svc.Verify(ctx, issued.Token).Action)
}

func TestVerifyExpiredCarrier(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	// Row still valid, carrier checked two days later.
	later := func() time.Time { return time.Now().Add(48 * time.Hour) }
	f.svc.issuer = f.svc.issuer.WithClock(later)
	_, err = f.db.Exec(`UPDATE sessions SET expiration_time = ?`, time.Now().Add(72*time.Hour).UnixMilli())
	require.NoError(t, err)

	assert.Equal(t, Logout, f.svc.Verify(ctx, issued.Token).Action)
}

func TestVerifySuspendedHalts(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.users.SetStatus(ctx, u.ID, model.StatusSuspended))

	v := f.svc.Verify(ctx, issued.Token)
	assert.Equal(t, Halt, v.Action)
	require.NotNil(t, v.Credentials)
	assert.Equal(t, model.StatusSuspended, v.Credentials.Active)
}

func TestVerifyDeletedUserLogsOut(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAccount(ctx, u.ID))
	assert.Equal(t, Logout, f.svc.Verify(ctx, issued.Token).Action)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	issued, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, issued.Token))
	assert.Equal(t, Logout, f.svc.Verify(ctx, issued.Token).Action)

	assert.NoError(t, f.svc.Logout(ctx, "garbage"))
}

func TestConcurrentLoginsEachGetSession(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	a, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	b, err := f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, Continue, f.svc.Verify(ctx, a.Token).Action)
	assert.Equal(t, Continue, f.svc.Verify(ctx, b.Token).Action)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", "ada@example.com", "old")
	require.NoError(t, err)

	before, err := f.svc.Login(ctx, "ada@example.com", "old")
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.ChangePassword(ctx, u.ID, "wrong", "new"), ErrInvalidCredentials)
	assert.Equal(t, Continue, f.svc.Verify(ctx, before.Token).Action)

	require.NoError(t, f.svc.ChangePassword(ctx, u.ID, "old", "new"))
	assert.Equal(t, Logout, f.svc.Verify(ctx, before.Token).Action, "old carrier must not survive a password change")

	_, err = f.svc.Login(ctx, "ada@example.com", "old")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ada@example.com", "new")
	assert.NoError(t, err)

	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, u.Salt1, got.Salt1)
	assert.NotEqual(t, u.Salt2, got.Salt2)
}

func TestArgon2idSchemeLogin(t *testing.T) {
	f := newFixture(t, password.SchemeArgon2id)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, string(password.SchemeArgon2id), u.PasswordScheme)

	_, err = f.svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	// A server switched back to sha2 still verifies argon2id users by their own scheme.
	f.svc.cfg.Scheme = password.SchemeSHA2
	_, err = f.svc.Login(ctx, "ada@example.com", "pw")
	assert.NoError(t, err)
}

func TestSetStatusPermissions(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	owner, _ := f.svc.Register(ctx, "Owner", "owner@example.com", "pw")
	admin, _ := f.svc.Register(ctx, "Admin", "admin@example.com", "pw")
	user, _ := f.svc.Register(ctx, "User", "user@example.com", "pw")
	require.NoError(t, f.users.SetRole(ctx, admin.ID, model.RoleAdmin))

	ownerCreds := Credentials{ID: owner.ID, Role: model.RoleOwner}
	adminCreds := Credentials{ID: admin.ID, Role: model.RoleAdmin}
	userCreds := Credentials{ID: user.ID, Role: model.RoleUser}

	assert.ErrorIs(t, f.svc.SetStatus(ctx, userCreds, admin.ID, model.StatusSuspended), ErrForbidden)
	assert.ErrorIs(t, f.svc.SetStatus(ctx, adminCreds, owner.ID, model.StatusSuspended), ErrForbidden)
	assert.ErrorIs(t, f.svc.SetStatus(ctx, adminCreds, admin.ID, model.StatusSuspended), ErrForbidden)
	assert.ErrorIs(t, f.svc.SetStatus(ctx, adminCreds, user.ID, "banned"), ErrInvalidInput)
	assert.ErrorIs(t, f.svc.SetStatus(ctx, adminCreds, 999, model.StatusSuspended), ErrNotFound)

	require.NoError(t, f.svc.SetStatus(ctx, adminCreds, user.ID, model.StatusSuspended))
	got, _ := f.users.GetByID(ctx, user.ID)
	assert.True(t, got.Suspended())

	require.NoError(t, f.svc.SetStatus(ctx, ownerCreds, admin.ID, model.StatusSuspended))
}

func TestSetRolePermissions(t *testing.T) {
	f := newFixture(t, password.SchemeSHA2)
	ctx := context.Background()

	owner, _ := f.svc.Register(ctx, "Owner", "owner@example.com", "pw")
	user, _ := f.svc.Register(ctx, "User", "user@example.com", "pw")

	ownerCreds := Credentials{ID: owner.ID, Role: model.RoleOwner}
	assert.ErrorIs(t, f.svc.SetRole(ctx, Credentials{ID: user.ID, Role: model.RoleAdmin}, owner.ID, model.RoleUser), ErrForbidden)
	assert.ErrorIs(t, f.svc.SetRole(ctx, ownerCreds, user.ID, model.RoleOwner), ErrInvalidInput)
	assert.ErrorIs(t, f.svc.SetRole(ctx, ownerCreds, owner.ID, model.RoleUser), ErrForbidden)

	require.NoError(t, f.svc.SetRole(ctx, ownerCreds, user.ID, model.RoleAdmin))
	got, _ := f.users.GetByID(ctx, user.ID)
	assert.Equal(t, model.RoleAdmin, got.Role)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "halt", Halt.String())
	assert.Equal(t, "logout", Logout.String())
}
