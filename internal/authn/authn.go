// Package authn registers users, logs them in and verifies their sessions.
//
// A login mints a random identity. The client receives it inside a signed
// carrier token; the database stores only its SHA-512. Verification needs
// both halves: a token with a valid signature and expiry, and a session row
// that is neither flagged nor past its own expiration.
package authn

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/practicum/internal/model"
	"github.com/dukerupert/practicum/internal/password"
	"github.com/dukerupert/practicum/internal/store"
	"github.com/dukerupert/practicum/internal/token"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("user not found")
)

// IdentitySize is the number of random bytes behind a session identity.
const IdentitySize = 200

// Action is the outcome of session verification.
type Action int

const (
	// Logout means unauthenticated: the client state should be cleared.
	Logout Action = iota
	// Continue means the request may proceed.
	Continue
	// Halt means the session is valid but the account is suspended.
	Halt
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Halt:
		return "halt"
	default:
		return "logout"
	}
}

// Credentials is what downstream handlers see of the signed-in user.
type Credentials struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Active     string `json:"active"`
	LoginCount int64  `json:"login_count"`
}

func (c Credentials) IsStaff() bool {
	return c.Role == model.RoleOwner || c.Role == model.RoleAdmin
}

// Verdict is the result of Verify. Credentials is nil for Logout.
type Verdict struct {
	Action      Action
	Credentials *Credentials
	SessionID   int64
}

// Issued is a fresh login: the carrier token to hand to the client.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

type Config struct {
	Scheme     password.Scheme
	SessionTTL time.Duration
}

type Service struct {
	users    *store.UserStore
	sessions *store.SessionStore
	issuer   *token.Issuer
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(us *store.UserStore, ss *store.SessionStore, issuer *token.Issuer, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.Scheme == "" {
		cfg.Scheme = password.SchemeSHA2
	}
	return &Service{
		users:    us,
		sessions: ss,
		issuer:   issuer,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// NormalizeEmail trims and lower-cases an address before lookup or insert.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. The first account ever becomes the owner.
func (s *Service) Register(ctx context.Context, name, email, raw string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || raw == "" {
		return nil, ErrInvalidInput
	}

	creds, err := password.New(s.cfg.Scheme, raw)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, name, email, creds)
	if errors.Is(err, store.ErrEmailTaken) {
		return nil, ErrEmailInUse
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login checks the password and opens a session. Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, raw string) (*Issued, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if !password.Verify(password.Scheme(u.PasswordScheme), raw, u.Salt1, u.Salt2, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	count, err := s.users.IncrementLoginCount(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.LoginCount = count

	identity, err := newIdentity()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.cfg.SessionTTL)
	if _, err := s.sessions.Create(ctx, HashIdentity(identity), u.ID, expiresAt); err != nil {
		return nil, err
	}

	tok, tokExp, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", u.ID, "login_count", count)
	return &Issued{Token: tok, ExpiresAt: tokExp, User: u}, nil
}

// Verify resolves a carrier token to a three-way verdict. Every failure,
// including storage errors, collapses to Logout; the cause is only logged.
func (s *Service) Verify(ctx context.Context, carrier string) Verdict {
	if carrier == "" {
		return Verdict{Action: Logout}
	}

	sess, err := s.lookup(ctx, carrier)
	if err != nil {
		s.logger.Debug("session rejected", "reason", err)
		return Verdict{Action: Logout}
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		s.logger.Error("session user lookup", "error", err)
		return Verdict{Action: Logout}
	}
	if u == nil {
		return Verdict{Action: Logout}
	}

	creds := CredentialsOf(u)
	if u.Suspended() {
		return Verdict{Action: Halt, Credentials: &creds, SessionID: sess.ID}
	}
	return Verdict{Action: Continue, Credentials: &creds, SessionID: sess.ID}
}

// Logout flags the session behind carrier as expired. An already invalid
// carrier is not an error.
func (s *Service) Logout(ctx context.Context, carrier string) error {
	if carrier == "" {
		return nil
	}
	identity, err := s.issuer.Parse(carrier)
	if err != nil {
		return nil
	}
	sess, err := s.sessions.GetByToken(ctx, HashIdentity(identity))
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	return s.sessions.Expire(ctx, sess.ID)
}

// ChangePassword re-salts and re-hashes after checking the current password,
// then revokes every session of the user. Existing carriers verify as Logout.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if next == "" {
		return ErrInvalidInput
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrNotFound
	}
	if !password.Verify(password.Scheme(u.PasswordScheme), current, u.Salt1, u.Salt2, u.PasswordHash) {
		return ErrInvalidCredentials
	}

	creds, err := password.New(s.cfg.Scheme, next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, creds); err != nil {
		return err
	}
	if err := s.sessions.ExpireByUserID(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// DeleteAccount removes the user; their sets pass to the system account.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", "user_id", userID)
	return nil
}

// SetStatus suspends or reactivates target. Staff only; the owner cannot be
// suspended and nobody can suspend themselves.
func (s *Service) SetStatus(ctx context.Context, actor Credentials, targetID int64, status string) error {
	if !model.ValidStatus(status) {
		return ErrInvalidInput
	}
	if !actor.IsStaff() || actor.ID == targetID {
		return ErrForbidden
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if target.Role == model.RoleOwner {
		return ErrForbidden
	}
	if target.Role == model.RoleAdmin && actor.Role != model.RoleOwner {
		return ErrForbidden
	}
	if err := s.users.SetStatus(ctx, targetID, status); err != nil {
		return err
	}
	s.logger.Info("user status changed", "actor_id", actor.ID, "user_id", targetID, "status", status)
	return nil
}

// SetRole promotes or demotes target between admin and user. Owner only;
// ownership itself is not transferable.
func (s *Service) SetRole(ctx context.Context, actor Credentials, targetID int64, role string) error {
	if role != model.RoleAdmin && role != model.RoleUser {
		return ErrInvalidInput
	}
	if actor.Role != model.RoleOwner || actor.ID == targetID {
		return ErrForbidden
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if err := s.users.SetRole(ctx, targetID, role); err != nil {
		return err
	}
	s.logger.Info("user role changed", "actor_id", actor.ID, "user_id", targetID, "role", role)
	return nil
}

func (s *Service) lookup(ctx context.Context, carrier string) (*model.Session, error) {
	identity, err := s.issuer.Parse(carrier)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.GetByToken(ctx, HashIdentity(identity))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("no session for identity")
	}
	if !sess.Valid(s.now()) {
		return nil, errors.New("session expired")
	}
	return sess, nil
}

// CredentialsOf projects a user onto what handlers may see.
func CredentialsOf(u *model.User) Credentials {
	return Credentials{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		Active:     u.Status(),
		LoginCount: u.LoginCount,
	}
}

// HashIdentity is the session-table key for an identity.
func HashIdentity(identity string) string {
	sum := sha512.Sum512([]byte(identity))
	return hex.EncodeToString(sum[:])
}

func newIdentity() (string, error) {
	b := make([]byte, IdentitySize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate identity: %w", err)
	}
	return hex.EncodeToString(b), nil
}
