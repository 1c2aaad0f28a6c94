package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/churches"
	"github.com/bengobox/church-admin/internal/services/users"
	"github.com/bengobox/church-admin/internal/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errs.Unauthenticated("invalid credentials")
	// ErrPasswordResetTokenInvalid indicates an unknown, used or expired reset token.
	ErrPasswordResetTokenInvalid = errs.Invalid("token", "password reset token invalid or expired")
	// ErrCurrentPasswordMismatch is returned by ChangePassword.
	ErrCurrentPasswordMismatch = errs.Invalid("currentPassword", "is incorrect")
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	NeedsRehash(hash string) bool
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Mint(userID uuid.UUID, email string) (string, time.Time, error)
}

// Revoker invalidates access tokens before they expire.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Registrar creates a church and its first admin atomically.
type Registrar interface {
	Register(ctx context.Context, church *churches.Church, admin *users.User) error
}

// ResetStore persists password reset tokens by hash.
type ResetStore interface {
	Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error)
	// Consume marks an unused, unexpired token as used and returns its ids.
	Consume(ctx context.Context, tokenHash string, now time.Time) (resetID, userID uuid.UUID, err error)
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service encapsulates the authentication flows.
type Service struct {
	users     users.Repository
	registrar Registrar
	resets    ResetStore
	tokens    TokenIssuer
	revoker   Revoker
	hasher    PasswordHasher
	auditor   Auditor
	logger    *zap.Logger
	minLength int
	resetTTL  time.Duration
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Dependencies aggregates constructor inputs. Revoker may be nil, in which
// case logout only records the event.
type Dependencies struct {
	Users             users.Repository
	Registrar         Registrar
	Resets            ResetStore
	Tokens            TokenIssuer
	Revoker           Revoker
	Hasher            PasswordHasher
	Auditor           Auditor
	Logger            *zap.Logger
	PasswordMinLength int
	ResetTTL          time.Duration
}

// New initialises the auth service.
func New(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	minLength := deps.PasswordMinLength
	if minLength < 1 {
		minLength = 6
	}
	resetTTL := deps.ResetTTL
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &Service{
		users:     deps.Users,
		registrar: deps.Registrar,
		resets:    deps.Resets,
		tokens:    deps.Tokens,
		revoker:   deps.Revoker,
		hasher:    deps.Hasher,
		auditor:   deps.Auditor,
		logger:    logger,
		minLength: minLength,
		resetTTL:  resetTTL,
		now:       time.Now,
	}
}

// Result is returned by Login and Register.
type Result struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      *users.User      `json:"user"`
	Igreja    *churches.Church `json:"igreja,omitempty"`
}

// LoginInput captures the login payload. Actor carries request metadata only.
type LoginInput struct {
	Email    string
	Password string
	Actor    audit.Actor
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, errs.Invalid("", "email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("query user: %w", err)
		}
		// Spend the same hashing work as a real comparison.
		_ = s.hasher.Compare(s.dummy(), in.Password)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, in.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	raw, expiresAt, err := s.tokens.Mint(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.upgradeHash(ctx, u, in.Password)
	}

	actor := in.Actor
	actor.UserID = u.ID
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUsers,
		EntityID:   u.ID.String(),
	})

	return &Result{Token: raw, ExpiresAt: expiresAt, User: u}, nil
}

// RegisterInput captures the self-service signup payload.
type RegisterInput struct {
	ChurchName string
	AdminName  string
	Email      string
	Password   string
	CPF        string
	Phone      string
	Actor      audit.Actor
}

// Register creates a church with its first admin and signs the admin in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	churchName := strings.TrimSpace(in.ChurchName)
	adminName := strings.TrimSpace(in.AdminName)
	if churchName == "" || adminName == "" || in.Email == "" || in.Password == "" || in.CPF == "" || in.Phone == "" {
		return nil, errs.Invalid("", "churchName, adminName, email, password, cpf and phone are required")
	}
	email, err := users.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	cpf, err := users.FormatCPF(in.CPF)
	if err != nil {
		return nil, err
	}
	phone, err := users.NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	if err := users.CheckPassword(in.Password, s.minLength); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); !absent(err) {
		return nil, takenOr(err, users.ErrEmailTaken)
	}
	if _, err := s.users.GetByCPF(ctx, cpf); !absent(err) {
		return nil, takenOr(err, users.ErrCPFTaken)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	church := &churches.Church{Name: churchName}
	admin := &users.User{
		Name:         adminName,
		Email:        email,
		CPF:          &cpf,
		Phone:        phone,
		Role:         users.DefaultRole,
		PasswordHash: hash,
	}
	if err := s.registrar.Register(ctx, church, admin); err != nil {
		return nil, fmt.Errorf("register church: %w", err)
	}

	actor := in.Actor
	actor.UserID = admin.ID
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionCreate,
		EntityType: audit.EntityIgrejas,
		EntityID:   church.ID.String(),
		NewData:    audit.Snapshot(church),
	})
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionCreate,
		EntityType: audit.EntityUsers,
		EntityID:   admin.ID.String(),
		NewData:    audit.Snapshot(admin),
	})

	raw, expiresAt, err := s.tokens.Mint(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	return &Result{Token: raw, ExpiresAt: expiresAt, User: admin, Igreja: church}, nil
}

// Me returns the account behind an authenticated identity.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.users.Get(ctx, id)
}

// Logout revokes the presented token and records the event.
func (s *Service) Logout(ctx context.Context, actor audit.Actor, identity *token.Identity) error {
	if s.revoker != nil && identity.TokenID != "" {
		if err := s.revoker.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionLogout,
		EntityType: audit.EntityUsers,
		EntityID:   actor.UserID.String(),
	})
	return nil
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor audit.Actor, current, next string) error {
	if current == "" || next == "" {
		return errs.Invalid("", "currentPassword and newPassword are required")
	}
	if err := users.CheckPassword(next, s.minLength); err != nil {
		return err
	}
	u, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, current); err != nil {
		return ErrCurrentPasswordMismatch
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionPasswordChange,
		EntityType: audit.EntityUsers,
		EntityID:   u.ID.String(),
	})
	return nil
}

// RequestPasswordReset creates a reset token for the account, if any. The
// plain token is returned for delivery; an unknown email yields "" and no error.
func (s *Service) RequestPasswordReset(ctx context.Context, actor audit.Actor, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", errs.Invalid("email", "is required")
	}
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("query user: %w", err)
	}

	plain, hash, err := generatePasswordResetToken()
	if err != nil {
		return "", err
	}
	expiresAt := s.now().Add(s.resetTTL).UTC()
	resetID, err := s.resets.Create(ctx, u.ID, hash, expiresAt)
	if err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	actor.UserID = u.ID
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionPasswordReset,
		EntityType: audit.EntityPasswordResets,
		EntityID:   resetID.String(),
		NewData:    map[string]any{"status": "requested", "expiresAt": expiresAt.Format(time.RFC3339)},
	})
	return plain, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, actor audit.Actor, plain, next string) error {
	if plain == "" {
		return ErrPasswordResetTokenInvalid
	}
	if err := users.CheckPassword(next, s.minLength); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	resetID, userID, err := s.resets.Consume(ctx, hashToken(plain), s.now().UTC())
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return ErrPasswordResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	actor.UserID = userID
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionPasswordReset,
		EntityType: audit.EntityPasswordResets,
		EntityID:   resetID.String(),
		NewData:    map[string]any{"status": "completed"},
	})
	return nil
}

func (s *Service) upgradeHash(ctx context.Context, u *users.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", zap.Error(err))
		return
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		s.logger.Warn("failed to store upgraded password hash", zap.Error(err))
		return
	}
	u.PasswordHash = hash
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Warn("failed to prepare dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// absent reports whether a lookup error means the row does not exist.
func absent(err error) bool {
	return err != nil && errors.Is(err, errs.ErrNotFound)
}

// takenOr returns taken for a successful lookup and wraps any other failure.
func takenOr(err, taken error) error {
	if err == nil {
		return taken
	}
	return fmt.Errorf("check uniqueness: %w", err)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generatePasswordResetToken() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("random reset token: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(buf)
	return plain, hashToken(plain), nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
