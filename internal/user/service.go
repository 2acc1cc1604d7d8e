package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"loomworks/internal/activity"
	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/requestcontext"
)

// Store persists system accounts.
type Store interface {
	Save(ctx context.Context, u User) error
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "user not found")

// TokenIssuer signs access tokens for authenticated identities. The JWT
// service satisfies this.
type TokenIssuer interface {
	Generate(ident requestcontext.Identity, expiresIn time.Duration) (string, error)
}

// Service manages accounts and the credential check at the authentication
// boundary. Tokens encode {id, role}; everything downstream trusts them.
type Service struct {
	store      Store
	tokens     TokenIssuer
	activities ActivityPublisher
	logger     *slog.Logger
	tokenTTL   time.Duration
}

// ActivityPublisher appends account events to the activity stream.
type ActivityPublisher interface {
	Emit(ctx context.Context, entry activity.Entry) error
}

func NewService(store Store, tokens TokenIssuer, activities ActivityPublisher, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		activities: activities,
		logger:     logger,
		tokenTTL:   12 * time.Hour,
	}
}

// Authenticate checks credentials and returns a signed token plus the
// account. Wrong email and wrong password return the same error so the
// endpoint doesn't leak which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, User, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.Generate(requestcontext.Identity{
		UserID: account.ID.String(),
		Role:   account.Role,
	}, s.tokenTTL)
	if err != nil {
		return "", User{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "sign token")
	}
	return token, account, nil
}

// Create registers a new account. Admin-only at the transport layer.
func (s *Service) Create(ctx context.Context, email, fullName, password string, role requestcontext.Role) (User, error) {
	if !govalidator.IsEmail(email) {
		return User{}, pkgerrors.New(pkgerrors.CodeValidation, "email is not a valid address")
	}
	if fullName == "" {
		return User{}, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if len(password) < 8 {
		return User{}, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if role != requestcontext.RoleAdmin && role != requestcontext.RoleManager {
		return User{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown role %q", role)
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return User{}, pkgerrors.Newf(pkgerrors.CodeConflict, "account %s already exists", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "hash password")
	}

	account := User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     fullName,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Save(ctx, account); err != nil {
		return User{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "save user")
	}

	callerID, _ := uuid.Parse(requestcontext.Caller(ctx).UserID)
	if err := s.activities.Emit(ctx, activity.Entry{
		UserID:    callerID,
		Action:    activity.ActionCreateUser,
		Details:   "account created: " + email,
		CreatedAt: account.CreatedAt,
	}); err != nil {
		s.logger.WarnContext(ctx, "account activity not recorded",
			"action", activity.ActionCreateUser,
			"error", err.Error(),
		)
	}
	return account, nil
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// Delete removes an account. This is the only hard delete in the system;
// workflow entities are never deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	caller := requestcontext.Caller(ctx)
	if caller.UserID == id.String() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "an admin cannot delete their own account")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return err
		}
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "delete user")
	}

	callerID, _ := uuid.Parse(caller.UserID)
	if err := s.activities.Emit(ctx, activity.Entry{
		UserID:    callerID,
		Action:    activity.ActionDeleteUser,
		Details:   "account deleted: " + id.String(),
		CreatedAt: requestcontext.Now(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "account activity not recorded",
			"action", activity.ActionDeleteUser,
			"error", err.Error(),
		)
	}
	return nil
}

// Seed creates the bootstrap admin when the store has no accounts yet.
// Returns quietly when accounts exist or no seed password is configured.
func (s *Service) Seed(ctx context.Context, email, password string) error {
	if password == "" {
		return nil
	}
	existing, err := s.store.List(ctx)
	if err != nil || len(existing) > 0 {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "hash seed password")
	}
	return s.store.Save(ctx, User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     "Administrator",
		Role:         requestcontext.RoleAdmin,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	})
}
