package users

import (
	"context"
	"strings"

	"github.com/kbukum/usersvc/auth/password"
	"github.com/kbukum/usersvc/database/query"
	apperrors "github.com/kbukum/usersvc/errors"
	"github.com/kbukum/usersvc/logger"
)

// IncorrectCredentials is the message for both unknown email and wrong
// password.
const IncorrectCredentials = "Incorrect username or password"

// Service implements the account operations.
type Service struct {
	store    *Store
	verifier password.Verifier
	hasher   password.Hasher
	log      *logger.Logger
}

// NewService wires a service. verifier checks login passwords; hasher hashes
// new ones.
func NewService(store *Store, verifier password.Verifier, hasher password.Hasher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{store: store, verifier: verifier, hasher: hasher, log: log.WithComponent("users")}
}

// Authenticate returns the active user owning email and password.
func (s *Service) Authenticate(ctx context.Context, email, pw string) (*User, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return nil, apperrors.Unauthorized(IncorrectCredentials)
		}
		return nil, err
	}
	if err := s.verifier.Verify(pw, u.HashedPassword); err != nil {
		s.log.WithContext(ctx).Debug("Password verification failed", map[string]interface{}{
			logger.FieldEmail: u.Email,
		})
		return nil, apperrors.Unauthorized(IncorrectCredentials)
	}
	if !u.IsActive {
		return nil, apperrors.InactiveUser()
	}
	return u, nil
}

// SignUp registers an active, non-superuser account.
func (s *Service) SignUp(ctx context.Context, email, pw string) (*User, error) {
	active := true
	return s.CreateUser(ctx, UserCreate{Email: email, Password: pw, IsActive: &active})
}

// CreateUser creates an account from the admin payload. IsActive defaults
// to true.
func (s *Service) CreateUser(ctx context.Context, in UserCreate) (*User, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:          normalizeEmail(in.Email),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		HashedPassword: hash,
		IsActive:       in.IsActive == nil || *in.IsActive,
		IsSuperuser:    in.IsSuperuser,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("User created", map[string]interface{}{
		logger.FieldEmail:  u.Email,
		logger.FieldUserID: u.ID,
		"superuser":        u.IsSuperuser,
	})
	return u, nil
}

// UpdateUser applies the non-nil fields of in. A new password is re-hashed.
func (s *Service) UpdateUser(ctx context.Context, id uint, in UserUpdate) (*User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = normalizeEmail(*in.Email)
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if in.Password != nil {
		if u.HashedPassword, err = s.hash(*in.Password); err != nil {
			return nil, err
		}
	}
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureSuperuser creates a superuser or promotes an existing account and
// resets its password.
func (s *Service) EnsureSuperuser(ctx context.Context, email, pw string) (*User, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case apperrors.IsCode(err, apperrors.ErrCodeNotFound):
		active := true
		return s.CreateUser(ctx, UserCreate{Email: email, Password: pw, IsActive: &active, IsSuperuser: true})
	case err != nil:
		return nil, err
	}

	yes := true
	return s.UpdateUser(ctx, u.ID, UserUpdate{Password: &pw, IsActive: &yes, IsSuperuser: &yes})
}

// CreateSuperuserIfMissing creates an active superuser for email unless an
// account with that email already exists, which is left untouched. It
// reports whether it created one.
func (s *Service) CreateSuperuserIfMissing(ctx context.Context, email, pw string) (*User, bool, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return u, false, nil
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return nil, false, err
	}
	active := true
	u, err = s.CreateUser(ctx, UserCreate{Email: email, Password: pw, IsActive: &active, IsSuperuser: true})
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// GetUser returns the user with id.
func (s *Service) GetUser(ctx context.Context, id uint) (*User, error) {
	return s.store.Get(ctx, id)
}

// GetByEmail returns the user with email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.store.GetByEmail(ctx, normalizeEmail(email))
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, params query.Params) (*query.Result[User], error) {
	return s.store.List(ctx, params)
}

// DeleteUser removes the user with id and returns it.
func (s *Service) DeleteUser(ctx context.Context, id uint) (*User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) hash(pw string) (string, error) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return "", apperrors.InvalidInput("password", strings.TrimPrefix(err.Error(), "password: "))
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
