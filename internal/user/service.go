package user

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/accountd/internal/auth"
	"github.com/ovaphlow/accountd/internal/user/entity"
	userrepo "github.com/ovaphlow/accountd/internal/user/repo"
)

// PasswordHasher defines the minimal hashing interface (abstract so we can
// swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var (
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so login replies never reveal whether an email exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	// ErrForbidden marks an ownership violation.
	ErrForbidden = errors.New("forbidden")
)

// Service orchestrates registration, authentication and profile lifecycle.
type Service struct {
	repo   *userrepo.UserRepo
	hasher PasswordHasher
	issuer *auth.Issuer
}

func NewService(db *sqlx.DB, issuer *auth.Issuer, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 10}
	}
	return &Service{repo: userrepo.NewUserRepo(db), hasher: hasher, issuer: issuer}
}

// Register hashes the password, inserts the row and issues a token for the
// new user. A duplicate email surfaces as ErrEmailExists.
func (s *Service) Register(ctx context.Context, name, email, password string) (*entity.PublicUser, string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}
	u, err := s.repo.Create(ctx, name, email, hash)
	if err != nil {
		var cv *userrepo.ConstraintViolation
		if errors.As(err, &cv) {
			return nil, "", ErrEmailExists
		}
		return nil, "", err
	}
	token, err := s.issuer.Issue(u.ID, u.Name, u.Email)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Authenticate verifies credentials and issues a token. Unknown email and
// wrong password take the same exit.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.PublicUser, string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issuer.Issue(u.ID, u.Name, u.Email)
	if err != nil {
		return nil, "", err
	}
	pub := u.Public()
	return &pub, token, nil
}

// Profile resolves the caller's own row. A 404 here usually means the
// account was deleted after the token was issued.
func (s *Service) Profile(ctx context.Context, id int64) (*entity.PublicUser, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns all users newest first.
func (s *Service) List(ctx context.Context) ([]entity.PublicUser, error) {
	return s.repo.List(ctx)
}

// UpdateProfile applies a partial update to the caller's own row only.
func (s *Service) UpdateProfile(ctx context.Context, id int64, name, email *string) (*entity.PublicUser, error) {
	u, err := s.repo.UpdatePartial(ctx, id, name, email)
	if err != nil {
		var cv *userrepo.ConstraintViolation
		switch {
		case errors.As(err, &cv):
			return nil, ErrEmailExists
		case errors.Is(err, userrepo.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Delete removes the target account. Only the owner may delete themself.
func (s *Service) Delete(ctx context.Context, targetID, requesterID int64) (*entity.DeletedUser, error) {
	if targetID != requesterID {
		return nil, ErrForbidden
	}
	u, err := s.repo.Delete(ctx, targetID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
