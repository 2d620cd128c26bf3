package authsvc

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"libraryapi/model"
	authrepo "libraryapi/repository/auth"
	"libraryapi/util/apperr"
	"libraryapi/util/hash"
	jwtutil "libraryapi/util/jwt"
)

const (
	ErrEmailTaken   apperr.Code = "EMAIL_TAKEN"
	ErrBadInput     apperr.Code = "BAD_INPUT"
	ErrInvalidCreds apperr.Code = "INVALID_CREDENTIALS"
)

const tokenTTLHours = 24

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
}

type service struct {
	ur     authrepo.Repo
	secret string
}

func New(ur authrepo.Repo, secret string) Service { return &service{ur: ur, secret: secret} }

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") || len(req.Password) < 6 {
		return nil, "", apperr.Invalid(ErrBadInput, "email and a password of at least 6 characters are required", nil)
	}

	switch _, err := s.ur.ByEmail(ctx, email); {
	case err == nil:
		return nil, "", apperr.New(apperr.Conflict, ErrEmailTaken, "email already registered")
	case !errors.Is(err, authrepo.ErrNotFound):
		return nil, "", err
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}
	u := &model.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		PasswordHash: hashed,
	}
	if err := s.ur.Create(ctx, u); err != nil {
		return nil, "", mapDuplicateErr(err)
	}

	token, err := jwtutil.Issue(s.secret, u.ID, u.Role(), tokenTTLHours)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// mapDuplicateErr covers the race where two registrations pass the lookup.
func mapDuplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		if strings.Contains(strings.ToLower(pgErr.ConstraintName), "email") {
			return apperr.New(apperr.Conflict, ErrEmailTaken, "email already registered")
		}
		return apperr.Invalid(ErrBadInput, "duplicate value", nil)
	}
	return err
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", apperr.Invalid(ErrBadInput, "email and password are required", nil)
	}

	u, err := s.ur.ByEmail(ctx, email)
	if errors.Is(err, authrepo.ErrNotFound) {
		return nil, "", apperr.New(apperr.Unauth, ErrInvalidCreds, "invalid credentials")
	}
	if err != nil {
		return nil, "", err
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", apperr.New(apperr.Unauth, ErrInvalidCreds, "invalid credentials")
	}

	token, err := jwtutil.Issue(s.secret, u.ID, u.Role(), tokenTTLHours)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
