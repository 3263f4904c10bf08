// Package services contains server-side business logic. UserService handles
// registration and login, SessionService resolves bearer tokens and
// ExamService drives the license exam.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Registration problems reported to clients.
const (
	ShortUserNameProblem   = "Username must be at least 3 characters long"
	LongUserNameProblem    = "Username must be at most 100 characters long"
	NonAlphanumericProblem = "Username must be alphanumeric"
	ShortNameProblem       = "Name must be at least 3 characters long"
	LongNameProblem        = "Name must be at most 100 characters long"
	ShortPasswordProblem   = "Password must be at least 12 characters long"
	UserNameTakenProblem   = "Username is already taken"
)

const (
	minFieldLength    = 3
	maxFieldLength    = 100
	minPasswordLength = 12
)

// PasswordHasher produces and checks password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// LoginResult is returned by a successful login. IncomingMessage is only set
// for unlicensed accounts.
type LoginResult struct {
	Token           string
	Licensed        bool
	IncomingMessage []string
}

type UserService struct {
	conn        *dbx.Conn
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	welcome     []string
	log         logging.Logger
	now         func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewUserService constructs a UserService. welcome is the message returned to
// unlicensed accounts at login; see RenderWelcome.
func NewUserService(conn *dbx.Conn, m repomanager.RepositoryManager, hasher PasswordHasher, welcome []string, log logging.Logger) *UserService {
	return &UserService{
		conn:        conn,
		repomanager: m,
		hasher:      hasher,
		welcome:     welcome,
		log:         log.With("module", "users"),
		now:         time.Now,
	}
}

// ValidateRegistration returns every problem with the submitted fields.
func ValidateRegistration(name, userName, password string) *common.ValidationError {
	v := &common.ValidationError{}

	if len(userName) < minFieldLength {
		v.Add(ShortUserNameProblem)
	}
	if len(userName) > maxFieldLength {
		v.Add(LongUserNameProblem)
	}
	if !isASCIIAlphanumeric(userName) {
		v.Add(NonAlphanumericProblem)
	}
	if len(name) < minFieldLength {
		v.Add(ShortNameProblem)
	}
	if len(name) > maxFieldLength {
		v.Add(LongNameProblem)
	}
	if len(password) < minPasswordLength {
		v.Add(ShortPasswordProblem)
	}

	return v
}

func isASCIIAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// Register creates an account. Client problems are reported as a
// *common.ValidationError; anything else is common.ErrorInternal.
func (s *UserService) Register(ctx context.Context, name, userName, password string) (*models.Account, error) {
	if err := ValidateRegistration(name, userName, password).OrNil(); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Error(ctx, "password hash failed", "error", err)
		return nil, common.ErrorInternal
	}

	account := &models.Account{
		ID:             uuid.NewString(),
		Name:           name,
		UserName:       userName,
		PasswordDigest: digest,
	}

	err = s.conn.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Users(db).Create(ctx, account)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, &common.ValidationError{Problems: []string{UserNameTakenProblem}}
		}
		s.log.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user registered", "user_id", account.ID)
	return account, nil
}

// Login checks the credentials and opens a new session. Unknown users and
// wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	var account *models.Account
	err := s.conn.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		account, err = s.repomanager.Users(db).GetByUserName(ctx, userName)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.verifyDummy(ctx, password)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "error searching user", "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := s.hasher.Verify(password, account.PasswordDigest)
	if err != nil {
		s.log.Error(ctx, "stored password digest unusable", "user_id", account.ID, "error", err)
		return nil, common.ErrorUnauthorized
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	session := &models.Session{Token: uuid.NewString(), UserID: account.ID, LastUsed: s.now()}
	err = s.conn.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Sessions(db).Create(ctx, session)
	})
	if err != nil {
		s.log.Error(ctx, "error creating session", "error", err)
		return nil, common.ErrorInternal
	}

	res := &LoginResult{Token: session.Token, Licensed: account.Licensed()}
	if !res.Licensed {
		res.IncomingMessage = s.welcome
	}
	return res, nil
}

// verifyDummy spends the same hashing work as a real password check so an
// unknown username costs as much as a wrong password.
func (s *UserService) verifyDummy(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.log.Warn(ctx, "dummy digest unavailable", "error", err)
			return
		}
		s.dummyDigest = digest
	})
	if s.dummyDigest == "" {
		return
	}
	_, _ = s.hasher.Verify(password, s.dummyDigest)
}
