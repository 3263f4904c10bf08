package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionService turns a bearer token into the calling account. It is the
// only place protected HTTP handlers and the RPC surface authenticate users.
type SessionService struct {
	conn        *dbx.Conn
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         func() time.Time
}

func NewSessionService(conn *dbx.Conn, m repomanager.RepositoryManager, log logging.Logger) *SessionService {
	return &SessionService{
		conn:        conn,
		repomanager: m,
		log:         log.With("module", "sessions"),
		now:         time.Now,
	}
}

// Resolve authenticates token, the raw value of the Authorization header.
//
// It returns common.ErrNoCredential for an empty token,
// common.ErrMalformedCredential when it is not a UUID, common.ErrInvalidToken
// when no session or no owning account exists and common.ErrorInternal on
// store failures. On success the session's last use is refreshed; a failure
// to do so is logged and ignored.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.Account, *models.Session, error) {
	if token == "" {
		return nil, nil, common.ErrNoCredential
	}
	parsed, err := uuid.Parse(token)
	if err != nil {
		return nil, nil, common.ErrMalformedCredential
	}
	token = parsed.String()

	var (
		account *models.Account
		session *models.Session
	)
	err = s.conn.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		session, err = s.repomanager.Sessions(db).Find(ctx, token)
		if err != nil {
			return err
		}
		account, err = s.repomanager.Users(db).GetByID(ctx, session.UserID)
		if err != nil {
			return err
		}

		session.LastUsed = s.now()
		if err := s.repomanager.Sessions(db).Touch(ctx, token, session.LastUsed); err != nil {
			s.log.Warn(ctx, "session touch failed", "user_id", account.ID, "error", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidToken
		}
		s.log.Error(ctx, "session lookup failed", "error", err)
		return nil, nil, common.ErrorInternal
	}

	return account, session, nil
}
