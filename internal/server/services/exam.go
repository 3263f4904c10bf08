package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/exam"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Issued is the outcome of ExamService.RequestChallenge. When AlreadyLicensed
// is set no challenge was created and the other fields are zero.
type Issued struct {
	AlreadyLicensed bool
	Token           string
	N               uint16
	Streak          int
}

type ExamService struct {
	conn        *dbx.Conn
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	randN       func() uint16
	newToken    func() string
}

func NewExamService(conn *dbx.Conn, m repomanager.RepositoryManager, log logging.Logger) *ExamService {
	return &ExamService{
		conn:        conn,
		repomanager: m,
		log:         log.With("module", "exam"),
		randN:       func() uint16 { return uint16(rand.Uint32()) },
		newToken:    uuid.NewString,
	}
}

// RequestChallenge grades the account's previous challenge, if any, and
// issues the next one. Grading happens here rather than at acknowledgement
// time, so an acknowledged but abandoned round still counts against the
// streak on the next request.
func (s *ExamService) RequestChallenge(ctx context.Context, account *models.Account) (*Issued, error) {
	if account.Licensed() {
		return &Issued{AlreadyLicensed: true}, nil
	}

	var issued *Issued
	err := s.conn.Tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		usersRepo := s.repomanager.Users(tx)
		challengesRepo := s.repomanager.Challenges(tx)

		fresh, err := usersRepo.GetByID(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("error reading account: %w", err)
		}
		if fresh.Licensed() {
			issued = &Issued{AlreadyLicensed: true}
			return nil
		}

		prev, err := challengesRepo.FindByUser(ctx, fresh.ID)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("error reading challenge: %w", err)
			}
			prev = nil
		}

		streak := exam.NextStreak(fresh.ExamStreak, prev)

		if prev != nil {
			if _, err := challengesRepo.DeleteByUser(ctx, fresh.ID); err != nil {
				return fmt.Errorf("error deleting challenge: %w", err)
			}
		}
		if streak != fresh.ExamStreak {
			if err := usersRepo.UpdateExamStreak(ctx, fresh.ID, streak); err != nil {
				return fmt.Errorf("error updating streak: %w", err)
			}
		}

		if exam.Licensed(streak) {
			s.log.Info(ctx, "license exam passed", "user_id", fresh.ID)
			issued = &Issued{AlreadyLicensed: true}
			return nil
		}

		next := &models.Challenge{UserID: fresh.ID, Token: s.newToken(), N: s.randN()}
		if err := challengesRepo.Create(ctx, next); err != nil {
			return fmt.Errorf("error creating challenge: %w", err)
		}

		issued = &Issued{Token: next.Token, N: next.N, Streak: streak}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "request challenge failed", "user_id", account.ID, "error", err)
		return nil, common.ErrorInternal
	}

	return issued, nil
}

// Acknowledge records that the account signalled channel for the challenge
// identified by token. It does not grade the challenge. An unknown token, or
// one belonging to a different account, yields common.ErrChallengeNotFound.
func (s *ExamService) Acknowledge(ctx context.Context, userID, token string, channel exam.Channel) error {
	var found bool
	err := s.conn.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		found, err = s.repomanager.Challenges(db).Acknowledge(ctx, userID, token, channel)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "acknowledge failed", "user_id", userID, "error", err)
		return common.ErrorInternal
	}
	if !found {
		return common.ErrChallengeNotFound
	}
	return nil
}
