package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/server/exam"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- in-memory repositories ---

type fakeUsersRepo struct {
	byID      map[string]*models.Account
	createErr error
	getErr    error
	updateErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.Account{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, a *models.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.byID {
		if u.UserName == a.UserName {
			return common.ErrorAlreadyExists
		}
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeUsersRepo) GetByUserName(_ context.Context, userName string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.UserName == userName {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) UpdateExamStreak(_ context.Context, id string, streak int) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.ExamStreak = streak
	return nil
}

type fakeSessionsRepo struct {
	byToken   map[string]*models.Session
	createErr error
	findErr   error
	touchErr  error
	touched   int
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{byToken: map[string]*models.Session{}}
}

func (f *fakeSessionsRepo) Create(_ context.Context, s *models.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *s
	f.byToken[s.Token] = &cp
	return nil
}

func (f *fakeSessionsRepo) Find(_ context.Context, token string) (*models.Session, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionsRepo) Touch(_ context.Context, token string, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched++
	if s, ok := f.byToken[token]; ok {
		s.LastUsed = at
	}
	return nil
}

type fakeChallengesRepo struct {
	byUser  map[string]*models.Challenge
	findErr error
	ackErr  error
}

func newFakeChallengesRepo() *fakeChallengesRepo {
	return &fakeChallengesRepo{byUser: map[string]*models.Challenge{}}
}

func (f *fakeChallengesRepo) FindByUser(_ context.Context, userID string) (*models.Challenge, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.byUser[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeChallengesRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	if _, ok := f.byUser[userID]; !ok {
		return 0, nil
	}
	delete(f.byUser, userID)
	return 1, nil
}

func (f *fakeChallengesRepo) Create(_ context.Context, c *models.Challenge) error {
	cp := *c
	f.byUser[c.UserID] = &cp
	return nil
}

func (f *fakeChallengesRepo) Acknowledge(_ context.Context, userID, token string, ch exam.Channel) (bool, error) {
	if f.ackErr != nil {
		return false, f.ackErr
	}
	c, ok := f.byUser[userID]
	if !ok || c.Token != token {
		return false, nil
	}
	switch ch {
	case exam.ChannelFizz:
		c.AckFizz = true
	case exam.ChannelBuzz:
		c.AckBuzz = true
	case exam.ChannelOther:
		c.AckOther = true
	}
	return true, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	s *fakeSessionsRepo
	c *fakeChallengesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), s: newFakeSessionsRepo(), c: newFakeChallengesRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.u }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return m.s }
func (m *fakeRepoManager) Challenges(dbx.DBTX) challenges.Repository    { return m.c }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

// --- helpers ---

// newConn opens an empty SQLite database; the fakes never query it but Tx
// needs a real transaction.
func newConn(t *testing.T) *dbx.Conn {
	t.Helper()
	conn, err := dbx.Open(context.Background(), dbx.DriverSQLite, filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// newMigratedConn opens a SQLite database with the real schema and returns
// the matching repository manager.
func newMigratedConn(t *testing.T) (*dbx.Conn, repomanager.RepositoryManager) {
	t.Helper()
	conn := newConn(t)
	m, err := repomanager.NewSQLRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(context.Background(), conn.DB()))
	return conn, m
}

// plainHasher stores passwords verbatim.
type plainHasher struct {
	hashErr   error
	verifyErr error
}

func (h plainHasher) Hash(pw string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "plain:" + pw, nil
}

func (h plainHasher) Verify(pw, digest string) (bool, error) {
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	return digest == "plain:"+pw, nil
}
