package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/licensegate/internal/cryptox"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/exam"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/licensegate/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t    *testing.T
	srv  *httptest.Server
	conn *dbx.Conn
	rm   repomanager.RepositoryManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	conn, err := dbx.Open(ctx, dbx.DriverSQLite, filepath.Join(t.TempDir(), "rest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	rm, err := repomanager.NewSQLRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, conn.DB()))

	hasher, err := cryptox.NewHasher(cryptox.Params{Memory: 64, Time: 1, Threads: 1})
	require.NoError(t, err)
	welcome, err := services.RenderWelcome("http://localhost:8080")
	require.NoError(t, err)

	log := logging.Nop()
	users := services.NewUserService(conn, rm, hasher, welcome, log)
	sessions := services.NewSessionService(conn, rm, log)
	exams := services.NewExamService(conn, rm, log)

	srv := httptest.NewServer(NewHandler(users, sessions, exams, log, nil))
	t.Cleanup(srv.Close)

	return &testServer{t: t, srv: srv, conn: conn, rm: rm}
}

func (s *testServer) do(method, path, body, token string) (int, string) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(s.t, err)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	res, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(s.t, err)
	return res.StatusCode, string(b)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

var tester = RegisterRequest{Name: "Tester McTester", UserName: "tester", Password: "testtesttest"}

func (s *testServer) registerAndLogin(req RegisterRequest) LoginResponse {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/register", mustJSON(s.t, req), "")
	require.Equal(s.t, http.StatusOK, code, body)

	code, body = s.do(http.MethodPost, "/login", mustJSON(s.t, LoginRequest{UserName: req.UserName, Password: req.Password}), "")
	require.Equal(s.t, http.StatusOK, code, body)

	var lr LoginResponse
	require.NoError(s.t, json.Unmarshal([]byte(body), &lr))
	return lr
}

func (s *testServer) nextInstruction(token string) InstructionResponse {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/next_instruction", "", token)
	require.Equal(s.t, http.StatusOK, code, body)
	var ir InstructionResponse
	require.NoError(s.t, json.Unmarshal([]byte(body), &ir))
	return ir
}

func (s *testServer) setStreak(userName string, streak int) {
	s.t.Helper()
	err := s.conn.Do(context.Background(), func(ctx context.Context, db dbx.DBTX) error {
		a, err := s.rm.Users(db).GetByUserName(ctx, userName)
		if err != nil {
			return err
		}
		return s.rm.Users(db).UpdateExamStreak(ctx, a.ID, streak)
	})
	require.NoError(s.t, err)
}

func ackPath(n uint16) []string {
	want := exam.Expect(n)
	var paths []string
	if want.Fizz {
		paths = append(paths, "/fizz")
	}
	if want.Buzz {
		paths = append(paths, "/buzz")
	}
	if want.Other {
		paths = append(paths, "/instructions")
	}
	return paths
}

func TestUserAuthFlow(t *testing.T) {
	s := newTestServer(t)
	lr := s.registerAndLogin(tester)

	assert.False(t, lr.Licensed)
	assert.NotEmpty(t, lr.IncomingMessage)
	assert.Contains(t, strings.Join(lr.IncomingMessage, "\n"), "http://localhost:8080/next_instruction")

	code, body := s.do(http.MethodGet, "/user", "", lr.Token)
	require.Equal(t, http.StatusOK, code, body)
	var ur UserResponse
	require.NoError(t, json.Unmarshal([]byte(body), &ur))
	assert.Equal(t, "tester", ur.UserName)
	assert.Equal(t, "Tester McTester", ur.Name)
	assert.NotEmpty(t, ur.ID)
	assert.False(t, ur.Licensed)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodPost, "/login", mustJSON(t, LoginRequest{UserName: "tester", Password: "testtesttest"}), "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, MsgInvalidCredentials, body)

	s.registerAndLogin(tester)
	code, body = s.do(http.MethodPost, "/login", mustJSON(t, LoginRequest{UserName: "tester", Password: "wrongpassword"}), "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, MsgInvalidCredentials, body)

	code, _ = s.do(http.MethodPost, "/login", "bad Body", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogin_LicensedAccountHasNoMessage(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(tester)
	s.setStreak("tester", models.LicenseThreshold)

	code, body := s.do(http.MethodPost, "/login", mustJSON(t, LoginRequest{UserName: "tester", Password: "testtesttest"}), "")
	require.Equal(t, http.StatusOK, code, body)
	assert.NotContains(t, body, "incoming_message")
	assert.Contains(t, body, `"licensed":true`)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want string
	}{
		{"short password", RegisterRequest{"Tester McTester", "tester", "testtest"}, services.ShortPasswordProblem},
		{"short username", RegisterRequest{"Tester McTester", "aa", "testtesttest"}, services.ShortUserNameProblem},
		{"long username", RegisterRequest{"Tester McTester", strings.Repeat("a", 1000), "testtesttest"}, services.LongUserNameProblem},
		{"long name", RegisterRequest{strings.Repeat("a", 1000), "testtest", "testtesttest"}, services.LongNameProblem},
		{"short name", RegisterRequest{"a", "testtest", "testtesttest"}, services.ShortNameProblem},
		{"non alphanumeric", RegisterRequest{"Tester McTester", "$$$$", "testtesttest"}, services.NonAlphanumericProblem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			code, body := s.do(http.MethodPost, "/register", mustJSON(t, tt.req), "")
			require.Equal(t, http.StatusBadRequest, code)

			var problems []string
			require.NoError(t, json.Unmarshal([]byte(body), &problems), body)
			assert.Contains(t, problems, tt.want)
		})
	}
}

func TestRegister_AllProblemsReported(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(http.MethodPost, "/register", mustJSON(t, RegisterRequest{"a", "$", "x"}), "")
	require.Equal(t, http.StatusBadRequest, code)

	var problems []string
	require.NoError(t, json.Unmarshal([]byte(body), &problems))
	assert.ElementsMatch(t, []string{
		services.ShortUserNameProblem,
		services.NonAlphanumericProblem,
		services.ShortNameProblem,
		services.ShortPasswordProblem,
	}, problems)
}

func TestRegister_DuplicateAndMalformed(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(tester)

	code, body := s.do(http.MethodPost, "/register", mustJSON(t, tester), "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, services.UserNameTakenProblem)

	code, _ = s.do(http.MethodPost, "/register", "Bad body", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProtectedRoutes_AuthErrors(t *testing.T) {
	s := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/user"},
		{http.MethodPost, "/next_instruction"},
		{http.MethodPost, "/fizz"},
		{http.MethodPost, "/buzz"},
		{http.MethodPost, "/instructions"},
	} {
		code, body := s.do(route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, code, route.path)
		assert.Equal(t, MsgNoAuthHeader, body, route.path)

		code, body = s.do(route.method, route.path, "", "not-a-uuid")
		assert.Equal(t, http.StatusUnauthorized, code, route.path)
		assert.Equal(t, MsgInvalidAuthHeader, body, route.path)

		code, body = s.do(route.method, route.path, "", "6a1f3a3e-2f3c-4d7b-8f8e-9d3c1b2a4e5f")
		assert.Equal(t, http.StatusBadRequest, code, route.path)
		assert.Equal(t, MsgInvalidToken, body, route.path)
	}
}

func TestNextInstruction_Fresh(t *testing.T) {
	s := newTestServer(t)
	lr := s.registerAndLogin(tester)

	ir := s.nextInstruction(lr.Token)
	assert.Zero(t, ir.Streak)
	assert.NotEmpty(t, ir.Token)
}

func TestNextInstruction_WrongAnswerDoesNotIncrement(t *testing.T) {
	s := newTestServer(t)
	lr := s.registerAndLogin(tester)

	ir := s.nextInstruction(lr.Token)
	wrong := "/instructions"
	if exam.Expect(ir.ID).Other {
		wrong = "/fizz"
	}
	code, _ := s.do(http.MethodPost, wrong, mustJSON(t, AckRequest{Token: ir.Token}), lr.Token)
	require.Equal(t, http.StatusOK, code)

	assert.Zero(t, s.nextInstruction(lr.Token).Streak)
}

func TestNextInstruction_CorrectAnswersIncrement(t *testing.T) {
	s := newTestServer(t)
	lr := s.registerAndLogin(tester)

	ir := s.nextInstruction(lr.Token)
	for round := 1; round <= 3; round++ {
		for _, p := range ackPath(ir.ID) {
			code, body := s.do(http.MethodPost, p, mustJSON(t, AckRequest{Token: ir.Token}), lr.Token)
			require.Equal(t, http.StatusOK, code, body)
		}
		ir = s.nextInstruction(lr.Token)
		assert.Equal(t, round, ir.Streak)
	}
}

func TestNextInstruction_Licensing(t *testing.T) {
	s := newTestServer(t)
	lr := s.registerAndLogin(tester)
	s.setStreak("tester", models.LicenseThreshold-1)

	ir := s.nextInstruction(lr.Token)
	require.Equal(t, models.LicenseThreshold-1, ir.Streak)
	for _, p := range ackPath(ir.ID) {
		code, _ := s.do(http.MethodPost, p, mustJSON(t, AckRequest{Token: ir.Token}), lr.Token)
		require.Equal(t, http.StatusOK, code)
	}

	code, body := s.do(http.MethodPost, "/next_instruction", "", lr.Token)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Empty(t, body)

	code, _ = s.do(http.MethodPost, "/next_instruction", "", lr.Token)
	assert.Equal(t, http.StatusNoContent, code)

	code, body = s.do(http.MethodGet, "/user", "", lr.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"licensed":true`)
}

func TestAcknowledge_Responses(t *testing.T) {
	s := newTestServer(t)
	lr := s.registerAndLogin(tester)
	ir := s.nextInstruction(lr.Token)
	body := mustJSON(t, AckRequest{Token: ir.Token})

	code, msg := s.do(http.MethodPost, "/fizz", body, lr.Token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, MsgFizzReceived, msg)

	code, msg = s.do(http.MethodPost, "/buzz", body, lr.Token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, MsgBuzzReceived, msg)

	code, msg = s.do(http.MethodPost, "/instructions", body, lr.Token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, MsgOtherReceived, msg)

	code, _ = s.do(http.MethodPost, "/fizz", "Bad body", lr.Token)
	assert.Equal(t, http.StatusBadRequest, code)

	code, msg = s.do(http.MethodPost, "/fizz", `{"token":"nope"}`, lr.Token)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, MsgMalformedChallenge, msg)

	code, msg = s.do(http.MethodPost, "/fizz", `{"token":"6a1f3a3e-2f3c-4d7b-8f8e-9d3c1b2a4e5f"}`, lr.Token)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, MsgChallengeNotFound, msg)
}

func TestAcknowledge_OtherUsersChallenge(t *testing.T) {
	s := newTestServer(t)
	alice := s.registerAndLogin(RegisterRequest{"Alice Example", "alice", "alicealicealice"})
	bob := s.registerAndLogin(RegisterRequest{"Bob Example", "bob", "bobbobbobbob"})

	ir := s.nextInstruction(alice.Token)
	code, _ := s.do(http.MethodPost, "/fizz", mustJSON(t, AckRequest{Token: ir.Token}), bob.Token)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndFallback(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/register"},
		{http.MethodPost, "/user"},
		{http.MethodPost, "/health"},
		{http.MethodGet, "/health/"},
	} {
		code, body := s.do(route.method, route.path, "", "")
		assert.Equal(t, http.StatusNotFound, code, route.path)
		assert.Equal(t, MsgNotFound, body, route.path)
	}
}

func TestLargeBodyRejected(t *testing.T) {
	s := newTestServer(t)
	big := `{"username":"` + string(bytes.Repeat([]byte("a"), maxBodyBytes)) + `"}`
	code, _ := s.do(http.MethodPost, "/login", big, "")
	assert.Equal(t, http.StatusBadRequest, code)
}
