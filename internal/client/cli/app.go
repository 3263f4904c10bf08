// Package cli implements the licensegate operator command line.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/licensegate/internal/client/client"
	"github.com/dmitrijs2005/licensegate/internal/client/config"
	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/server/rest"
)

var ErrUsage = errors.New("usage")

const usage = `Usage: licensegate-cli [flags] <command> [args]

Commands:
  register                                 create an account
  login                                    log in and print a session token
  whoami <token>                           show the account behind a token
  next <token>                             request the next exam instruction
  answer <token> <fizz|buzz|other> <id>    acknowledge an instruction
  rpc-user <token>                         resolve a token over RPC
  health                                   check the HTTP surface`

// HTTPService is the part of client.HTTPClient the CLI uses.
type HTTPService interface {
	Register(ctx context.Context, name, userName string, password []byte) error
	Login(ctx context.Context, userName string, password []byte) (*rest.LoginResponse, error)
	User(ctx context.Context, token string) (*rest.UserResponse, error)
	NextInstruction(ctx context.Context, token string) (*client.Instruction, error)
	Acknowledge(ctx context.Context, token, channel, challengeToken string) (string, error)
	Health(ctx context.Context) error
}

// RPCService is the part of client.RPCClient the CLI uses.
type RPCService interface {
	GetUser(ctx context.Context, token string) (*client.UserView, error)
	Close() error
}

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

type App struct {
	config *config.Config
	http   HTTPService
	newRPC func() (RPCService, error)
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		http:   client.NewHTTPClient(c.ServerURL, c.Timeout),
		newRPC: func() (RPCService, error) {
			return client.NewRPCClient(c.GRPCAddr, c.ServiceName, c.ServiceSecret, c.ServiceTokenValidity)
		},
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run executes one command. ErrUsage is returned, after printing the usage
// text, when the command or its arguments are wrong.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage()
	}

	cmd, params := args[0], args[1:]
	switch {
	case cmd == "register" && len(params) == 0:
		return a.Register(ctx)
	case cmd == "login" && len(params) == 0:
		return a.Login(ctx)
	case cmd == "whoami" && len(params) == 1:
		return a.WhoAmI(ctx, params[0])
	case cmd == "next" && len(params) == 1:
		return a.Next(ctx, params[0])
	case cmd == "answer" && len(params) == 3:
		return a.Answer(ctx, params[0], params[1], params[2])
	case cmd == "rpc-user" && len(params) == 1:
		return a.RPCUser(ctx, params[0])
	case cmd == "health" && len(params) == 0:
		return a.Health(ctx)
	case cmd == "help":
		fmt.Fprintln(a.out, usage)
		return nil
	}
	return a.usage()
}

func (a *App) usage() error {
	fmt.Fprintln(a.out, usage)
	return ErrUsage
}

// Register prompts for a display name, a username and a password and
// creates the account. Every validation problem is printed.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		return err
	}
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.http.Register(ctx, name, userName, password); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && len(apiErr.Problems) > 0 {
			for _, p := range apiErr.Problems {
				fmt.Fprintln(a.out, "  -", p)
			}
		}
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for credentials and prints the session token, the
// licensing state and any message the server attached.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	resp, err := a.http.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "token: %s\nlicensed: %t\n", resp.Token, resp.Licensed)
	if len(resp.IncomingMessage) > 0 {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, strings.Join(resp.IncomingMessage, "\n"))
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context, token string) error {
	u, err := a.http.User(ctx, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id: %s\nname: %s\nusername: %s\nlicensed: %t\n", u.ID, u.Name, u.UserName, u.Licensed)
	return nil
}

func (a *App) Next(ctx context.Context, token string) error {
	in, err := a.http.NextInstruction(ctx, token)
	if err != nil {
		return err
	}
	if in.Done {
		fmt.Fprintln(a.out, "already licensed")
		return nil
	}
	fmt.Fprintf(a.out, "instruction: %d\ntoken: %s\nstreak: %d\n", in.ID, in.Token, in.Streak)
	return nil
}

func (a *App) Answer(ctx context.Context, token, channel, challengeToken string) error {
	text, err := a.http.Acknowledge(ctx, token, channel, challengeToken)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, text)
	return nil
}

func (a *App) RPCUser(ctx context.Context, token string) error {
	rpc, err := a.newRPC()
	if err != nil {
		return err
	}
	defer rpc.Close()

	u, err := rpc.GetUser(ctx, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id: %s\nname: %s\nusername: %s\nlicensed: %t\nrefreshed_token: %s\n",
		u.ID, u.Name, u.UserName, u.Licensed, u.RefreshedToken)
	return nil
}

func (a *App) Health(ctx context.Context) error {
	if err := a.http.Health(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}
