package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	loginErr error

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Signup(ctx context.Context) error {
	f.calls = append(f.calls, "signup")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error {
	f.calls = append(f.calls, "status")
	return nil
}

func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			parts = append(parts, strings.TrimSpace(strings.ReplaceAll(fmtAny(v), "\n", " ")))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func fmtAny(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	default:
		return ""
	}
}

func TestRunREPL_Commands(t *testing.T) {
	out := capturePrint(t)

	input := strings.Join([]string{
		"help",
		"signup",
		"login",
		"help",
		"",
		"status",
		"logout",
		"foobar",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(online)" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"signup", "login", "status", "logout"}, exec.calls)
	assert.Contains(t, *out, "Available commands: signup, login, status, exit")
	assert.Contains(t, *out, "Available commands: status, logout, exit")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "snapgram (online)>")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_ErrorIsPrintedAndLoopContinues(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{loginErr: errors.New("EOF")}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("login\nstatus\nquit\n")))

	assert.Equal(t, []string{"login", "status"}, exec.calls)
	assert.Contains(t, *out, "error: EOF")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	capturePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("status")))

	// last line without newline still runs
	assert.Equal(t, []string{"status"}, exec.calls)
}
