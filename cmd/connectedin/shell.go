package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/johnrichard23/connectedin/internal/bootstrap"
	"github.com/johnrichard23/connectedin/internal/domain/session"
	"github.com/johnrichard23/connectedin/internal/service"
)

// errQuit ends the read loop without an error.
var errQuit = errors.New("quit")

type shellCommandFn func(ctx context.Context, sh *shell, args []string) error

type shellCommand struct {
	usage       string
	description string
	args        int
	run         shellCommandFn
}

type shellOptions struct {
	Core   *bootstrap.SessionCore
	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

// shell is a line-oriented front end over the session core. Each command maps to
// one coordinator intent. Screens are rendered from the store's change stream,
// so a transition is shown whether or not a command caused it.
type shell struct {
	store  *service.StateStore
	coord  *service.AuthCoordinator
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

func newShell(opts shellOptions) *shell {
	if opts.Core == nil {
		panic("session core is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &shell{
		store:  opts.Core.Store,
		coord:  opts.Core.Coordinator,
		in:     opts.In,
		out:    opts.Out,
		logger: logger.With("component", "shell"),
	}
}

func shellCommands() map[string]shellCommand {
	return map[string]shellCommand{
		"help": {
			usage:       "help",
			description: "List commands",
			run:         func(_ context.Context, sh *shell, _ []string) error { return sh.printHelp() },
		},
		"status": {
			usage:       "status",
			description: "Show the current screen and cached profile",
			run:         func(_ context.Context, sh *shell, _ []string) error { return sh.printProfile() },
		},
		"onboard-done": {
			usage:       "onboard-done",
			description: "Finish onboarding and show the login form",
			run: func(ctx context.Context, sh *shell, _ []string) error {
				sh.coord.CompleteOnboarding(ctx)
				return nil
			},
		},
		"login": {
			usage:       "login",
			description: "Show the login form",
			run: func(_ context.Context, sh *shell, _ []string) error {
				sh.coord.ShowLogin()
				return nil
			},
		},
		"signin": {
			usage:       "signin <username> <password>",
			description: "Sign in with credentials",
			args:        2,
			run: func(ctx context.Context, sh *shell, args []string) error {
				sh.coord.SignIn(ctx, args[0], args[1])
				return nil
			},
		},
		"mfa": {
			usage:       "mfa <code>",
			description: "Answer a multi-factor challenge",
			args:        1,
			run: func(ctx context.Context, sh *shell, args []string) error {
				sh.coord.ConfirmMFACode(ctx, args[0])
				return nil
			},
		},
		"new-password": {
			usage:       "new-password <password> <confirm>",
			description: "Set the new password a sign-in challenge asked for",
			args:        2,
			run: func(ctx context.Context, sh *shell, args []string) error {
				sh.coord.SetNewPassword(ctx, args[0], args[1])
				return nil
			},
		},
		"forgot": {
			usage:       "forgot",
			description: "Show the forgot password form",
			run: func(_ context.Context, sh *shell, _ []string) error {
				sh.coord.ShowForgotPassword()
				return nil
			},
		},
		"reset": {
			usage:       "reset <username>",
			description: "Request a password reset code",
			args:        1,
			run: func(ctx context.Context, sh *shell, args []string) error {
				sh.coord.ResetPassword(ctx, args[0])
				return nil
			},
		},
		"reset-confirm": {
			usage:       "reset-confirm <new-password>",
			description: "Answer the pending sign-in challenge with a new password",
			args:        1,
			run: func(ctx context.Context, sh *shell, args []string) error {
				sh.coord.ConfirmPasswordReset(ctx, args[0])
				return nil
			},
		},
		"signout": {
			usage:       "signout",
			description: "Sign out and return to the login form",
			run: func(ctx context.Context, sh *shell, _ []string) error {
				sh.coord.SignOut(ctx)
				return nil
			},
		},
		"quit": {
			usage:       "quit",
			description: "Exit",
			run:         func(context.Context, *shell, []string) error { return errQuit },
		},
	}
}

// changeBuffer bounds the state changes queued between renders.
const changeBuffer = 16

// Run restores the previous session and then executes commands until EOF,
// quit, or ctx is done.
func (sh *shell) Run(ctx context.Context) error {
	changes, unsubscribe := sh.store.Subscribe(changeBuffer)
	defer unsubscribe()

	sh.coord.Restore(ctx)
	if err := sh.flush(ctx, changes, nil, true); err != nil {
		return err
	}

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go sh.readLines(done, lines)

	for {
		if err := writef(sh.out, "> "); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				// store closed; keep serving input without live updates
				changes = nil
				continue
			}
			if err := sh.flush(ctx, changes, []service.Change{c}, false); err != nil {
				return err
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := sh.execute(ctx, line, changes)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

func (sh *shell) readLines(done <-chan struct{}, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(sh.in)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		sh.logger.Warn("read input failed", "error", err)
	}
}

func (sh *shell) execute(ctx context.Context, line string, changes <-chan service.Change) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	if name == "exit" {
		name = "quit"
	}

	cmd, ok := shellCommands()[name]
	if !ok {
		return writef(sh.out, "unknown command %q; type help\n", fields[0])
	}
	args := fields[1:]
	if len(args) != cmd.args {
		return writef(sh.out, "usage: %s\n", cmd.usage)
	}
	if err := cmd.run(ctx, sh, args); err != nil {
		return err
	}
	// Coordinator intents return after their transitions are published.
	return sh.flush(ctx, changes, nil, false)
}

// flush renders pending, then every change still queued, then the notice and
// the hints for the screen the user ends on. When nothing changed the current
// screen is shown only if force is set or a notice is waiting.
func (sh *shell) flush(ctx context.Context, changes <-chan service.Change, pending []service.Change, force bool) error {
	pending = drain(changes, pending)
	notice := sh.coord.Notice()

	final := sh.store.CurrentState()
	if len(pending) == 0 {
		if !force && notice == nil {
			return nil
		}
		if err := sh.renderScreen(final); err != nil {
			return err
		}
	}
	for _, c := range pending {
		sh.logger.DebugContext(ctx, "session state changed", "from", c.From.String(), "to", c.To.String())
		if err := sh.renderScreen(c.To); err != nil {
			return err
		}
		final = c.To
	}

	if notice != nil {
		if err := writef(sh.out, "%s: %s\n", notice.Level, notice.Message); err != nil {
			return err
		}
		sh.coord.ClearError()
	}
	if hint, ok := screenHints[final.Kind()]; ok {
		return writef(sh.out, "  %s\n", hint)
	}
	return nil
}

// drain appends every change already queued on ch without blocking.
func drain(ch <-chan service.Change, pending []service.Change) []service.Change {
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return pending
			}
			pending = append(pending, c)
		default:
			return pending
		}
	}
}

var screenHints = map[session.Kind]string{
	session.KindLanding:        "login | onboard-done",
	session.KindOnboarding:     "onboard-done",
	session.KindLogin:          "signin <username> <password> | forgot",
	session.KindForgotPassword: "reset <username> | login",
	session.KindResetPassword:  "reset-confirm <new-password> | new-password <password> <confirm> | login",
	session.KindConfirmCode:    "reset-confirm <new-password> | login",
	session.KindConfirmMFACode: "mfa <code> | login",
	session.KindAuthenticated:  "status | signout",
}

// renderScreen prints the header line for state.
func (sh *shell) renderScreen(state session.State) error {
	if err := writef(sh.out, "[%s]", state.Kind()); err != nil {
		return err
	}
	switch state.Kind() {
	case session.KindConfirmCode:
		if err := writef(sh.out, " code sent to %s", state.Username()); err != nil {
			return err
		}
	case session.KindAuthenticated:
		user, _ := state.User()
		if err := writef(sh.out, " signed in as %s", user.Username); err != nil {
			return err
		}
		if p := sh.store.CurrentProfile(); p != nil {
			if err := writef(sh.out, " (%s experience)", p.Experience()); err != nil {
				return err
			}
		}
	}
	return writeln(sh.out)
}

func (sh *shell) printProfile() error {
	state := sh.store.CurrentState()
	if err := writef(sh.out, "screen: %s\n", state); err != nil {
		return err
	}
	p := sh.store.CurrentProfile()
	if p == nil {
		return writeln(sh.out, "profile: none")
	}
	role := "-"
	if p.Role != nil {
		role = p.Role.RoleName
	}
	return writef(sh.out, "profile: id=%d email=%s role=%s experience=%s\n", p.LocalID, p.Email, role, p.Experience())
}

func (sh *shell) printHelp() error {
	cmds := shellCommands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(sh.out, "  %-36s %s\n", cmds[name].usage, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
