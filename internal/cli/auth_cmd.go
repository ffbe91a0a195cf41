// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, signup, logout and whoami.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/ui/authform"
)

// restoreTimeout bounds the wait for the persisted session lookup.
const restoreTimeout = 10 * time.Second

// readPassword reads a password without echo. Replaced in tests.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// Credentials is an email/password pair.
type Credentials struct {
	Email    string
	Password string
}

// ReadCredentials collects the email and password. --email skips the email
// prompt. On a terminal the password is read without echo; otherwise both
// come from stdin one per line.
func ReadCredentials(env *Env) (Credentials, error) {
	p := NewArgParser(env.Args.Raw)
	reader := bufio.NewReader(env.Stdin)

	email := strings.TrimSpace(p.Flag("email", "e"))
	if email == "" {
		fmt.Fprint(env.Stdout, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Credentials{}, fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	var password string
	if env.Interactive {
		fmt.Fprint(env.Stdout, "Password: ")
		pw, err := readPassword()
		fmt.Fprintln(env.Stdout)
		if err != nil {
			return Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = string(pw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if hint := authform.Validate(email, password); hint != "" {
		return Credentials{}, NewValidationError("", "", hint)
	}
	return Credentials{Email: email, Password: password}, nil
}

// HandleLogin signs in (or signs up when signup is true).
func HandleLogin(ctx context.Context, env *Env, store *auth.Store, signup bool) error {
	st, err := restore(ctx, store)
	if err != nil {
		return err
	}
	if st.SignedIn() && !signup {
		fmt.Fprintf(env.Stdout, "Already signed in as %s\n", st.Identity.Email)
		return nil
	}

	creds, err := ReadCredentials(env)
	if err != nil {
		return err
	}

	var id auth.Identity
	if signup {
		id, err = store.SignUp(ctx, creds.Email, creds.Password)
	} else {
		id, err = store.SignIn(ctx, creds.Email, creds.Password)
	}
	if err != nil {
		return errors.New(auth.Message(err))
	}
	env.logger().Info("signed in", "email", id.Email)
	fmt.Fprintln(env.Stdout, SuccessStyle.Render("Signed in as "+id.Email))
	return nil
}

// HandleLogout signs out. Unlike the TUI, a failure is reported.
func HandleLogout(ctx context.Context, env *Env, store *auth.Store) error {
	st, err := restore(ctx, store)
	if err != nil {
		return err
	}
	if !st.SignedIn() {
		fmt.Fprintln(env.Stdout, "Not signed in")
		return nil
	}
	if err := store.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out failed: %s", auth.Message(err))
	}
	fmt.Fprintln(env.Stdout, SuccessStyle.Render("Signed out"))
	return nil
}

// HandleWhoami prints the signed-in account.
func HandleWhoami(ctx context.Context, env *Env, store *auth.Store) error {
	st, err := restore(ctx, store)
	if err != nil {
		return err
	}
	data := WhoamiData{SignedIn: st.SignedIn()}
	if st.SignedIn() {
		data.ID, data.Email = st.Identity.ID, st.Identity.Email
	}

	if env.Args.JSON {
		return NewJSONResponse("whoami", data).Write(env.Stdout)
	}
	if !data.SignedIn {
		fmt.Fprintln(env.Stdout, "Not signed in")
		return nil
	}
	fmt.Fprintln(env.Stdout, RenderField("Email", data.Email))
	fmt.Fprintln(env.Stdout, RenderField("User ID", data.ID))
	return nil
}

func restore(ctx context.Context, store *auth.Store) (auth.State, error) {
	ctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()
	return waitResolved(ctx, store)
}
