package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/snapgram/internal/client/store"
	"github.com/dmitrijs2005/snapgram/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Signup prompts for the account fields and hands them to the store. The
// outcome is reported by the store's notifications.
func (a *App) Signup(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	dob, err := getSimpleText(a.reader, "Enter date of birth (YYYY-MM-DD)", a.out)
	if err != nil {
		return err
	}

	a.store.SetForm(store.Form{Email: email, Password: string(password), Username: username, DOB: dob})
	a.store.CreateAccount(ctx)
	return nil
}

// Login prompts for credentials and signs in through the store.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	a.store.SetLogin(email, string(password))
	a.store.HandleSubmit(ctx)
	return nil
}

// Logout marks the user offline and signs out.
func (a *App) Logout(ctx context.Context) error {
	a.store.LogoutUser(ctx)
	return nil
}

// Status prints connectivity, the signed-in user and the last error.
func (a *App) Status(ctx context.Context) error {
	a.mu.Lock()
	mode, user := a.Mode, a.userName
	a.mu.Unlock()

	if mode == "" {
		mode = "unknown"
	}
	if user == "" {
		user = "(signed out)"
	}
	st := a.store.Snapshot()

	fmt.Fprintf(a.out, "backend: %s\nuser: %s\n", mode, user)
	if st.Error != "" {
		fmt.Fprintf(a.out, "last error: %s\n", st.Error)
	}
	return nil
}
