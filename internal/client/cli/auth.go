package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/foodie/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.ctrl.SignUp(ctx, email, string(password), name)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return errors.New("an account with this email already exists")
		}
		return err
	}

	a.printf("Welcome, %s! Your account is ready (%s).\n", s.User.DisplayName, s.User.AuthMode)
	return nil
}

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

	s, err := a.ctrl.SignIn(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return errors.New("invalid email or password")
		}
		return err
	}

	syncState := "local only"
	if s.Sub.Syncing() {
		syncState = "syncing"
	}
	a.printf("Welcome back, %s (%s).\n", s.User.DisplayName, syncState)
	return nil
}

func (a *App) Guest(ctx context.Context) error {
	if _, err := a.ctrl.Guest(ctx); err != nil {
		return err
	}
	a.println("Guest session started. Nothing you do here is synced.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.ctrl.SignOut(ctx); err != nil {
		return err
	}
	a.println("Logged out.")
	return nil
}
