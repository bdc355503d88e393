package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sciencehabits/sciencehabits/internal/client/client"
	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/cryptox"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// ensureProfile guarantees a local user profile exists before tracking
// commands run, prompting a minimal onboarding on first start.
func (a *App) ensureProfile(ctx context.Context) error {
	u, err := a.users.Current(ctx)
	if err == nil {
		a.userName = u.Name
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	fmt.Println("No local profile yet, let's create one.")
	name, err := getSimpleText(a.reader, "Your name", os.Stdout)
	if err != nil {
		return err
	}
	minutes, err := GetInt(a.reader, "Daily minutes for habits (default 20)", 20, os.Stdout)
	if err != nil {
		return err
	}

	u, err = a.users.Create(ctx, &models.User{
		Name:        name,
		Language:    a.config.Language,
		Preferences: models.Preferences{DailyMinutes: minutes},
	})
	if err != nil {
		return err
	}
	a.userName = u.Name
	return nil
}

// Register prompts for credentials and creates a server account.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(password)

	if err := a.auth.Register(ctx, userName, string(password)); err != nil {
		return err
	}

	fmt.Println("Success! Now run 'login'.")
	return nil
}

// Login authenticates online when possible and falls back to offline login
// against locally cached credentials when the server is unreachable.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(password)

	err = a.auth.Login(ctx, userName, string(password))
	if errors.Is(err, client.ErrUnavailable) {
		fmt.Println("Server unavailable, trying offline login...")
		if err := a.auth.LoginOffline(ctx, userName, string(password)); err != nil {
			return err
		}
		fmt.Println("Offline login successful. Changes will sync when the server is back.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("Login successful.")
	return nil
}

// Logout discards the stored session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}
