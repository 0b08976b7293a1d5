package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
)

var ErrMissingCredentials = errors.New("auth response is missing user id or access token")

// CompleteAuth stores the identity carried by a successful login or signup
// response.
func (a *App) CompleteAuth(res tiffin.Result) error {
	var auth model.AuthResponse
	if err := res.Decode(&auth); err != nil {
		return err
	}
	if auth.User == nil || auth.User.ID == "" || auth.AccessToken == "" {
		return ErrMissingCredentials
	}
	if err := a.Session.SaveUser(*auth.User, auth.AccessToken); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Login authenticates and writes the session. Callers that must keep the
// session write on their own goroutine use Authenticate and FinishAuth.
func (a *App) Login(ctx context.Context, email, password string) tiffin.Result {
	res := a.Authenticate(ctx, email, password)
	if !res.OK() {
		return res
	}
	return a.FinishAuth(res)
}

// Authenticate validates the credentials and calls the login endpoint. It
// never touches the session.
func (a *App) Authenticate(ctx context.Context, email, password string) tiffin.Result {
	req := model.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if msgs := model.Check(req); len(msgs) > 0 {
		return tiffin.Failed(tiffin.KindValidation, msgs...)
	}
	return a.Gateway.Login(ctx, req.Email, req.Password)
}

// Signup registers the account and writes the session.
func (a *App) Signup(ctx context.Context, name, email, password string) tiffin.Result {
	res := a.Register(ctx, name, email, password)
	if !res.OK() {
		return res
	}
	return a.FinishAuth(res)
}

// Register creates the account and returns a response carrying the user and
// token. The backend answers signup with a message only, so when no token
// comes back the same credentials are used to log in. The session is left
// alone.
func (a *App) Register(ctx context.Context, name, email, password string) tiffin.Result {
	req := model.SignupRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if msgs := model.Check(req); len(msgs) > 0 {
		return tiffin.Failed(tiffin.KindValidation, msgs...)
	}

	res := a.Gateway.Signup(ctx, req.Name, req.Email, req.Password)
	if !res.OK() {
		return res
	}

	var auth model.AuthResponse
	if err := res.Decode(&auth); err == nil && auth.AccessToken != "" && auth.User != nil {
		return res
	}

	a.Logger.Debug("Signup returned no token, logging in", "email", req.Email)
	return a.Gateway.Login(ctx, req.Email, req.Password)
}

// FinishAuth writes the session from a successful Authenticate or Register
// result and reports a failure when the response cannot be stored.
func (a *App) FinishAuth(res tiffin.Result) tiffin.Result {
	err := a.CompleteAuth(res)
	switch {
	case err == nil:
		return res
	case errors.Is(err, ErrMissingCredentials):
		a.Logger.Error("Failed to complete login", "error", err)
		return tiffin.Failed(tiffin.KindDomain, "Login response did not include a user and token")
	case a.Session.IsLoggedIn():
		// The session file could not be written; this run stays logged in.
		a.Logger.Warn("Session not persisted", "error", err)
		return res
	default:
		a.Logger.Error("Failed to complete login", "error", err)
		return tiffin.Failed(tiffin.KindDomain, err.Error())
	}
}

func (a *App) Logout() error {
	return a.Session.Clear()
}
