package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/diagnosis/roomstay/internal/client"
	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/utils"
	"github.com/diagnosis/roomstay/pkg/logger"
)

// AuthFlow backs the login and register forms. Problems with the input or a
// rejected credential are kept as an inline form error, not a dialog.
type AuthFlow struct {
	api     AuthAPI
	session SessionState
	prompt  Prompt
	nav     Navigator

	mu      sync.Mutex
	formErr string
}

func newAuthFlow(d Deps) *AuthFlow {
	return &AuthFlow{
		api:     d.Auth,
		session: d.Session,
		prompt:  d.Prompt,
		nav:     d.Navigator,
	}
}

func (f *AuthFlow) Login(ctx context.Context, req domain.LoginRequest) error {
	ctx = logger.WithFlow(ctx, "auth")
	req.Email = utils.NormalizeEmail(req.Email)

	if err := domain.Validate(req); err != nil {
		f.setFormError(formMessage(err, "Login failed"))
		return err
	}

	res, err := f.api.Login(ctx, req)
	if err != nil {
		logger.WarnContext(ctx, "Login failed", "email", req.Email, "error", err)
		f.setFormError(formMessage(err, "Login failed"))
		return err
	}

	if err := f.session.Set(ctx, res.Token, res.User); err != nil {
		logger.ErrorContext(ctx, "Failed to persist session", "error", err)
		f.setFormError("Login failed")
		return err
	}

	f.setFormError("")
	logger.InfoContext(ctx, "User logged in", "user_id", res.User.ID.String())
	f.nav.Navigate(ScreenHome)
	return nil
}

func (f *AuthFlow) Register(ctx context.Context, req domain.RegisterRequest) error {
	ctx = logger.WithFlow(ctx, "auth")
	req.Email = utils.NormalizeEmail(req.Email)
	req.Name = utils.NormalizeString(req.Name)

	if err := domain.Validate(req); err != nil {
		f.setFormError(formMessage(err, "Registration failed"))
		return err
	}

	user, err := f.api.Register(ctx, req)
	if err != nil {
		logger.WarnContext(ctx, "Registration failed", "email", req.Email, "error", err)
		f.setFormError(formMessage(err, "Registration failed"))
		return err
	}

	f.setFormError("")
	logger.InfoContext(ctx, "User registered", "user_id", user.ID.String())
	if f.prompt != nil {
		f.prompt.Notify(ctx, "Registration successful, please log in")
	}
	f.nav.Navigate(ScreenLogin)
	return nil
}

func (f *AuthFlow) Logout(ctx context.Context) error {
	if err := f.session.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to clear session", "error", err)
		return err
	}
	f.nav.Navigate(ScreenLogin)
	return nil
}

func (f *AuthFlow) FormError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.formErr
}

func (f *AuthFlow) setFormError(msg string) {
	f.mu.Lock()
	f.formErr = msg
	f.mu.Unlock()
}

func formMessage(err error, fallback string) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var lerr *client.LogicalError
	if errors.As(err, &lerr) && lerr.Message != "" {
		return lerr.Message
	}
	return fallback
}
