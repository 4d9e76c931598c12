package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Token   string
	Success bool
}

type InitializePasswordResetHandler struct {
	sessions Sessions
	mail     *EmailService
	logger   Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(sessions Sessions, mail *EmailService) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		sessions: sessions,
		mail:     mail,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	token, err := h.sessions.GenerateResetPasswordToken(ctx, event.Email)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if h.mail != nil {
		go func() {
			mailCtx, mailCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer mailCancel()

			if err := h.mail.SendResetPasswordEmail(mailCtx, event.Email, token); err != nil {
				h.logger.Error("password reset email delivery failed", "error", err)
			}
		}()
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			Token:   token,
			Success: true,
		})
	}

	return nil
}
