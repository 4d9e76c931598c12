package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type AccountVerificationRequestMessage struct {
	UserID     string `json:"user_id" doc:"Account to verify"`
	OnResponse func(resp *AccountVerificationRequestResponse)
}

func (p AccountVerificationRequestMessage) Type() string { return "user.verification_request" }

type AccountVerificationRequestResponse struct {
	Token   string
	Success bool
}

type AccountVerificationRequestHandler struct {
	repo     RepositoryManager
	sessions Sessions
	mail     *EmailService
	logger   Logger
}

// NewAccountVerificationRequestHandler creates a handler with sane defaults.
func NewAccountVerificationRequestHandler(repo RepositoryManager, sessions Sessions, mail *EmailService) *AccountVerificationRequestHandler {
	return &AccountVerificationRequestHandler{
		repo:     repo,
		sessions: sessions,
		mail:     mail,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *AccountVerificationRequestHandler) WithLogger(logger Logger) *AccountVerificationRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *AccountVerificationRequestHandler) Execute(ctx context.Context, event AccountVerificationRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AccountVerificationRequestHandler) execute(ctx context.Context, event AccountVerificationRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByID(ctx, event.UserID)
	if err != nil {
		return ErrUserNotFound
	}

	token, err := h.sessions.GenerateVerifyEmailToken(ctx, user)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification token")
	}

	if h.mail != nil {
		go func() {
			mailCtx, mailCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer mailCancel()

			if err := h.mail.SendVerificationEmail(mailCtx, user.Email, token); err != nil {
				h.logger.Error("verification email delivery failed", "error", err)
			}
		}()
	}

	if event.OnResponse != nil {
		event.OnResponse(&AccountVerificationRequestResponse{
			Token:   token,
			Success: true,
		})
	}

	return nil
}
