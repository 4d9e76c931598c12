package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RouteGuard builds an authentication middleware that also enforces the
// given rights. Called with no rights it only requires a valid token.
type RouteGuard func(rights ...string) router.MiddlewareFunc

// HTTPController exposes the auth and user operations as a JSON API
type HTTPController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auth         Sessions
	Mail         *EmailService
	ErrorHandler func(c router.Context, err error) error
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func NewHTTPController(opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = NewHTTPErrorHandler(c.Logger, false)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auth == nil {
		panic("Missing Sessions in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Repo = repo
		return c
	}
}

func WithControllerSessions(sessions Sessions) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Auth = sessions
		return c
	}
}

func WithControllerMailer(mail *EmailService) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Mail = mail
		return c
	}
}

func WithControllerErrorHandler(handler func(c router.Context, err error) error) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.ErrorHandler = handler
		return c
	}
}

// RegisterRoutes wires the auth and user endpoints into the given group.
// The guard protects routes that need authentication; rights passed to it
// are enforced against the caller's role.
func (a *HTTPController) RegisterRoutes(group RouteRegistrar, guard RouteGuard) {
	group.Post("/auth/register", a.Register).SetName("auth.register")
	group.Post("/auth/login", a.Login).SetName("auth.login")
	group.Post("/auth/logout", a.Logout).SetName("auth.logout")
	group.Post("/auth/refresh-tokens", a.RefreshTokens).SetName("auth.refresh")
	group.Post("/auth/forgot-password", a.ForgotPassword).SetName("auth.forgot-password")
	group.Post("/auth/reset-password", a.ResetPassword).SetName("auth.reset-password")
	group.Post("/auth/send-verification-email", a.SendVerificationEmail, guard()).
		SetName("auth.send-verification-email")
	group.Post("/auth/verify-email", a.VerifyEmail).SetName("auth.verify-email")

	group.Post("/users", a.CreateUser, guard(RightManageUsers)).SetName("users.create")
	group.Get("/users", a.ListUsers, guard(RightGetUsers)).SetName("users.list")
	group.Get("/users/:userId", a.GetUser, guard(RightGetUsers)).SetName("users.get")
	group.Patch("/users/:userId", a.UpdateUser, guard(RightManageUsers)).SetName("users.update")
	group.Delete("/users/:userId", a.DeleteUser, guard(RightManageUsers)).SetName("users.delete")
}

// RegisterPayload is the self-service sign up body
type RegisterPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone_number" json:"phone_number"`
	Password string `form:"password" json:"password"`
}

func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100),
			validation.By(ValidatePasswordStrength)),
	)
}

func (a *HTTPController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("register payload %s", print.MaybePrettyJSON(payload))
	}

	var user *User
	register := NewRegisterUserHandler(a.Repo)
	err := register.Execute(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		a.Logger.Error("register execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	tokens, err := a.Auth.IssueAuthTokens(ctx.Context(), user)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

// LoginPayload is the credential body for login
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *HTTPController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, tokens, err := a.Auth.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

// RefreshTokenPayload carries a refresh token in the body
type RefreshTokenPayload struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

func (r RefreshTokenPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *HTTPController) Logout(ctx router.Context) error {
	payload := new(RefreshTokenPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Auth.Logout(ctx.Context(), payload.RefreshToken); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (a *HTTPController) RefreshTokens(ctx router.Context) error {
	payload := new(RefreshTokenPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	tokens, err := a.Auth.RefreshAuth(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, tokens)
}

// ForgotPasswordPayload identifies the account to reset
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *HTTPController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	initReset := NewInitializePasswordResetHandler(a.Auth, a.Mail).WithLogger(a.Logger)
	err := initReset.Execute(ctx.Context(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// NewPasswordPayload carries the replacement password
type NewPasswordPayload struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

func (r NewPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100),
			validation.By(ValidatePasswordStrength)),
	)
}

func (a *HTTPController) ResetPassword(ctx router.Context) error {
	payload := new(NewPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	token := ctx.Query("token", payload.Token)
	if token == "" {
		return a.ErrorHandler(ctx, ErrPasswordResetFailed)
	}

	finalize := NewFinalizePasswordResetHandler(a.Auth).WithLogger(a.Logger)
	err := finalize.Execute(ctx.Context(), FinalizePasswordResetMessage{
		Token:    token,
		Password: payload.Password,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (a *HTTPController) SendVerificationEmail(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return a.ErrorHandler(ctx, ErrNotAuthenticated)
	}

	verify := NewAccountVerificationRequestHandler(a.Repo, a.Auth, a.Mail).WithLogger(a.Logger)
	err := verify.Execute(ctx.Context(), AccountVerificationRequestMessage{
		UserID: claims.UserID(),
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (a *HTTPController) VerifyEmail(ctx router.Context) error {
	payload := new(NewPasswordPayload)
	// token may arrive as a query param or in the body
	_ = ctx.Bind(payload)

	token := ctx.Query("token", payload.Token)
	if token == "" {
		return a.ErrorHandler(ctx, ErrEmailVerifyFailed)
	}

	if err := a.Auth.VerifyEmail(ctx.Context(), token); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// CreateUserPayload is the admin user creation body
type CreateUserPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone_number" json:"phone_number"`
	Role     string `form:"role" json:"role"`
	Password string `form:"password" json:"password"`
}

func (r CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber)),
		validation.Field(&r.Role, validation.Required, validation.By(ValidRole)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100),
			validation.By(ValidatePasswordStrength)),
	)
}

func (a *HTTPController) CreateUser(ctx router.Context) error {
	payload := new(CreateUserPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	var user *User
	register := NewRegisterUserHandler(a.Repo)
	err := register.Execute(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Role:     payload.Role,
		Password: payload.Password,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, user)
}

func (a *HTTPController) ListUsers(ctx router.Context) error {
	opts := ListUsersOptions{
		Page:    ctx.QueryInt("page", 1),
		Limit:   ctx.QueryInt("limit", 10),
		SortBy:  ctx.Query("sortBy", ""),
		SortDir: ctx.Query("sortDir", "asc"),
		Role:    ctx.Query("role", ""),
		Name:    ctx.Query("name", ""),
	}

	records, total, err := a.Repo.Users().List(ctx.Context(), opts)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	totalPages := total / opts.Limit
	if total%opts.Limit > 0 {
		totalPages++
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"results":      records,
		"page":         opts.Page,
		"limit":        opts.Limit,
		"totalPages":   totalPages,
		"totalResults": total,
	})
}

func (a *HTTPController) GetUser(ctx router.Context) error {
	user, err := a.Repo.Users().GetByID(ctx.Context(), ctx.Param("userId", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUserNotFound)
	}

	return ctx.JSON(http.StatusOK, user)
}

// UpdateUserPayload carries optional field updates
type UpdateUserPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone_number" json:"phone_number"`
	Password string `form:"password" json:"password"`
}

func (r UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber)),
		validation.Field(&r.Password, validation.Length(8, 100),
			validation.By(ValidatePasswordStrength)),
	)
}

func (a *HTTPController) UpdateUser(ctx router.Context) error {
	payload := new(UpdateUserPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), ctx.Param("userId", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUserNotFound)
	}

	if payload.Email != "" && !strings.EqualFold(payload.Email, user.Email) {
		if _, err := a.Repo.Users().GetByEmail(ctx.Context(), payload.Email); err == nil {
			return a.ErrorHandler(ctx, ErrEmailTaken)
		}
		user.Email = payload.Email
	}

	if payload.Name != "" {
		user.Name = payload.Name
	}

	if payload.Phone != "" {
		user.Phone = payload.Phone
	}

	if payload.Password != "" {
		hash, err := HashPassword(payload.Password)
		if err != nil {
			return a.ErrorHandler(ctx, err)
		}
		user.PasswordHash = hash
	}

	now := time.Now()
	user.UpdatedAt = &now

	updated, err := a.Repo.Users().Update(ctx.Context(), user)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, updated)
}

func (a *HTTPController) DeleteUser(ctx router.Context) error {
	user, err := a.Repo.Users().GetByID(ctx.Context(), ctx.Param("userId", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUserNotFound)
	}

	if err := a.Repo.Users().DeleteByID(ctx.Context(), user.ID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ValidPhoneNumber accepts E.164 formatted phone numbers, empty values pass
func ValidPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(s, "")
	if err != nil {
		return errors.New("must be a valid phone number")
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return errors.New("must be a valid phone number")
	}

	return nil
}

// ValidRole accepts only known role names
func ValidRole(value any) error {
	s, _ := value.(string)
	if !IsValidRole(s) {
		return fmt.Errorf("must be one of: %s", strings.Join(AllRoles(), ", "))
	}
	return nil
}

// ValidatePasswordStrength requires at least one letter and one digit
func ValidatePasswordStrength(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return errors.New("must contain at least one letter and one number")
	}

	return nil
}

// ValidateStringEquals matches the value against a fixed string
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for name, ferr := range fieldErrs {
			out[name] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
