package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// BaseConfig is the application configuration tree. Values load from
// config files and environment overrides through go-config.
type BaseConfig struct {
	Server      Server      `json:"server" koanf:"server"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	Mailer      Mailer      `json:"mailer" koanf:"mailer"`
}

func (c *BaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Auth),
		validation.Field(&c.Persistence),
	)
}

func (c *BaseConfig) GetServer() Server {
	return c.Server
}

func (c *BaseConfig) GetAuth() Auth {
	return c.Auth
}

func (c *BaseConfig) GetPersistence() Persistence {
	return c.Persistence
}

func (c *BaseConfig) GetMailer() Mailer {
	return c.Mailer
}

type Server struct {
	Addr       string `json:"addr" koanf:"addr"`
	BaseURL    string `json:"base_url" koanf:"base_url"`
	Production bool   `json:"production" koanf:"production"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8080"
	}
	return s.Addr
}

func (s Server) GetBaseURL() string {
	if s.BaseURL == "" {
		return "http://localhost:8080/v1/auth"
	}
	return s.BaseURL
}

func (s Server) GetProduction() bool {
	return s.Production
}

// Auth satisfies the auth package Config interface
type Auth struct {
	SigningKey             string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod          string   `json:"signing_method" koanf:"signing_method"`
	ContextKey             string   `json:"context_key" koanf:"context_key"`
	TokenLookup            string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme             string   `json:"auth_scheme" koanf:"auth_scheme"`
	Issuer                 string   `json:"issuer" koanf:"issuer"`
	Audience               []string `json:"audience" koanf:"audience"`
	AccessTokenExpiration  int      `json:"access_token_expiration" koanf:"access_token_expiration"`   // minutes
	RefreshTokenExpiration int      `json:"refresh_token_expiration" koanf:"refresh_token_expiration"` // days
	ResetTokenExpiration   int      `json:"reset_token_expiration" koanf:"reset_token_expiration"`     // minutes
	VerifyTokenExpiration  int      `json:"verify_token_expiration" koanf:"verify_token_expiration"`   // minutes
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
	)
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "user"
	}
	return a.ContextKey
}

func (a Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "header:Authorization"
	}
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	return a.Audience
}

func (a Auth) GetAccessTokenExpiration() int {
	return a.AccessTokenExpiration
}

func (a Auth) GetRefreshTokenExpiration() int {
	return a.RefreshTokenExpiration
}

func (a Auth) GetResetTokenExpiration() int {
	return a.ResetTokenExpiration
}

func (a Auth) GetVerifyTokenExpiration() int {
	return a.VerifyTokenExpiration
}

type Persistence struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DSN, validation.Required),
	)
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

type Mailer struct {
	Enabled  bool   `json:"enabled" koanf:"enabled"`
	Addr     string `json:"addr" koanf:"addr"`
	From     string `json:"from" koanf:"from"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
}

func (m Mailer) GetEnabled() bool {
	return m.Enabled
}

func (m Mailer) GetAddr() string {
	return m.Addr
}

func (m Mailer) GetFrom() string {
	if m.From == "" {
		return "no-reply@localhost"
	}
	return m.From
}

func (m Mailer) GetUsername() string {
	return m.Username
}

func (m Mailer) GetPassword() string {
	return m.Password
}
