// Package auth implements a user authentication backend: registration,
// login/logout, refresh token rotation, password reset, and email
// verification over a relational user/token store.
//
// Token lifecycle:
//   - Access tokens are short-lived, stateless JWTs. They are never persisted
//     and cannot be revoked before their natural expiry.
//   - Refresh, reset-password, and verify-email tokens are persisted through
//     the Tokens repository so they can be looked up, consumed, and purged.
//     Refresh tokens are single-use: RefreshAuth consumes the stored record
//     before issuing a replacement pair, so a rotated token replayed later
//     always fails.
//
// Roles:
//   - Users carry a closed role tag (user, admin). Role rights live in an
//     immutable table built at package init and validated against the role
//     enum, see roles.go. The jwtware middleware enforces route rights
//     against that table, with a self-service override for routes scoped to
//     the acting user's own id.
//
// Every externally visible failure inside token verification flows collapses
// to a generic authentication error; the underlying cause is only logged.
package auth
