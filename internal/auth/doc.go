// Package auth provides authentication for Chatwire.
//
// It covers user accounts (email-identified, Argon2id password hashes),
// short-lived HS256 access tokens with jti-based revocation, and
// failed-login tracking for brute-force lockout.
//
// Tokens are validated by signature and expiry; logout places the
// token's jti on a denylist checked by the API middleware, so a revoked
// token stops working before it expires.
package auth
