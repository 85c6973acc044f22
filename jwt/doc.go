// Package jwt issues and verifies the signed session credential handed back
// after a successful login. Credentials carry the account id as subject and the
// login identifier as a private claim.
package jwt
