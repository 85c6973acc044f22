// Package middleware adapts accountgate to net/http.
//
// [Guard] reads the Authorization header, calls Engine.VerifyCredential and
// injects the validated claims into the request context. [ClientIP] records
// the caller address so audit events and warnings carry it.
//
// This package does not parse credentials itself. All decisions are
// delegated to the Engine.
package middleware
