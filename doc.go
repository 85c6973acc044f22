// Package accountgate guards password logins against repeated failures and
// serves paginated, filtered, sorted account listings.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// accountgate is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([Account], [Page], [MetricsSnapshot]). Flow orchestration,
// failure counters, audit dispatch and metrics live under internal/ and are
// never exported.
//
// Account records come from a [RecordStore]. The store packages under store/
// provide in-memory, SQLite and MongoDB implementations. Failure counters are
// kept in process memory unless [Builder.WithRedis] or
// [Builder.WithAttemptStore] is used.
//
// # Lockout policy
//
// An identifier that accumulates Lockout.MaxFailedAttempts failures within
// Lockout.Window of its first failure is refused with [ErrLoginRateLimited]
// until the window has elapsed. While refused, no secret is compared and the
// counter is not touched. The remaining time is never reported.
//
// Unknown identifiers are checked against a decoy Argon2id hash so they cost
// the same as a wrong secret, and both yield [ErrInvalidCredentials].
package accountgate
