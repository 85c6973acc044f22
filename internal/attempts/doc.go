// Package attempts stores per-identifier failed-login counters for the login
// governor.
//
// A counter records how many consecutive failures an identifier has
// accumulated and when the first of them happened. Stores only count; the
// lockout policy (threshold and window) is applied by the caller.
//
// Two backends are provided:
//   - [MemoryStore]: process-local map, swept opportunistically.
//   - [RedisStore]: shared hash per identifier under the "lat:" prefix, updated
//     by a Lua script so that count and first-failure time move together.
//
// Both drop counters older than the configured retention.
package attempts
