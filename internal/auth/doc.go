// Package auth provides session lifecycle and token-based authentication.
//
// A session identifies one caller's ongoing interaction: who they are,
// when they were last active, and how many conversations they started.
// Sessions expire after a configurable inactivity window (default 24h)
// and are evicted lazily on read plus periodically by the sweeper.
//
// Key operations:
//
//   - Lifecycle: [Store.Create], [Store.Authenticate], [Store.Get], [Store.Touch], [Store.Delete]
//   - Tokens: [Store.IssueToken], [Store.VerifyToken] (stateless HS256 JWTs)
//   - Housekeeping: [Store.SweepExpired], [Store.StartSweeper]
//   - Reporting: [Store.Stats], [Store.AllStats]
//
// # Storage
//
// Session records live behind the [Repository] interface; the default
// [MemoryRepository] is a mutex-guarded in-process map, so state does not
// survive restarts. A durable implementation can be substituted without
// changing Store call sites. All read-modify-write mutations go through
// [Repository.Update] closures and stay atomic under concurrent handlers.
//
// # Tokens
//
// Tokens are signed, time-bound credentials embedding the session id,
// user id, and user type. Validity is cryptographic: a token for a
// since-deleted session still verifies but resolves to no session at
// lookup time. Expired and malformed tokens fail with distinct errors.
//
// # Users
//
// The user set is static: one reserved anonymous record and one demo
// account. Password verifiers are bcrypt hashes; plaintext is never
// stored or compared.
package auth
