// Package password hashes and verifies account secrets with Argon2id.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification re-derives the key with the parameters embedded in the stored
// hash and compares with [crypto/subtle.ConstantTimeCompare]. [Hasher.Decoy]
// produces a throwaway hash with the configured cost so that a lookup miss can
// be verified at the same price as a hit.
//
// This package never stores secrets and never logs them.
package password
