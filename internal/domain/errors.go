package domain

import "errors"

// Error taxonomy shared by all managers.
//
// Absence (ErrNotFound) is a normal outcome for expired or never-created
// keys and is deliberately indistinguishable between the two cases.
// ErrInvalidOrExpired is returned uniformly for auth-adjacent failures so a
// caller cannot tell a wrong code from a replayed or expired one.
var (
	// ErrNotFound reports that a session, chat, or key does not exist
	// (expired keys look identical to never-created ones).
	ErrNotFound = errors.New("not found")

	// ErrInvalidOrExpired reports a failed verification-code consume,
	// regardless of whether the code was wrong, expired, or already used.
	ErrInvalidOrExpired = errors.New("invalid or expired")

	// ErrRetrievalExhausted reports that every strategy in a knowledge
	// retrieval chain failed. Nothing is cached in that case.
	ErrRetrievalExhausted = errors.New("retrieval exhausted")
)
