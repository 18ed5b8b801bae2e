package app

import "context"

// Store abstracts the persistence mechanism as get/set/remove of named
// JSON-serializable documents (in-memory for tests, Redis in production).
// Get reports whether the key was present; absent keys are not errors.
type Store interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// Well-known slots. User and global-state documents are shared mutable
// singletons-per-key with last-writer-wins semantics; the results slot is
// treated as append-only by its sole writer.
const (
	KeyUsers       = "quiz:users"
	KeyResults     = "quiz:results"
	KeyGlobalState = "quiz:global_state"
	KeyCurrentUser = "quiz:current_user"
)
