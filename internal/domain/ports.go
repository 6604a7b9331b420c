package domain

import "context"

// EntryRepository persists BMI entries scoped by session id. A nil
// repository means no store is configured and saves become no-ops.
type EntryRepository interface {
	CreateEntry(ctx context.Context, value Entry) (Entry, error)
	ListEntries(ctx context.Context, sessionID string) ([]Entry, error)
	DeleteEntry(ctx context.Context, sessionID string, id uint) error
}

// Dispatcher invokes a named remote function with a JSON payload and
// returns the raw response body.
type Dispatcher interface {
	Invoke(ctx context.Context, name string, payload any) ([]byte, error)
}

// KeyValue is the storage the session provider writes its identity to.
// Implementations back it with a cookie jar or a local file.
type KeyValue interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}
