package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store.
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair represents a single key/value pair with metadata.
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage defines operations for generic key/value storage. It backs
// the LLM response cache, the market observation cache, and the manual
// override table.
type KeyValueStorage interface {
	// Get retrieves a value by key, returns ErrKeyNotFound if absent.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key/value pair with optional description.
	Set(ctx context.Context, key string, value string, description string) error

	// Delete removes a key/value pair, returns ErrKeyNotFound if absent.
	Delete(ctx context.Context, key string) error

	// GetAll returns all key/value pairs as a map.
	GetAll(ctx context.Context) (map[string]string, error)

	// ListByPrefix returns all pairs with keys starting with the prefix.
	ListByPrefix(ctx context.Context, prefix string) ([]KeyValuePair, error)
}
