// Package documents is the local durable cache of the client: a key/value
// table holding JSON documents such as the identity directory, allergen
// profiles and scan histories.
package documents

import "context"

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set inserts or replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns every document whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
