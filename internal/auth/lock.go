package auth

import (
	"context"
)

// RefreshLocker serializes refreshes across processes sharing one token file.
// The in-process mutex in Manager already covers goroutines.
type RefreshLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NopLocker is used when no shared lock backend is configured.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

func lockKey(path string) string {
	return "schwab-mcp:refresh:" + path
}
