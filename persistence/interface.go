// persistence/interface.go
package persistence

import (
	"context"

	"github.com/wfunc/courtstream/models"
)

// Store 会话状态存储接口
// The engine only ever needs get/set by session key; retention and
// teardown policy belong to the backing store.
type Store interface {
	Get(ctx context.Context, sessionID string) (models.SessionSnapshot, bool, error)
	Set(ctx context.Context, sessionID string, snap models.SessionSnapshot) error
	Close() error
}

// Key builds the storage key for a session.
func Key(sessionID string) string {
	return "game_state:" + sessionID
}
