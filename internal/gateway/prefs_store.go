package gateway

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	sqlitestore "td-dashboard/internal/store/sqlite"
)

const prefsCachePrefix = "dashboard:settings:"

// PrefsStore manages per-user dashboard preferences. SQLite is the
// source of truth; Redis (optional, nil-safe) is a write-through cache
// so multiple dashboard processes stay warm, and every change is
// broadcast to connected clients so other open tabs re-render.
type PrefsStore struct {
	db  *sqlitestore.Store
	rdb *goredis.Client
	hub *Hub
}

// NewPrefsStore creates a PrefsStore. rdb may be nil to run without a
// cache.
func NewPrefsStore(db *sqlitestore.Store, rdb *goredis.Client, hub *Hub) *PrefsStore {
	return &PrefsStore{db: db, rdb: rdb, hub: hub}
}

// Get returns the preferences payload for userID, or nil when none
// exist. Cache hits skip SQLite; misses repopulate the cache.
func (ps *PrefsStore) Get(ctx context.Context, userID string) (json.RawMessage, error) {
	if ps.rdb != nil {
		if data, err := ps.rdb.Get(ctx, prefsCachePrefix+userID).Result(); err == nil {
			return json.RawMessage(data), nil
		}
	}

	payload, err := ps.db.GetPreferences(userID)
	if err != nil || payload == nil {
		return payload, err
	}

	if ps.rdb != nil {
		if err := ps.rdb.Set(ctx, prefsCachePrefix+userID, string(payload), 0).Err(); err != nil {
			log.Printf("[prefs] WARNING: cache repopulate failed for %s: %v", userID, err)
		}
	}
	return payload, nil
}

// Put upserts preferences for userID, refreshes the cache, and
// broadcasts a settings_update on the user's channel.
func (ps *PrefsStore) Put(ctx context.Context, userID string, payload json.RawMessage, updatedAt string) error {
	if updatedAt == "" {
		updatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	if err := ps.db.PutPreferences(userID, payload, updatedAt); err != nil {
		return err
	}

	if ps.rdb != nil {
		if err := ps.rdb.Set(ctx, prefsCachePrefix+userID, string(payload), 0).Err(); err != nil {
			log.Printf("[prefs] WARNING: cache write failed for %s: %v", userID, err)
		}
	}

	ps.broadcast(ctx, userID, "settings_update", payload)
	return nil
}

// Delete removes preferences for userID, evicts the cache entry, and
// broadcasts the deletion.
func (ps *PrefsStore) Delete(ctx context.Context, userID string) error {
	if err := ps.db.DeletePreferences(userID); err != nil {
		return err
	}

	if ps.rdb != nil {
		if err := ps.rdb.Del(ctx, prefsCachePrefix+userID).Err(); err != nil {
			log.Printf("[prefs] WARNING: cache evict failed for %s: %v", userID, err)
		}
	}

	ps.broadcast(ctx, userID, "settings_delete", nil)
	return nil
}

// broadcast notifies this process's WS clients and, when Redis is up,
// publishes on the user's cache channel so sibling processes can
// invalidate and re-broadcast.
func (ps *PrefsStore) broadcast(ctx context.Context, userID, event string, payload json.RawMessage) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":        event,
		"userId":      userID,
		"preferences": payload,
	})

	if ps.hub != nil {
		ps.hub.Broadcast("settings:"+userID, data)
	}
	if ps.rdb != nil {
		if err := ps.rdb.Publish(ctx, prefsCachePrefix+userID, string(data)).Err(); err != nil {
			log.Printf("[prefs] WARNING: publish failed for %s: %v", userID, err)
		}
	}
}
