package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dom/league-customs/internal/domain"
)

const (
	// SessionTTL bounds how long a session survives without heartbeats.
	SessionTTL = 90 * time.Second

	// heartbeat refreshes are capped at 1 Hz per summoner name.
	heartbeatMinInterval = time.Second

	lcuCredentialsTTL = 24 * time.Hour
)

func sessionKey(summonerName string) string {
	return "session:" + domain.NormalizeSummonerName(summonerName)
}

func lcuKey(summonerName string) string {
	return "lcu:" + domain.NormalizeSummonerName(summonerName)
}

// Entry is the Redis-stored session record.
type Entry struct {
	InstanceID    string    `json:"instanceId"`
	ConnectionID  string    `json:"connectionId"`
	IdentifiedAt  time.Time `json:"identifiedAt"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`

	// Stale marks a cached answer served while Redis was unreachable.
	Stale bool `json:"-"`
}

// InvalidateFunc tells the previous owner of a summoner name that its
// connection is stale. Wired to a gateway.invalidate publish in main.
type InvalidateFunc func(ctx context.Context, summonerName, oldInstanceID string)

// Registry maps summoner names to the instance and connection that hold
// them. Redis is authoritative; a local mirror answers ListLocal and
// keeps lookups available (marked stale) through Redis outages.
type Registry struct {
	rdb          *redis.Client
	instanceID   string
	onInvalidate InvalidateFunc

	mu    sync.RWMutex
	local map[string]string
	cache map[string]Entry
	beats map[string]time.Time
}

func New(rdb *redis.Client, instanceID string) *Registry {
	return &Registry{
		rdb:        rdb,
		instanceID: instanceID,
		local:      make(map[string]string),
		cache:      make(map[string]Entry),
		beats:      make(map[string]time.Time),
	}
}

func (r *Registry) InstanceID() string {
	return r.instanceID
}

func (r *Registry) OnInvalidate(fn InvalidateFunc) {
	r.onInvalidate = fn
}

// Register claims a summoner name for this instance. A claim held by
// another instance is overwritten and that instance is told to drop its
// connection. Registration never succeeds silently when Redis is down.
func (r *Registry) Register(ctx context.Context, summonerName, connectionID string) error {
	name := domain.NormalizeSummonerName(summonerName)
	key := sessionKey(name)

	prev, err := r.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}
	var oldInstance string
	if err == nil {
		var old Entry
		if jsonErr := json.Unmarshal([]byte(prev), &old); jsonErr == nil && old.InstanceID != r.instanceID {
			oldInstance = old.InstanceID
		}
	}

	now := time.Now().UTC()
	entry := Entry{
		InstanceID:    r.instanceID,
		ConnectionID:  connectionID,
		IdentifiedAt:  now,
		LastHeartbeat: now,
	}
	raw, _ := json.Marshal(entry)
	if err := r.rdb.Set(ctx, key, raw, SessionTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}

	r.mu.Lock()
	r.local[name] = connectionID
	r.cache[name] = entry
	r.beats[name] = now
	r.mu.Unlock()

	if oldInstance != "" {
		log.Printf("Registry: %s moved from %s to %s", name, oldInstance, r.instanceID)
		if r.onInvalidate != nil {
			r.onInvalidate(ctx, name, oldInstance)
		}
	}
	return nil
}

// Unregister drops the claim iff this instance still holds it with the
// same connection. Best effort: a racing re-register elsewhere wins.
func (r *Registry) Unregister(ctx context.Context, summonerName, connectionID string) {
	name := domain.NormalizeSummonerName(summonerName)

	r.mu.Lock()
	if current, ok := r.local[name]; ok && current == connectionID {
		delete(r.local, name)
		delete(r.beats, name)
	}
	r.mu.Unlock()

	raw, err := r.rdb.Get(ctx, sessionKey(name)).Result()
	if err != nil {
		return
	}
	var entry Entry
	if json.Unmarshal([]byte(raw), &entry) != nil {
		return
	}
	if entry.InstanceID == r.instanceID && entry.ConnectionID == connectionID {
		if err := r.rdb.Del(ctx, sessionKey(name)).Err(); err != nil {
			log.Printf("Registry: unregister %s: %v", name, err)
		}
	}
}

// Heartbeat refreshes the session TTL, at most once per second.
func (r *Registry) Heartbeat(ctx context.Context, summonerName string) {
	name := domain.NormalizeSummonerName(summonerName)
	now := time.Now().UTC()

	r.mu.Lock()
	connID, owned := r.local[name]
	if owned {
		if last, ok := r.beats[name]; ok && now.Sub(last) < heartbeatMinInterval {
			r.mu.Unlock()
			return
		}
		r.beats[name] = now
	}
	r.mu.Unlock()
	if !owned {
		return
	}

	entry := Entry{
		InstanceID:    r.instanceID,
		ConnectionID:  connID,
		LastHeartbeat: now,
	}
	r.mu.RLock()
	if cached, ok := r.cache[name]; ok {
		entry.IdentifiedAt = cached.IdentifiedAt
	}
	r.mu.RUnlock()

	raw, _ := json.Marshal(entry)
	if err := r.rdb.Set(ctx, sessionKey(name), raw, SessionTTL).Err(); err != nil {
		log.Printf("Registry: heartbeat %s: %v", name, err)
		return
	}
	r.mu.Lock()
	r.cache[name] = entry
	r.mu.Unlock()
}

// Lookup resolves a summoner name to its session. When Redis is down a
// cached answer is served with Stale set; a missing key yields
// ErrNoSession.
func (r *Registry) Lookup(ctx context.Context, summonerName string) (*Entry, error) {
	name := domain.NormalizeSummonerName(summonerName)

	raw, err := r.rdb.Get(ctx, sessionKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		r.mu.Lock()
		delete(r.cache, name)
		r.mu.Unlock()
		return nil, domain.ErrNoSession
	}
	if err != nil {
		r.mu.RLock()
		cached, ok := r.cache[name]
		r.mu.RUnlock()
		if ok {
			cached.Stale = true
			return &cached, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("%w: corrupt session for %s", domain.ErrRegistryUnavailable, name)
	}
	r.mu.Lock()
	r.cache[name] = entry
	r.mu.Unlock()
	return &entry, nil
}

// IsLocal reports whether this instance holds the name, with the
// connection id to push to.
func (r *Registry) IsLocal(summonerName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.local[domain.NormalizeSummonerName(summonerName)]
	return connID, ok
}

// ListLocal returns the names held by this instance, sorted for stable
// output.
func (r *Registry) ListLocal() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.local))
	for name := range r.local {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// DropLocal removes only the in-memory claim, used when another instance
// took the name over and the Redis key is no longer ours to delete.
func (r *Registry) DropLocal(summonerName, connectionID string) {
	name := domain.NormalizeSummonerName(summonerName)
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.local[name]; ok && current == connectionID {
		delete(r.local, name)
		delete(r.beats, name)
	}
}

// StoreLCUCredentials caches a player's local game-client details so any
// instance can see that the player is LCU-capable.
func (r *Registry) StoreLCUCredentials(ctx context.Context, summonerName string, creds domain.LCUCredentials) error {
	creds.ConfiguredAt = time.Now().UTC()
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, lcuKey(summonerName), raw, lcuCredentialsTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}
	return nil
}

// LCUCredentials returns the cached game-client details, or ErrNoSession
// when the player never configured any.
func (r *Registry) LCUCredentials(ctx context.Context, summonerName string) (*domain.LCUCredentials, error) {
	raw, err := r.rdb.Get(ctx, lcuKey(summonerName)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}
	var creds domain.LCUCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}
