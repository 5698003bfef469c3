package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key namespaces. The session record key (refreshKey) is what the per-user
// index set stores as members, so index entries can be deleted directly.
const (
	refreshPrefix      = "iam:refresh:"
	userSessionsPrefix = "iam:user-sessions:"
	blacklistPrefix    = "iam:blacklist:"
	logoutAllPrefix    = "iam:logout-all:"
)

// RedisStore implements Store on a shared Redis instance. Every multi-key
// mutation goes through TxPipelined (MULTI/EXEC) so a request aborted
// mid-flight can never leave a session record without its index entry or
// vice versa.
type RedisStore struct {
	client *redis.Client
	maxTTL time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewRedisStore creates a Redis-backed session store. maxTTL is the
// absolute session lifetime applied to new sessions, the index, and the
// logout-all watermark.
func NewRedisStore(client *redis.Client, maxTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, maxTTL: maxTTL, now: time.Now}
}

func refreshKey(token string) string   { return refreshPrefix + token }
func userSessionsKey(id string) string { return userSessionsPrefix + id }
func blacklistKey(token string) string { return blacklistPrefix + token }
func logoutAllKey(id string) string    { return logoutAllPrefix + id }

// newRefreshToken returns 32 cryptographically random bytes hex-encoded.
func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (r *RedisStore) Create(ctx context.Context, s *Session) (string, error) {
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	key := refreshKey(token)
	idx := userSessionsKey(s.UserID)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, b, r.maxTTL)
		p.SAdd(ctx, idx, key)
		p.Expire(ctx, idx, r.maxTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func (r *RedisStore) Get(ctx context.Context, refreshToken string) (*Session, error) {
	b, err := r.client.Get(ctx, refreshKey(refreshToken)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Rotate(ctx context.Context, oldToken string, s *Session, remaining time.Duration) (string, error) {
	newToken, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	oldKey := refreshKey(oldToken)
	newKey := refreshKey(newToken)
	idx := userSessionsKey(s.UserID)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, oldKey)
		// remaining TTL, not a fresh full one: the absolute session
		// lifetime keeps counting from the original SessionStart
		p.Set(ctx, newKey, b, remaining)
		p.SRem(ctx, idx, oldKey)
		p.SAdd(ctx, idx, newKey)
		p.Expire(ctx, idx, remaining)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}
	return newToken, nil
}

func (r *RedisStore) Delete(ctx context.Context, refreshToken string) error {
	s, err := r.Get(ctx, refreshToken)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	key := refreshKey(refreshToken)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.SRem(ctx, userSessionsKey(s.UserID), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) RevokeAll(ctx context.Context, userID string) error {
	idx := userSessionsKey(userID)
	watermark := strconv.FormatInt(r.now().Unix(), 10)

	keys, err := r.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	if len(keys) == 0 {
		// nothing to revoke, just record the watermark
		if err := r.client.Set(ctx, logoutAllKey(userID), watermark, r.maxTTL).Err(); err != nil {
			return fmt.Errorf("write logout watermark: %w", err)
		}
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, logoutAllKey(userID), watermark, r.maxTTL)
		p.Del(ctx, keys...)
		p.Del(ctx, idx)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}
	return nil
}

func (r *RedisStore) BlacklistAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		// already expired, nothing left to protect against
		return nil
	}
	if err := r.client.Set(ctx, blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (r *RedisStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) IsIssuedBeforeWatermark(ctx context.Context, userID string, issuedAt int64) (bool, error) {
	if issuedAt <= 0 {
		// no iat claim: fail closed
		return true, nil
	}
	val, err := r.client.Get(ctx, logoutAllKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("read logout watermark: %w", err)
	}
	watermark, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse logout watermark: %w", err)
	}
	// <= handles the same-second edge case
	return issuedAt <= watermark, nil
}
