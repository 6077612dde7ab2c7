package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrResetTokenInvalid indicates a missing, expired or mismatched reset token.
var ErrResetTokenInvalid = errors.New("auth: reset token invalid")

// ResetTokenStore keeps one-shot password reset tokens in Redis. A token is
// consumed on first successful verification.
type ResetTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResetTokenStore constructs the store with the given token lifetime.
func NewResetTokenStore(client *redis.Client, ttl time.Duration) *ResetTokenStore {
	return &ResetTokenStore{client: client, ttl: ttl}
}

// Create issues a fresh token for the email, replacing any outstanding one.
func (s *ResetTokenStore) Create(ctx context.Context, email string) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(email), token, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// consumeScript deletes the key only when the stored token matches the
// presented one. Compare and delete must be atomic: a plain GETDEL would let
// anyone who knows the email burn an outstanding token with a wrong guess,
// and a separate GET then DEL would let a token verify twice under races.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Consume verifies and deletes the token for the email. A token verifies at
// most once, and a mismatched attempt leaves the stored token in place.
func (s *ResetTokenStore) Consume(ctx context.Context, email, token string) error {
	if token == "" {
		return ErrResetTokenInvalid
	}
	deleted, err := consumeScript.Run(ctx, s.client, []string{s.key(email)}, token).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrResetTokenInvalid
	}
	return nil
}

func (s *ResetTokenStore) key(email string) string {
	return "pwreset:" + email
}
