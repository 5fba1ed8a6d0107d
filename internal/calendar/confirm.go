package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-hcm/meridian/internal/shared"
)

// PendingReplace records what a confirmation token authorises: replacing the
// listed period numbers for one pay group and year.
type PendingReplace struct {
	PayGroupID int64 `json:"pay_group_id"`
	Year       int   `json:"year"`
	Numbers    []int `json:"numbers"`
}

// ConfirmationStore keeps pending replace confirmations in Redis. Tokens are
// single use and expire after the configured TTL.
type ConfirmationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConfirmationStore constructs the store.
func NewConfirmationStore(client *redis.Client, ttl time.Duration) *ConfirmationStore {
	return &ConfirmationStore{client: client, ttl: ttl}
}

// Issue registers a pending replace and returns its token.
func (s *ConfirmationStore) Issue(ctx context.Context, pending PendingReplace) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("calendar: confirmation store not initialised")
	}
	payload, err := json.Marshal(pending)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, shared.ConfirmTokenKey(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("calendar: store confirmation: %w", err)
	}
	return token, nil
}

// Redeem consumes a token, returning the replace it authorised. A second
// redemption of the same token fails.
func (s *ConfirmationStore) Redeem(ctx context.Context, token string) (PendingReplace, error) {
	if s == nil || s.client == nil {
		return PendingReplace{}, errors.New("calendar: confirmation store not initialised")
	}
	raw, err := s.client.GetDel(ctx, shared.ConfirmTokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return PendingReplace{}, ErrConfirmTokenInvalid
		}
		return PendingReplace{}, fmt.Errorf("calendar: redeem confirmation: %w", err)
	}
	var pending PendingReplace
	if err := json.Unmarshal(raw, &pending); err != nil {
		return PendingReplace{}, ErrConfirmTokenInvalid
	}
	return pending, nil
}
