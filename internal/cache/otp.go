package cache

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

// OTPStore keeps one-time codes in redis under a purpose-scoped key with
// a TTL; a code disappears on expiry or on successful verification.
type OTPStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOTPStore(client *redis.Client, ttl time.Duration) *OTPStore {
	return &OTPStore{
		client: client,
		ttl:    ttl,
	}
}

// Issue generates a six digit code for the user/purpose pair and stores
// it, replacing any previous code for the same pair.
func (s *OTPStore) Issue(ctx context.Context, userID, purpose string) (string, error) {
	code, err := randomCode(6)
	if err != nil {
		return "", err
	}

	key := otpKey(userID, purpose)
	if err := s.client.Set(ctx, key, code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	return code, nil
}

// Verify checks the code and consumes it on success so it cannot be
// replayed.
func (s *OTPStore) Verify(ctx context.Context, userID, purpose, code string) (bool, error) {
	key := otpKey(userID, purpose)

	stored, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get otp: %w", err)
	}

	if stored != code {
		return false, nil
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}

	return true, nil
}

func otpKey(userID, purpose string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, userID)
}

func randomCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
