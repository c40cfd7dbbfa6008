package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ecostage/backend/internal/config"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const codeTTL = 10 * time.Minute

// VerificationCodeStore keeps one-time password reset codes. Codes live in
// redis with a TTL so every replica of the server sees them; without redis
// a small in-process store backs single-node deployments.
type VerificationCodeStore struct {
	rdb   *redis.Client
	local *localCodeStore
}

func NewVerificationCodeStore(cfg *config.RedisConfig) *VerificationCodeStore {
	if !cfg.Enabled {
		logger.Infof("[Verification] Redis disabled, using in-process code store")
		return &VerificationCodeStore{local: newLocalCodeStore()}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnf("[Verification] Redis unavailable, using in-process code store: %v", err)
		rdb.Close()
		return &VerificationCodeStore{local: newLocalCodeStore()}
	}

	return &VerificationCodeStore{rdb: rdb}
}

// Issue generates a fresh 6-digit code for the email, replacing any
// outstanding one.
func (s *VerificationCodeStore) Issue(email string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", err
	}

	if s.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.rdb.Set(ctx, codeKey(email), code, codeTTL).Err(); err != nil {
			return "", err
		}
		return code, nil
	}

	s.local.set(email, code, codeTTL)
	return code, nil
}

// Consume checks the code and deletes it on a match so it can be used at
// most once.
func (s *VerificationCodeStore) Consume(email, code string) (bool, error) {
	if s.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		stored, err := s.rdb.Get(ctx, codeKey(email)).Result()
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if stored != code {
			return false, nil
		}
		s.rdb.Del(ctx, codeKey(email))
		return true, nil
	}

	return s.local.consume(email, code), nil
}

// Close releases the redis connection if one is held.
func (s *VerificationCodeStore) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

func codeKey(email string) string {
	return "ecostage:reset-code:" + email
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type localCode struct {
	code      string
	expiresAt time.Time
}

type localCodeStore struct {
	mu    sync.Mutex
	codes map[string]localCode
}

func newLocalCodeStore() *localCodeStore {
	return &localCodeStore{codes: make(map[string]localCode)}
}

func (s *localCodeStore) set(email, code string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = localCode{code: code, expiresAt: time.Now().Add(ttl)}
}

func (s *localCodeStore) consume(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[email]
	if !ok || time.Now().After(entry.expiresAt) || entry.code != code {
		return false
	}
	delete(s.codes, email)
	return true
}
