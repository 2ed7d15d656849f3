package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wlingo-quiz-service/internal/domain"
)

// defaultMaxAttempts bounds optimistic retries when concurrent writers collide.
const defaultMaxAttempts = 8

// SessionStore keeps each session as one JSON value. Every write rewrites the
// whole record and resets its TTL, so an idle session expires ttl after its
// last change.
type SessionStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxAttempts int
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:      client,
		ttl:         ttl,
		maxAttempts: defaultMaxAttempts,
	}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		return domain.Session{}, notFound(err)
	}
	return decode(raw)
}

// Update applies fn inside a WATCH/MULTI transaction. If another writer
// touches the key between read and write, the transaction is retried with
// fresh state so check-then-append logic in fn never double-applies.
func (s *SessionStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	key := s.key(id)
	var updated domain.Session

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return notFound(err)
		}
		session, err := decode(raw)
		if err != nil {
			return err
		}
		if err := fn(&session); err != nil {
			return err
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.Session{}, err
	}
	return domain.Session{}, domain.ErrConcurrentUpdate
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return domain.ErrSessionNotFound
	}
	return fmt.Errorf("load session: %w", err)
}

func decode(raw []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}
