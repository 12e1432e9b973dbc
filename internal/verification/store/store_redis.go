package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
	"drivepass/pkg/platform/sentinel"
)

// RedisStore persists cases as JSON values with per-state index sets, for
// deployments that run without PostgreSQL. Compare-and-set rides on WATCH:
// the transaction aborts if the case key changes between read and write.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func caseKey(caseID id.CaseID) string { return "case:" + caseID.String() }

func stateKey(state domain.CaseState) string { return "cases:state:" + string(state) }

func (s *RedisStore) Create(ctx context.Context, kase *domain.VerificationCase) error {
	payload, err := json.Marshal(redisCase(kase))
	if err != nil {
		return fmt.Errorf("encode case: %w", err)
	}
	ok, err := s.client.SetNX(ctx, caseKey(kase.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	if err := s.client.SAdd(ctx, stateKey(kase.State), kase.ID.String()).Err(); err != nil {
		return fmt.Errorf("index case state: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, caseID id.CaseID) (*domain.VerificationCase, error) {
	payload, err := s.client.Get(ctx, caseKey(caseID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	return decodeRedisCase(payload)
}

func (s *RedisStore) UpdateState(ctx context.Context, kase *domain.VerificationCase, expected domain.CaseState) error {
	key := caseKey(kase.ID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return err
		}
		current, err := decodeRedisCase(payload)
		if err != nil {
			return err
		}
		if current.State != expected {
			return sentinel.ErrStaleState
		}
		next, err := json.Marshal(redisCase(kase))
		if err != nil {
			return fmt.Errorf("encode case: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			if current.State != kase.State {
				pipe.SRem(ctx, stateKey(current.State), kase.ID.String())
				pipe.SAdd(ctx, stateKey(kase.State), kase.ID.String())
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key between read and write.
		return sentinel.ErrStaleState
	}
	return err
}

func (s *RedisStore) ListByState(ctx context.Context, state domain.CaseState) ([]*domain.VerificationCase, error) {
	ids, err := s.client.SMembers(ctx, stateKey(state)).Result()
	if err != nil {
		return nil, fmt.Errorf("list case ids by state: %w", err)
	}
	var out []*domain.VerificationCase
	for _, raw := range ids {
		caseID, err := id.ParseCaseID(raw)
		if err != nil {
			continue
		}
		kase, err := s.Get(ctx, caseID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		// The index lags the value during concurrent transitions; trust the value.
		if kase.State == state {
			out = append(out, kase)
		}
	}
	return out, nil
}

// redisCaseRecord is the stored JSON form of a case.
type redisCaseRecord struct {
	ID           string             `json:"id"`
	SubjectRef   string             `json:"subject_ref"`
	DocumentRefs []string           `json:"document_refs"`
	Assessment   *domain.Assessment `json:"assessment,omitempty"`
	Decision     *domain.Decision   `json:"decision,omitempty"`
	State        string             `json:"state"`
	FinalOutcome string             `json:"final_outcome,omitempty"`
	ReviewerRef  string             `json:"reviewer_ref,omitempty"`
	ReviewNote   string             `json:"review_note,omitempty"`
	CreatedAt    int64              `json:"created_at_unix_nano"`
	FinalizedAt  int64              `json:"finalized_at_unix_nano,omitempty"`
}

func redisCase(kase *domain.VerificationCase) redisCaseRecord {
	record := redisCaseRecord{
		ID:           kase.ID.String(),
		SubjectRef:   kase.SubjectRef.String(),
		DocumentRefs: docRefStrings(kase.DocumentRefs),
		Assessment:   kase.Assessment,
		Decision:     kase.Decision,
		State:        string(kase.State),
		FinalOutcome: string(kase.FinalOutcome),
		ReviewerRef:  kase.ReviewerRef.String(),
		ReviewNote:   kase.ReviewNote,
		CreatedAt:    kase.CreatedAt.UnixNano(),
	}
	if !kase.FinalizedAt.IsZero() {
		record.FinalizedAt = kase.FinalizedAt.UnixNano()
	}
	return record
}

func decodeRedisCase(payload []byte) (*domain.VerificationCase, error) {
	var record redisCaseRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode case: %w", err)
	}
	caseID, err := id.ParseCaseID(record.ID)
	if err != nil {
		return nil, fmt.Errorf("decode case id: %w", err)
	}
	kase := &domain.VerificationCase{
		ID:           caseID,
		SubjectRef:   id.SubjectRef(record.SubjectRef),
		Assessment:   record.Assessment,
		Decision:     record.Decision,
		State:        domain.CaseState(record.State),
		FinalOutcome: domain.FinalOutcome(record.FinalOutcome),
		ReviewerRef:  id.ReviewerRef(record.ReviewerRef),
		ReviewNote:   record.ReviewNote,
	}
	for _, ref := range record.DocumentRefs {
		kase.DocumentRefs = append(kase.DocumentRefs, id.DocumentRef(ref))
	}
	if record.CreatedAt != 0 {
		kase.CreatedAt = time.Unix(0, record.CreatedAt)
	}
	if record.FinalizedAt != 0 {
		kase.FinalizedAt = time.Unix(0, record.FinalizedAt)
	}
	return kase, nil
}
