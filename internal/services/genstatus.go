package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ceppa-ai/autolearn-backend/internal/logger"
)

// BatchKey identifies one generation batch: a course and the user who asked.
type BatchKey struct {
	CourseID uuid.UUID
	UserID   uuid.UUID
}

type BatchError struct {
	Lesson string `json:"lesson"`
	Error  string `json:"error"`
}

type BatchStatus struct {
	Total      int          `json:"total"`
	Completed  int          `json:"completed"`
	Failed     int          `json:"failed"`
	InProgress bool         `json:"in_progress"`
	Errors     []BatchError `json:"errors"`
}

// BatchStatusStore tracks progress of lesson generation batches. A missing
// key reads as a zero record, so callers cannot distinguish "never started"
// from "expired" -- accepted limitation. A new batch for the same key
// supersedes the previous record wholesale.
type BatchStatusStore interface {
	Begin(key BatchKey, total int)
	RecordSuccess(key BatchKey)
	RecordFailure(key BatchKey, lesson string, errMsg string)
	Finish(key BatchKey)
	Get(key BatchKey) BatchStatus
}

// ---- in-memory store (default) ----

// Counter updates race between fan-out units, so unlike the DB path this map
// takes an explicit lock. State is lost on process restart.
type memoryStatusStore struct {
	mu      sync.Mutex
	records map[BatchKey]*BatchStatus
}

func NewMemoryStatusStore() BatchStatusStore {
	return &memoryStatusStore{records: map[BatchKey]*BatchStatus{}}
}

func (m *memoryStatusStore) Begin(key BatchKey, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = &BatchStatus{
		Total:      total,
		InProgress: true,
		Errors:     []BatchError{},
	}
}

func (m *memoryStatusStore) RecordSuccess(key BatchKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		rec.Completed++
	}
}

func (m *memoryStatusStore) RecordFailure(key BatchKey, lesson string, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		rec.Failed++
		rec.Errors = append(rec.Errors, BatchError{Lesson: lesson, Error: errMsg})
	}
}

func (m *memoryStatusStore) Finish(key BatchKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		rec.InProgress = false
	}
}

func (m *memoryStatusStore) Get(key BatchKey) BatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return BatchStatus{Errors: []BatchError{}}
	}
	out := *rec
	out.Errors = append([]BatchError{}, rec.Errors...)
	return out
}

// ---- redis-backed store (optional) ----

// Same contract as the memory store but the record lives in redis with a TTL,
// which survives a backend restart for the TTL window. Updates are
// read-modify-write under a process-local lock; only one backend process
// writes a given key, so no cross-process locking is attempted.
type redisStatusStore struct {
	mu  sync.Mutex
	rdb *redis.Client
	log *logger.Logger
	ttl time.Duration
}

func NewRedisStatusStore(addr, password string, db int, baseLog *logger.Logger) BatchStatusStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisStatusStore{
		rdb: rdb,
		log: baseLog.With("service", "RedisStatusStore"),
		ttl: 24 * time.Hour,
	}
}

func statusRedisKey(key BatchKey) string {
	return fmt.Sprintf("coursegen:%s:%s", key.CourseID, key.UserID)
}

func (r *redisStatusStore) set(key BatchKey, rec *BatchStatus) {
	b, err := json.Marshal(rec)
	if err != nil {
		r.log.Warn("marshal batch status failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.rdb.Set(ctx, statusRedisKey(key), b, r.ttl).Err(); err != nil {
		r.log.Warn("set batch status failed", "error", err)
	}
}

func (r *redisStatusStore) get(key BatchKey) (*BatchStatus, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := r.rdb.Get(ctx, statusRedisKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	var rec BatchStatus
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	if rec.Errors == nil {
		rec.Errors = []BatchError{}
	}
	return &rec, true
}

func (r *redisStatusStore) Begin(key BatchKey, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(key, &BatchStatus{Total: total, InProgress: true, Errors: []BatchError{}})
}

func (r *redisStatusStore) RecordSuccess(key BatchKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.get(key); ok {
		rec.Completed++
		r.set(key, rec)
	}
}

func (r *redisStatusStore) RecordFailure(key BatchKey, lesson string, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.get(key); ok {
		rec.Failed++
		rec.Errors = append(rec.Errors, BatchError{Lesson: lesson, Error: errMsg})
		r.set(key, rec)
	}
}

func (r *redisStatusStore) Finish(key BatchKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.get(key); ok {
		rec.InProgress = false
		r.set(key, rec)
	}
}

func (r *redisStatusStore) Get(key BatchKey) BatchStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.get(key)
	if !ok {
		return BatchStatus{Errors: []BatchError{}}
	}
	return *rec
}
