package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the KV bucket used when none is configured.
const DefaultBucket = "HEXGUARD_BASELINE"

// bucket is the subset of jetstream.KeyValue the store uses.
type bucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// KVStore keeps records in a NATS JetStream key-value bucket, one key per
// rule ID. Earlier revisions are retained by the bucket history.
type KVStore struct {
	kv bucket
}

// NewKVStore opens the named bucket, creating it if it doesn't exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream, name string) (*KVStore, error) {
	if name == "" {
		name = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, name)
	if err != nil {
		return nil, fmt.Errorf("create baseline bucket: %w", err)
	}
	return &KVStore{kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "hexguard architecture baselines",
		History:     10,
	})
}

// Load reads the record of ruleID.
func (s *KVStore) Load(ctx context.Context, ruleID string) (*Record, error) {
	entry, err := s.kv.Get(ctx, ruleID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get baseline: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal baseline: %w", err)
	}
	return &rec, nil
}

// Save stores rec under its rule ID.
func (s *KVStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	if _, err := s.kv.Put(ctx, rec.RuleID, data); err != nil {
		return fmt.Errorf("put baseline: %w", err)
	}
	return nil
}
