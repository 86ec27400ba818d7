package cassette

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/evanofslack/dnsctl/internal/metrics"
)

const interactionPrefix = "interaction:"

// Interaction is one recorded request/response pair. Request fields are
// stored after redaction.
type Interaction struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	RequestBody string      `json:"requestBody"`
	StatusCode  int         `json:"statusCode"`
	Header      http.Header `json:"header"`
	Body        string      `json:"body"`
	RecordedAt  time.Time   `json:"recordedAt"`
}

type Store interface {
	Get(ctx context.Context, key string) (Interaction, bool, error)
	Put(ctx context.Context, key string, in Interaction) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

type badgerStore struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func Open(path string, metrics *metrics.Metrics) (Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &badgerStore{db: db, metrics: metrics}, nil
}

func (s *badgerStore) Get(ctx context.Context, key string) (Interaction, bool, error) {
	var in Interaction
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(interactionPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &in)
		})
	})
	s.metrics.IncCassetteRequest("read", err == nil)
	return in, found, err
}

func (s *badgerStore) Put(ctx context.Context, key string, in Interaction) error {
	data, err := json.Marshal(in)
	if err != nil {
		s.metrics.IncCassetteRequest("create", false)
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set([]byte(interactionPrefix+key), data); err != nil {
		s.metrics.IncCassetteRequest("create", false)
		return err
	}
	err = txn.Commit()
	s.metrics.IncCassetteRequest("create", err == nil)
	return err
}

func (s *badgerStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(interactionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(interactionPrefix):]))
		}
		return nil
	})
	s.metrics.IncCassetteRequest("read", err == nil)
	return keys, err
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
