package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/felixlab/polysin/core"
)

const analysisPrefix = "analysis/"

// HistoryMetrics counts operations against the history database.
type HistoryMetrics struct {
	PutCount  int64
	ListCount int64
	Errors    int64
}

// HistoryStore persists completed analysis results so the service can
// show what it learned and when. It is an audit log, not the source of
// truth; the trait library lives in its own store.
type HistoryStore struct {
	db      *badger.DB
	config  BadgerConfig
	metrics HistoryMetrics
	done    chan struct{}
}

// OpenHistory opens (or creates) the history database under dataDir.
func OpenHistory(config BadgerConfig) (*HistoryStore, error) {
	opts := badger.DefaultOptions(filepath.Join(config.DataDir, "history"))
	if config.DisableLogging {
		opts.Logger = nil
	}
	opts.InMemory = config.InMemory
	opts.SyncWrites = config.SyncWrites
	if config.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	s := &HistoryStore{db: db, config: config, done: make(chan struct{})}
	if config.GCInterval > 0 && !config.InMemory {
		go s.gcLoop(time.Duration(config.GCInterval) * time.Second)
	}
	return s, nil
}

// SaveAnalysis appends one analysis record.
func (s *HistoryStore) SaveAnalysis(result *core.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		atomic.AddInt64(&s.metrics.Errors, 1)
		return fmt.Errorf("encoding analysis record: %w", err)
	}

	key := fmt.Sprintf("%s%020d/%s", analysisPrefix, result.CreatedAt.UnixNano(), result.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		atomic.AddInt64(&s.metrics.Errors, 1)
		return fmt.Errorf("writing analysis record: %w", err)
	}
	atomic.AddInt64(&s.metrics.PutCount, 1)
	return nil
}

// RecentAnalyses returns up to limit records, newest first.
func (s *HistoryStore) RecentAnalyses(limit int) ([]core.AnalysisResult, error) {
	var records []core.AnalysisResult

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(analysisPrefix)
		// Reverse iteration starts past the last analysis key.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec core.AnalysisResult
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				// A single bad record should not hide the rest.
				log.Printf("history: skipping undecodable record %s: %v", it.Item().Key(), err)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		atomic.AddInt64(&s.metrics.Errors, 1)
		return nil, fmt.Errorf("listing analyses: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	atomic.AddInt64(&s.metrics.ListCount, 1)
	return records, nil
}

// Metrics returns a copy of the current counters.
func (s *HistoryStore) Metrics() HistoryMetrics {
	return HistoryMetrics{
		PutCount:  atomic.LoadInt64(&s.metrics.PutCount),
		ListCount: atomic.LoadInt64(&s.metrics.ListCount),
		Errors:    atomic.LoadInt64(&s.metrics.Errors),
	}
}

// RunGC runs one value-log GC pass.
func (s *HistoryStore) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

// Close stops the GC loop and closes the database.
func (s *HistoryStore) Close() error {
	close(s.done)
	return s.db.Close()
}

func (s *HistoryStore) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				log.Printf("history GC failed: %v", err)
			}
		}
	}
}
