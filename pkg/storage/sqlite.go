package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dc1-ops/nexus/pkg/types"

	// Pure-Go SQLite driver, registers itself as "sqlite". No CGO.
	_ "modernc.org/sqlite"
)

// openSQLite opens (creating if needed) a single-writer SQLite database
// with write-ahead logging and a 5s busy timeout.
func openSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer at a time.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// SQLiteHeartbeatStore implements HeartbeatStore on an embedded SQLite file
type SQLiteHeartbeatStore struct {
	db *sql.DB
}

// NewSQLiteHeartbeatStore opens the heartbeat database and ensures its schema
func NewSQLiteHeartbeatStore(path string) (*SQLiteHeartbeatStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS heartbeats (
		id            TEXT PRIMARY KEY,
		agent_id      TEXT NOT NULL,
		agent_name    TEXT NOT NULL,
		message       TEXT NOT NULL DEFAULT '',
		metadata_json TEXT NOT NULL DEFAULT '{}',
		ts_utc        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_heartbeats_agent_ts ON heartbeats(agent_id, ts_utc);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create heartbeat schema: %w", err)
	}

	return &SQLiteHeartbeatStore{db: db}, nil
}

// Insert appends one heartbeat record. Duplicate IDs violate the primary
// key and are rejected.
func (s *SQLiteHeartbeatStore) Insert(rec *types.HeartbeatRecord) error {
	meta := "{}"
	if rec.Metadata != nil {
		data, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		meta = string(data)
	}

	_, err := s.db.Exec(
		`INSERT INTO heartbeats (id, agent_id, agent_name, message, metadata_json, ts_utc) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, rec.AgentName, rec.Message, meta, rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert heartbeat: %w", err)
	}
	return nil
}

// Latest returns the newest record per agent ID
func (s *SQLiteHeartbeatStore) Latest() (map[string]*types.HeartbeatRecord, error) {
	rows, err := s.db.Query(`
		SELECT h.id, h.agent_id, h.agent_name, h.message, h.metadata_json, h.ts_utc
		FROM heartbeats h
		JOIN (SELECT agent_id, MAX(ts_utc) AS max_ts FROM heartbeats GROUP BY agent_id) m
		  ON h.agent_id = m.agent_id AND h.ts_utc = m.max_ts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest heartbeats: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*types.HeartbeatRecord)
	for rows.Next() {
		var rec types.HeartbeatRecord
		var meta, ts string
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.AgentName, &rec.Message, &meta, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan heartbeat: %w", err)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse heartbeat timestamp: %w", err)
		}
		rec.Timestamp = parsed
		latest[rec.AgentID] = &rec
	}

	return latest, rows.Err()
}

// Close closes the database
func (s *SQLiteHeartbeatStore) Close() error {
	return s.db.Close()
}

// SQLiteMetricStore implements MetricStore on an embedded SQLite file
type SQLiteMetricStore struct {
	db *sql.DB
}

// NewSQLiteMetricStore opens the network metric database and ensures its schema
func NewSQLiteMetricStore(path string) (*SQLiteMetricStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS ping_results (
		ts         TEXT PRIMARY KEY,
		target     TEXT NOT NULL,
		latency_ms REAL,
		success    INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS latency_stats (
		bucket       TEXT PRIMARY KEY,
		p50          REAL NOT NULL,
		p95          REAL NOT NULL,
		p99          REAL NOT NULL,
		sample_count INTEGER NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metric schema: %w", err)
	}

	return &SQLiteMetricStore{db: db}, nil
}

// InsertSample persists one probe result, keyed by its timestamp
func (s *SQLiteMetricStore) InsertSample(sample *types.PingSample) error {
	var latency any
	if sample.LatencyMs != nil {
		latency = *sample.LatencyMs
	}

	success := 0
	if sample.Success {
		success = 1
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO ping_results (ts, target, latency_ms, success) VALUES (?, ?, ?, ?)`,
		sample.Timestamp.UTC().Format(time.RFC3339Nano), sample.Target, latency, success,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ping sample: %w", err)
	}
	return nil
}

// SamplesSince returns all samples at or after since, oldest first
func (s *SQLiteMetricStore) SamplesSince(since time.Time) ([]*types.PingSample, error) {
	rows, err := s.db.Query(
		`SELECT ts, target, latency_ms, success FROM ping_results WHERE ts >= ? ORDER BY ts ASC`,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ping samples: %w", err)
	}
	defer rows.Close()

	var samples []*types.PingSample
	for rows.Next() {
		var ts string
		var latency sql.NullFloat64
		var success int
		sample := &types.PingSample{}
		if err := rows.Scan(&ts, &sample.Target, &latency, &success); err != nil {
			return nil, fmt.Errorf("failed to scan ping sample: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sample timestamp: %w", err)
		}
		sample.Timestamp = parsed
		if latency.Valid {
			v := latency.Float64
			sample.LatencyMs = &v
		}
		sample.Success = success == 1
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// UpsertBucket inserts or replaces one hourly rollup
func (s *SQLiteMetricStore) UpsertBucket(b *types.LatencyBucket) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO latency_stats (bucket, p50, p95, p99, sample_count) VALUES (?, ?, ?, ?, ?)`,
		b.Bucket, b.P50, b.P95, b.P99, b.Count,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert latency bucket: %w", err)
	}
	return nil
}

// RecentBuckets returns the newest hourly rollups, newest first
func (s *SQLiteMetricStore) RecentBuckets(limit int) ([]*types.LatencyBucket, error) {
	rows, err := s.db.Query(
		`SELECT bucket, p50, p95, p99, sample_count FROM latency_stats ORDER BY bucket DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latency buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*types.LatencyBucket
	for rows.Next() {
		b := &types.LatencyBucket{}
		if err := rows.Scan(&b.Bucket, &b.P50, &b.P95, &b.P99, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan latency bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

// Prune enforces retention: samples older than cutoff and rollup buckets
// lexically before bucketCutoff are deleted.
func (s *SQLiteMetricStore) Prune(cutoff time.Time, bucketCutoff string) error {
	if _, err := s.db.Exec(
		`DELETE FROM ping_results WHERE ts < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to prune ping samples: %w", err)
	}

	if _, err := s.db.Exec(`DELETE FROM latency_stats WHERE bucket < ?`, bucketCutoff); err != nil {
		return fmt.Errorf("failed to prune latency buckets: %w", err)
	}

	return nil
}

// Close closes the database
func (s *SQLiteMetricStore) Close() error {
	return s.db.Close()
}
