package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rusenback/erpmon/internal/model"
)

const (
	queueSize     = 1000
	flushBatch    = 50
	flushInterval = 5 * time.Second
	pruneInterval = time.Hour
	pruneBatch    = 1000
	prunePause    = 100 * time.Millisecond
	databaseFile  = "stats.db"
	dataDirPerm   = 0o755
)

// migrations are applied in order; the index of the last one applied is
// kept in PRAGMA user_version.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS container_stats (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		container_id   TEXT    NOT NULL,
		timestamp      INTEGER NOT NULL,
		cpu_percent    REAL,
		memory_percent REAL,
		memory_usage   INTEGER,
		memory_limit   INTEGER,
		network_rx     INTEGER,
		network_tx     INTEGER,
		isolated       INTEGER NOT NULL DEFAULT 0,
		warning        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_container_time ON container_stats(container_id, timestamp);`,

	`CREATE TABLE IF NOT EXISTS containers (
		id         TEXT PRIMARY KEY,
		name       TEXT,
		image      TEXT,
		first_seen INTEGER,
		last_seen  INTEGER
	);`,
}

// DataPoint is one (possibly averaged) point of a history series.
type DataPoint struct {
	Timestamp     time.Time
	CPUPercent    float64
	MemoryPercent float64
}

type sample struct {
	containerID string
	stats       model.NormalizedStats
}

// Storage keeps normalized samples in sqlite. Writes are queued and
// flushed in batches by a background goroutine.
type Storage struct {
	db        *sql.DB
	logger    *zap.Logger
	retention time.Duration

	queue     chan sample
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStorage avaa tai luo tietokannan hakemistoon dataDir
func NewStorage(dataDir string, retention time.Duration, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dataDir, dataDirPerm); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, databaseFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Storage{
		db:        db,
		logger:    logger,
		retention: retention,
		queue:     make(chan sample, queueSize),
		done:      make(chan struct{}),
	}
	s.wg.Add(2)
	go s.flushLoop()
	go s.pruneLoop()
	return s, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("store schema version: %w", err)
		}
	}
	return nil
}

// Write queues a sample. When the queue is full the sample is dropped so
// that a slow disk never blocks the caller.
func (s *Storage) Write(containerID string, st model.NormalizedStats) {
	if st.Timestamp.IsZero() {
		st.Timestamp = time.Now()
	}
	select {
	case s.queue <- sample{containerID: containerID, stats: st}:
	default:
		s.logger.Debug("stats queue full, dropping sample", zap.String("container", containerID))
	}
}

// RecordContainer upserts the container's identity and last-seen time.
func (s *Storage) RecordContainer(c model.Container, seen time.Time) error {
	_, err := s.db.Exec(`INSERT INTO containers (id, name, image, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, image = excluded.image, last_seen = excluded.last_seen`,
		c.ID, c.Name, c.Image, seen.Unix(), seen.Unix())
	if err != nil {
		return fmt.Errorf("record container %s: %w", c.ID, err)
	}
	return nil
}

func (s *Storage) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]sample, 0, flushBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.insert(batch); err != nil {
			s.logger.Warn("failed to write stats batch", zap.Int("samples", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case smp := <-s.queue:
			if batch = append(batch, smp); len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case smp := <-s.queue:
					batch = append(batch, smp)
				default:
					flush()
					return
				}
			}
		}
	}
}

// insert writes samples in one transaction. A row that fails is logged
// and skipped.
func (s *Storage) insert(batch []sample) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO container_stats (container_id, timestamp, cpu_percent, memory_percent,
		memory_usage, memory_limit, network_rx, network_tx, isolated, warning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, smp := range batch {
		st := smp.stats
		_, err := stmt.Exec(smp.containerID, st.Timestamp.Unix(), st.CPUPercent, st.MemoryPercent,
			int64(st.MemoryUsageBytes), int64(st.MemoryLimitBytes), int64(st.NetworkRxBytes), int64(st.NetworkTxBytes),
			st.IsIsolatedContainer, st.Warning)
		if err != nil {
			s.logger.Debug("skipping stats row", zap.String("container", smp.containerID), zap.Error(err))
		}
	}
	return tx.Commit()
}

// Query returns the container's series for r, oldest first. Samples are
// averaged per bucket for the longer ranges.
func (s *Storage) Query(containerID string, r TimeRange) ([]DataPoint, error) {
	bucket := max(r.bucketSeconds(), 1)
	since := time.Now().Add(-r.Duration()).Unix()

	rows, err := s.db.Query(`SELECT (timestamp / ?) * ? AS bucket, AVG(cpu_percent), AVG(memory_percent)
		FROM container_stats
		WHERE container_id = ? AND timestamp > ?
		GROUP BY bucket
		ORDER BY bucket`, bucket, bucket, containerID, since)
	if err != nil {
		return nil, fmt.Errorf("query stats of %s: %w", containerID, err)
	}
	defer rows.Close()

	var points []DataPoint
	for rows.Next() {
		var (
			ts       int64
			cpu, mem sql.NullFloat64
		)
		if err := rows.Scan(&ts, &cpu, &mem); err != nil {
			return nil, err
		}
		points = append(points, DataPoint{Timestamp: time.Unix(ts, 0), CPUPercent: cpu.Float64, MemoryPercent: mem.Float64})
	}
	return points, rows.Err()
}

func (s *Storage) pruneLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.prune(time.Now().Add(-s.retention))
			if err != nil {
				s.logger.Warn("stats retention cleanup failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Debug("pruned old stats", zap.Int64("rows", n))
			}
		case <-s.done:
			return
		}
	}
}

// prune deletes samples older than cutoff in small batches so the single
// connection is never held for long.
func (s *Storage) prune(cutoff time.Time) (int64, error) {
	var total int64
	for {
		res, err := s.db.Exec(`DELETE FROM container_stats WHERE id IN (
			SELECT id FROM container_stats WHERE timestamp < ? LIMIT ?)`, cutoff.Unix(), pruneBatch)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return total, err
		}
		total += n

		select {
		case <-s.done:
			return total, nil
		case <-time.After(prunePause):
		}
	}
}

// Close flushes queued samples and closes the database. It is safe to
// call more than once.
func (s *Storage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
