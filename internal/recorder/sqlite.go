package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists ledger history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the pool writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			participant  TEXT NOT NULL,
			amount       TEXT,
			payout       TEXT,
			forfeited    TEXT,
			total_staked TEXT,
			old_value    TEXT,
			new_value    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON ledger_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_participant ON ledger_events(participant, timestamp)`,

		`CREATE TABLE IF NOT EXISTS pool_snapshots (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp           INTEGER NOT NULL,
			total_staked        TEXT,
			total_rewards       TEXT,
			forfeited           TEXT,
			participants        INTEGER,
			stakers             INTEGER,
			reward_rate_percent INTEGER,
			locked_time_seconds INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON pool_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvent(evt *model.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ledger_events
		(id, timestamp, kind, participant, amount, payout, forfeited, total_staked, old_value, new_value)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.Timestamp.Unix(), string(evt.Kind), string(evt.Participant),
		dec(evt.Amount), dec(evt.Payout), dec(evt.Forfeited), dec(evt.TotalStaked),
		evt.OldValue, evt.NewValue,
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap *model.PoolSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO pool_snapshots
		(timestamp, total_staked, total_rewards, forfeited, participants, stakers,
		 reward_rate_percent, locked_time_seconds)
		VALUES (?,?,?,?,?,?,?,?)`,
		snap.TakenAt.Unix(), dec(snap.TotalStaked), dec(snap.TotalRewards), dec(snap.Forfeited),
		snap.Participants, snap.Stakers,
		snap.Params.RewardRatePercent, int64(snap.Params.LockedTime/time.Second),
	)
	return err
}

func (r *SQLiteRecorder) History(participant model.Address, limit int) ([]model.LedgerEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, timestamp, kind, participant, amount, payout, forfeited, total_staked, old_value, new_value
		FROM ledger_events`
	args := []any{}
	if participant != "" {
		query += ` WHERE participant = ?`
		args = append(args, string(participant))
	}
	query += ` ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEvent
	for rows.Next() {
		var (
			evt                                    model.LedgerEvent
			ts                                     int64
			kind, who                              string
			amount, payout, forfeited, totalStaked sql.NullString
			oldValue, newValue                     sql.NullString
		)
		if err := rows.Scan(&evt.ID, &ts, &kind, &who, &amount, &payout, &forfeited, &totalStaked, &oldValue, &newValue); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		evt.Timestamp = time.Unix(ts, 0).UTC()
		evt.Kind = model.OpKind(kind)
		evt.Participant = model.Address(who)
		evt.OldValue = oldValue.String
		evt.NewValue = newValue.String
		if evt.Amount, err = parse(amount); err != nil {
			return nil, err
		}
		if evt.Payout, err = parse(payout); err != nil {
			return nil, err
		}
		if evt.Forfeited, err = parse(forfeited); err != nil {
			return nil, err
		}
		if evt.TotalStaked, err = parse(totalStaked); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func dec(v *uint256.Int) any {
	if v == nil {
		return nil
	}
	return v.Dec()
}

func parse(s sql.NullString) (*uint256.Int, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	return model.ParseAmount(s.String)
}
