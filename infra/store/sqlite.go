package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rvigier/loadshift/core/logger"
	"github.com/rvigier/loadshift/core/model"
)

// Config points the store at its database file.
type Config struct {
	Path string `json:"path"`
}

// SQLiteStore loads planning parameters from and persists results to a
// SQLite database. It is the typed boundary of the planner: every numeric
// column arrives as a number, the core never parses strings.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS machines (
	machine_id INTEGER NOT NULL,
	system_id INTEGER NOT NULL,
	rated_power REAL NOT NULL,
	operation_slots INTEGER NOT NULL DEFAULT 0,
	early_slot INTEGER,
	late_slot INTEGER,
	predecessor INTEGER,
	PRIMARY KEY(machine_id, system_id)
);
CREATE TABLE IF NOT EXISTS tou_prices (
	time_slot INTEGER PRIMARY KEY,
	price REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS incentives (
	time_slot INTEGER PRIMARY KEY,
	incentive REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS systems (
	system_id INTEGER PRIMARY KEY,
	budget REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	name TEXT PRIMARY KEY,
	value REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	approach TEXT PRIMARY KEY,
	ec REAL NOT NULL,
	pl REAL NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS schedules (
	approach TEXT NOT NULL,
	system_id INTEGER NOT NULL,
	machine_id INTEGER NOT NULL,
	time_slot INTEGER NOT NULL,
	status INTEGER NOT NULL,
	power REAL NOT NULL,
	PRIMARY KEY(approach, system_id, machine_id, time_slot)
);
CREATE TABLE IF NOT EXISTS comparison (
	approach TEXT PRIMARY KEY,
	ec REAL NOT NULL,
	pl REAL NOT NULL
);`

// defaults applied when the input tables leave a value out.
const (
	defaultSlotHours = 0.25
	defaultBudget    = 5000.0
)

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(cfg Config, log logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, log: log}, nil
}

// LoadParameters reads the full parameter set for one planning run.
func (s *SQLiteStore) LoadParameters(ctx context.Context) (model.Parameters, error) {
	p := model.Parameters{
		RatedPower:   make(map[model.MachineKey]float64),
		MinSlots:     make(map[model.MachineKey]int),
		EarliestSlot: make(map[model.MachineKey]int),
		LatestSlot:   make(map[model.MachineKey]int),
		Predecessors: make(map[model.MachineKey]int),
		Prices:       make(map[int]float64),
		Incentives:   make(map[int]float64),
		Budgets:      make(map[int]float64),
		SlotHours:    defaultSlotHours,
	}

	rows, err := s.db.QueryContext(ctx, `SELECT machine_id, system_id, rated_power,
		operation_slots, early_slot, late_slot, predecessor FROM machines`)
	if err != nil {
		return p, fmt.Errorf("load machines: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var machine, system, minSlots int
		var power float64
		var early, late, pred sql.NullInt64
		if err := rows.Scan(&machine, &system, &power, &minSlots, &early, &late, &pred); err != nil {
			return p, fmt.Errorf("scan machine: %w", err)
		}
		k := model.MachineKey{Machine: machine, System: system}
		p.RatedPower[k] = power
		p.MinSlots[k] = minSlots
		if early.Valid {
			p.EarliestSlot[k] = int(early.Int64)
		}
		if late.Valid {
			p.LatestSlot[k] = int(late.Int64)
		}
		if pred.Valid {
			p.Predecessors[k] = int(pred.Int64)
		}
		if machine > p.Machines {
			p.Machines = machine
		}
		if system > p.Systems {
			p.Systems = system
		}
	}
	if err := rows.Err(); err != nil {
		return p, err
	}

	if err := s.loadSlotValues(ctx, `SELECT time_slot, price FROM tou_prices`, p.Prices, &p.Slots); err != nil {
		return p, fmt.Errorf("load prices: %w", err)
	}
	if err := s.loadSlotValues(ctx, `SELECT time_slot, incentive FROM incentives`, p.Incentives, nil); err != nil {
		return p, fmt.Errorf("load incentives: %w", err)
	}

	budgetRows, err := s.db.QueryContext(ctx, `SELECT system_id, budget FROM systems`)
	if err != nil {
		return p, fmt.Errorf("load systems: %w", err)
	}
	defer func() { _ = budgetRows.Close() }()
	for budgetRows.Next() {
		var system int
		var budget float64
		if err := budgetRows.Scan(&system, &budget); err != nil {
			return p, fmt.Errorf("scan system: %w", err)
		}
		p.Budgets[system] = budget
	}
	if err := budgetRows.Err(); err != nil {
		return p, err
	}
	for system := 1; system <= p.Systems; system++ {
		if _, ok := p.Budgets[system]; !ok {
			s.log.Warnf("no budget for system %d, using default %v", system, defaultBudget)
			p.Budgets[system] = defaultBudget
		}
	}

	var alpha float64
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = 'alpha'`).Scan(&alpha)
	switch {
	case err == nil:
		p.SlotHours = alpha
	case err == sql.ErrNoRows:
		s.log.Warnf("no alpha setting, using default %v", defaultSlotHours)
	default:
		return p, fmt.Errorf("load alpha: %w", err)
	}

	return p, nil
}

func (s *SQLiteStore) loadSlotValues(ctx context.Context, query string, dst map[int]float64, maxSlot *int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var slot int
		var value float64
		if err := rows.Scan(&slot, &value); err != nil {
			return err
		}
		dst[slot] = value
		if maxSlot != nil && slot > *maxSlot {
			*maxSlot = slot
		}
	}
	return rows.Err()
}

// SaveResult replaces the stored result and schedule of one approach.
func (s *SQLiteStore) SaveResult(ctx context.Context, res *model.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO results (approach, ec, pl, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(approach) DO UPDATE SET
			ec = excluded.ec, pl = excluded.pl, created_at = excluded.created_at`,
		res.Approach, res.EC, res.PL, time.Now().Unix()); err != nil {
		return fmt.Errorf("save result %s: %w", res.Approach, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE approach = ?`, res.Approach); err != nil {
		return err
	}
	for _, e := range res.Schedule {
		if _, err := tx.ExecContext(ctx, `INSERT INTO schedules
			(approach, system_id, machine_id, time_slot, status, power)
			VALUES (?, ?, ?, ?, ?, ?)`,
			res.Approach, e.SystemID, e.MachineID, e.TimeSlot, e.Status, e.Power); err != nil {
			return fmt.Errorf("save schedule %s: %w", res.Approach, err)
		}
	}
	return tx.Commit()
}

// SaveComparison replaces the comparison table contents.
func (s *SQLiteStore) SaveComparison(ctx context.Context, rows []model.ComparisonRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comparison`); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO comparison (approach, ec, pl) VALUES (?, ?, ?)`,
			r.Approach, r.EC, r.PL); err != nil {
			return fmt.Errorf("save comparison %s: %w", r.Approach, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
