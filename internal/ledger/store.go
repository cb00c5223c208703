package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"go.uber.org/zap"
)

// Store persists ledgers of one or more runs in an in-memory DuckDB database and exports
// them to Parquet.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewStore opens an in-memory database and creates the ledger tables.
func NewStore(logger *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to open database", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.Initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// Initialize creates the fills and trades tables.
func (s *Store) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			run_id TEXT,
			seq INTEGER,
			time TIMESTAMP,
			bar_index INTEGER,
			side TEXT,
			position_side TEXT,
			quantity DOUBLE,
			price DOUBLE,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to create fills table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			trade_id INTEGER,
			side TEXT,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			entry_index INTEGER,
			exit_index INTEGER,
			entry_price DOUBLE,
			exit_price DOUBLE,
			stake DOUBLE,
			quantity DOUBLE,
			pnl DOUBLE,
			exit_reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to create trades table", err)
	}

	return nil
}

// Save inserts the fills and trades of a run in a single transaction.
func (s *Store) Save(runID string, fills []types.Fill, trades []types.Trade) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to begin transaction", err)
	}

	for i, fill := range fills {
		_, err := s.sq.
			Insert("fills").
			Columns("run_id", "seq", "time", "bar_index", "side", "position_side", "quantity", "price", "reason").
			Values(runID, i, fill.Time, fill.Index, string(fill.Side), string(fill.PositionSide), fill.Quantity, fill.Price, fill.Reason).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeLedgerWriteFailed, err, "failed to insert fill %d", i)
		}
	}

	for _, trade := range trades {
		_, err := s.sq.
			Insert("trades").
			Columns(
				"run_id", "trade_id", "side", "entry_time", "exit_time", "entry_index", "exit_index",
				"entry_price", "exit_price", "stake", "quantity", "pnl", "exit_reason",
			).
			Values(
				runID, trade.ID, string(trade.Side), trade.EntryTime, trade.ExitTime, trade.EntryIndex, trade.ExitIndex,
				trade.EntryPrice, trade.ExitPrice, trade.Stake, trade.Quantity, trade.PnL, string(trade.ExitReason),
			).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeLedgerWriteFailed, err, "failed to insert trade %d", trade.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to commit ledger", err)
	}

	s.logger.Debug("Saved ledger",
		zap.String("run_id", runID),
		zap.Int("fills", len(fills)),
		zap.Int("trades", len(trades)),
	)

	return nil
}

// Trades returns the trades of a run ordered by trade id.
func (s *Store) Trades(runID string) ([]types.Trade, error) {
	rows, err := s.sq.
		Select(
			"trade_id", "side", "entry_time", "exit_time", "entry_index", "exit_index",
			"entry_price", "exit_price", "stake", "quantity", "pnl", "exit_reason",
		).
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("trade_id ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	trades := make([]types.Trade, 0)

	for rows.Next() {
		var trade types.Trade

		err := rows.Scan(
			&trade.ID,
			&trade.Side,
			&trade.EntryTime,
			&trade.ExitTime,
			&trade.EntryIndex,
			&trade.ExitIndex,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.Stake,
			&trade.Quantity,
			&trade.PnL,
			&trade.ExitReason,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// Fills returns the fills of a run in execution order.
func (s *Store) Fills(runID string) ([]types.Fill, error) {
	rows, err := s.sq.
		Select("time", "bar_index", "side", "position_side", "quantity", "price", "reason").
		From("fills").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("seq ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query fills", err)
	}
	defer rows.Close()

	fills := make([]types.Fill, 0)

	for rows.Next() {
		var fill types.Fill

		err := rows.Scan(
			&fill.Time,
			&fill.Index,
			&fill.Side,
			&fill.PositionSide,
			&fill.Quantity,
			&fill.Price,
			&fill.Reason,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan fill", err)
		}

		fills = append(fills, fill)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating fills", err)
	}

	return fills, nil
}

// Write exports the trades and fills of a run to trades.parquet and fills.parquet in dir.
func (s *Store) Write(runID string, dir string) (tradesPath string, fillsPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create directory", err)
	}

	tradesPath = filepath.Join(dir, "trades.parquet")
	fillsPath = filepath.Join(dir, "fills.parquet")

	// COPY takes no bind parameters, so the run id is inlined as a quoted literal
	runFilter := fmt.Sprintf("run_id = '%s'", quoteLiteral(runID))

	exports := []struct {
		query string
		path  string
	}{
		{
			query: fmt.Sprintf("SELECT * EXCLUDE (run_id) FROM trades WHERE %s ORDER BY trade_id", runFilter),
			path:  tradesPath,
		},
		{
			query: fmt.Sprintf("SELECT * EXCLUDE (run_id, seq) FROM fills WHERE %s ORDER BY seq", runFilter),
			path:  fillsPath,
		},
	}

	for _, export := range exports {
		_, err := s.db.Exec(fmt.Sprintf(`COPY (%s) TO '%s' (FORMAT PARQUET)`, export.query, quoteLiteral(export.path)))
		if err != nil {
			return "", "", errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to export %s", export.path)
		}
	}

	s.logger.Info("Successfully exported ledger to Parquet files",
		zap.String("trades", tradesPath),
		zap.String("fills", fillsPath),
	)

	return tradesPath, fillsPath, nil
}

// Cleanup drops and recreates the tables.
func (s *Store) Cleanup() error {
	_, err := s.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS fills;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to cleanup tables", err)
	}

	return s.Initialize()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// quoteLiteral escapes s for use inside a single-quoted SQL string.
func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
