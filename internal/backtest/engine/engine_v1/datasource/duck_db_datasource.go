package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"go.uber.org/zap"
)

const barsView = "bars"

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource opens a DuckDB database at dbPath (":memory:" for an in-process database).
// Bar files are attached later with Initialize.
func NewDataSource(dbPath string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource. CSV and Parquet files are exposed through the same view
// with the columns cast to the bar schema.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s;", barsView))
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	reader := "read_parquet"
	if format == FormatCSV {
		reader = "read_csv_auto"
	}

	// squirrel has no CREATE VIEW support
	query := fmt.Sprintf(`
		CREATE VIEW %s AS
		SELECT
			CAST(time AS TIMESTAMP) AS time,
			CAST(open AS DOUBLE) AS open,
			CAST(high AS DOUBLE) AS high,
			CAST(low AS DOUBLE) AS low,
			CAST(close AS DOUBLE) AS close,
			CAST(volume AS DOUBLE) AS volume
		FROM %s('%s');
	`, barsView, reader, strings.ReplaceAll(path, "'", "''"))

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to load bars from %s", path)
	}

	return nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(options ReadOptions) (int, error) {
	query, args, err := d.buildQuery(options)
	if err != nil {
		return 0, err
	}

	var count int

	err = d.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS selected", query), args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(options ReadOptions) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		d.logger.Debug("Reading bars from DuckDB")

		query, args, err := d.buildQuery(options)
		if err != nil {
			yield(types.Bar{}, err)

			return
		}

		stmt, err := d.db.Prepare(query)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to prepare query", err))

			return
		}
		defer stmt.Close()

		rows, err := stmt.Query(args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var bar types.Bar

			err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
			if err != nil {
				yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err))

				return
			}

			bar.Time = bar.Time.UTC()

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err))
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

// buildQuery selects the bars in the requested range, aggregated into time buckets when an
// interval is given.
func (d *DuckDBDataSource) buildQuery(options ReadOptions) (string, []any, error) {
	conditions := squirrel.And{}

	if options.Start.IsSome() {
		conditions = append(conditions, squirrel.GtOrEq{"time": options.Start.Unwrap()})
	}

	if options.End.IsSome() {
		conditions = append(conditions, squirrel.LtOrEq{"time": options.End.Unwrap()})
	}

	var builder squirrel.SelectBuilder

	if options.Interval.IsNone() {
		builder = d.sq.
			Select("time", "open", "high", "low", "close", "volume").
			From(barsView).
			OrderBy("time ASC")
	} else {
		size, err := options.Interval.Unwrap().Duration()
		if err != nil {
			return "", nil, err
		}

		builder = d.sq.
			Select(
				fmt.Sprintf("time_bucket(INTERVAL '%d minutes', time) AS bucket_time", int(size/time.Minute)),
				"arg_min(open, time) AS open",
				"MAX(high) AS high",
				"MIN(low) AS low",
				"arg_max(close, time) AS close",
				"SUM(volume) AS volume",
			).
			From(barsView).
			GroupBy("bucket_time").
			OrderBy("bucket_time ASC")
	}

	if len(conditions) > 0 {
		builder = builder.Where(conditions)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	return query, args, nil
}

var _ DataSource = (*DuckDBDataSource)(nil)

