package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cdacos/sql-info-streamer/internal/events"
)

// rowSource is the part of *sql.Rows the streamer needs. Narrowing it
// keeps the streaming loop testable without a live server.
type rowSource interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// streamer walks the active result sets of one execution and emits
// resultSetStart/row/resultSetEnd as rows are read. Nothing is buffered:
// each row is normalized, emitted and discarded, so memory stays
// proportional to row width. Result sets with zero columns are skipped
// and do not consume an index.
type streamer struct {
	emitter *events.Emitter
	index   int
}

func (st *streamer) stream(ctx context.Context, rows rowSource) error {
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("error identifying columns: %w", err)
	}

	if len(cols) == 0 {
		return rows.Err()
	}

	index := st.index
	st.index++

	if err := st.emitter.Emit(events.NewResultSetStart(index, cols)); err != nil {
		return err
	}

	colPointers := make([]any, len(cols))
	colValues := make([]any, len(cols))

	count := 0
	for rows.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for i := range colValues {
			colPointers[i] = &colValues[i]
		}

		if err := rows.Scan(colPointers...); err != nil {
			slog.ErrorContext(ctx, "Error scanning row", "result_set", index, "row", count, "error", err)
			return fmt.Errorf("error scanning row: %w", err)
		}

		data := make(map[string]*string, len(cols))
		for i, name := range cols {
			data[name] = normalizeValue(colValues[i])
		}

		if err := st.emitter.Emit(events.NewRow(index, count, data)); err != nil {
			return err
		}
		count++
	}

	if err := rows.Err(); err != nil {
		return err
	}

	return st.emitter.Emit(events.NewResultSetEnd(index, count))
}
