package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-sql/sqlexp"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"

	sqltext "github.com/cdacos/sql-info-streamer/internal/db/sql"
	"github.com/cdacos/sql-info-streamer/internal/events"
)

type state int

const (
	stateIdle state = iota
	stateConnecting
	stateExecuting
	stateStreaming
	stateFinalizing
	stateCompleted
	stateFailed
	stateCancelled
)

// Session executes a single statement and turns its progress into the
// event stream. It exclusively owns the connection and the cursor for
// the lifetime of one Run call; every exit path releases both.
//
// Cancellation is cooperative: the context is re-checked at each
// suspension point, and cancelling it makes the driver send a
// best-effort attention request so server-side work stops too.
type Session struct {
	driverName string
	dsn        string
	timeout    time.Duration
	emitter    *events.Emitter
	log        *slog.Logger
	state      state
}

type outParam struct {
	name  string
	value sql.NullString
}

func NewSession(dsn string, timeout time.Duration, emitter *events.Emitter) *Session {
	return &Session{
		driverName: "sqlserver",
		dsn:        dsn,
		timeout:    timeout,
		emitter:    emitter,
		log:        slog.With("execution_id", uuid.NewString()),
		state:      stateIdle,
	}
}

// Run drives one execution end to end: exactly one started event first,
// then whatever the statement produces, then exactly one terminal event.
// The returned error mirrors the terminal event so the caller can map it
// to an exit code.
func (s *Session) Run(ctx context.Context, statement string) error {
	if err := s.emitter.Emit(events.NewStarted()); err != nil {
		return err
	}

	err := s.execute(ctx, statement)
	if err == nil {
		s.state = stateCompleted
		s.log.InfoContext(ctx, "Statement completed")
		return s.emitter.Emit(events.NewCompleted("Statement executed successfully"))
	}

	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		s.state = stateCancelled
		s.log.WarnContext(ctx, "Execution cancelled", "error", err)
		if emitErr := s.emitter.Emit(events.NewInfo("Execution cancelled; shutting down gracefully", nil, nil)); emitErr != nil {
			s.log.WarnContext(ctx, "Unable to emit cancellation event", "error", emitErr)
		}
		return err
	}

	s.state = stateFailed
	s.log.ErrorContext(ctx, "Execution failed", "error", err)

	ev := events.NewError(err.Error(), nil, nil)
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		ev = events.NewError(cmdErr.Err.Error(), cmdErr.Severity, cmdErr.ErrorNumber)
	}
	if emitErr := s.emitter.Emit(ev); emitErr != nil {
		s.log.WarnContext(ctx, "Unable to emit error event", "error", emitErr)
	}

	return err
}

func (s *Session) execute(ctx context.Context, statement string) error {
	s.state = stateConnecting
	pool, err := sql.Open(s.driverName, s.dsn)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer pool.Close()

	if err := pool.PingContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return &CancellationError{Err: err}
		}
		return &ConnectionError{Err: err}
	}
	s.log.InfoContext(ctx, "Connected")

	params := sqltext.OutputParams(statement)
	outs := make([]outParam, len(params))
	retmsg := &sqlexp.ReturnMessage{}

	args := make([]any, 0, len(params)+1)
	args = append(args, retmsg)
	for i, name := range params {
		outs[i].name = name
		args = append(args, sql.Named(strings.TrimPrefix(name, "@"), sql.Out{Dest: &outs[i].value}))
	}
	if len(params) > 0 {
		s.log.InfoContext(ctx, "Detected output parameters", "parameters", params)
	}

	qctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.state = stateExecuting
	rows, err := pool.QueryContext(qctx, statement, args...)
	if err != nil {
		return s.classify(err)
	}
	defer rows.Close()

	s.state = stateStreaming
	st := &streamer{emitter: s.emitter}

	var execErr error
	results := true
	for execErr == nil && results {
		if qctx.Err() != nil {
			execErr = qctx.Err()
			break
		}

		switch m := retmsg.Message(qctx).(type) {
		case sqlexp.MsgNotice:
			s.emitNotice(qctx, m)
		case sqlexp.MsgError:
			execErr = m.Error
		case sqlexp.MsgRowsAffected:
			s.log.DebugContext(qctx, "Rows affected", "count", m.Count)
		case sqlexp.MsgNextResultSet:
			results = rows.NextResultSet()
			if err := rows.Err(); err != nil {
				execErr = err
			}
		case sqlexp.MsgNext:
			execErr = st.stream(qctx, rows)
		}
	}
	if execErr != nil {
		return s.classify(execErr)
	}

	// Output parameter values are only valid once the cursor is closed.
	s.state = stateFinalizing
	if err := rows.Close(); err != nil {
		return s.classify(err)
	}

	if len(outs) > 0 {
		if err := s.emitter.Emit(events.NewOutputParameters(outParamValues(outs))); err != nil {
			return err
		}
	}

	return nil
}

func outParamValues(outs []outParam) map[string]*string {
	values := make(map[string]*string, len(outs))
	for _, p := range outs {
		if p.value.Valid {
			v := p.value.String
			values[p.name] = &v
		} else {
			values[p.name] = nil
		}
	}
	return values
}

// emitNotice forwards a server progress message as an info event,
// carrying the server severity and error number when present.
func (s *Session) emitNotice(ctx context.Context, m sqlexp.MsgNotice) {
	var ev events.Info
	if srvErr, ok := m.Message.(mssql.Error); ok {
		severity := int(srvErr.Class)
		number := int(srvErr.Number)
		ev = events.NewInfo(srvErr.Message, &severity, &number)
	} else {
		ev = events.NewInfo(m.Message.String(), nil, nil)
	}

	if err := s.emitter.Emit(ev); err != nil {
		s.log.WarnContext(ctx, "Unable to emit server message", "error", err)
	}
}

func (s *Session) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return &CancellationError{Err: err}
	}

	var srvErr mssql.Error
	if errors.As(err, &srvErr) {
		severity := int(srvErr.Class)
		number := int(srvErr.Number)
		return &CommandError{Severity: &severity, ErrorNumber: &number, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &CommandError{Err: err}
	}

	return err
}
