package events

import "time"

type Type string

const (
	TypeStarted          Type = "started"
	TypeInfo             Type = "info"
	TypeResultSetStart   Type = "resultSetStart"
	TypeRow              Type = "row"
	TypeResultSetEnd     Type = "resultSetEnd"
	TypeOutputParameters Type = "outputParameters"
	TypeCompleted        Type = "completed"
	TypeError            Type = "error"
)

// TimestampLayout is the wire format for event timestamps: UTC,
// millisecond precision, trailing Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type header struct {
	Type      Type   `json:"type"`
	Timestamp string `json:"timestamp"`
}

func newHeader(t Type) header {
	return header{Type: t, Timestamp: time.Now().UTC().Format(TimestampLayout)}
}

func (h header) Kind() Type { return h.Type }

// Event is implemented by every wire event variant.
type Event interface {
	Kind() Type
}

type Started struct {
	header
}

type Info struct {
	header
	Message     string `json:"message"`
	Severity    *int   `json:"severity,omitempty"`
	ErrorNumber *int   `json:"errorNumber,omitempty"`
}

type ResultSetStart struct {
	header
	ResultSetIndex int      `json:"resultSetIndex"`
	Columns        []string `json:"columns"`
}

type Row struct {
	header
	ResultSetIndex int                `json:"resultSetIndex"`
	RowIndex       int                `json:"rowIndex"`
	Data           map[string]*string `json:"data"`
}

type ResultSetEnd struct {
	header
	ResultSetIndex int `json:"resultSetIndex"`
	TotalRows      int `json:"totalRows"`
}

type OutputParameters struct {
	header
	Parameters map[string]*string `json:"parameters"`
}

type Completed struct {
	header
	Message string `json:"message"`
}

type Error struct {
	header
	Message     string `json:"message"`
	Severity    *int   `json:"severity,omitempty"`
	ErrorNumber *int   `json:"errorNumber,omitempty"`
}

func NewStarted() Started {
	return Started{header: newHeader(TypeStarted)}
}

func NewInfo(message string, severity, errorNumber *int) Info {
	return Info{
		header:      newHeader(TypeInfo),
		Message:     message,
		Severity:    severity,
		ErrorNumber: errorNumber,
	}
}

func NewResultSetStart(index int, columns []string) ResultSetStart {
	return ResultSetStart{
		header:         newHeader(TypeResultSetStart),
		ResultSetIndex: index,
		Columns:        columns,
	}
}

func NewRow(index, rowIndex int, data map[string]*string) Row {
	return Row{
		header:         newHeader(TypeRow),
		ResultSetIndex: index,
		RowIndex:       rowIndex,
		Data:           data,
	}
}

func NewResultSetEnd(index, totalRows int) ResultSetEnd {
	return ResultSetEnd{
		header:         newHeader(TypeResultSetEnd),
		ResultSetIndex: index,
		TotalRows:      totalRows,
	}
}

func NewOutputParameters(parameters map[string]*string) OutputParameters {
	return OutputParameters{
		header:     newHeader(TypeOutputParameters),
		Parameters: parameters,
	}
}

func NewCompleted(message string) Completed {
	return Completed{header: newHeader(TypeCompleted), Message: message}
}

func NewError(message string, severity, errorNumber *int) Error {
	return Error{
		header:      newHeader(TypeError),
		Message:     message,
		Severity:    severity,
		ErrorNumber: errorNumber,
	}
}
