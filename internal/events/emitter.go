package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Emitter writes one JSON object per line to the sink and flushes after
// every event, so an incremental reader sees each event as soon as it is
// produced. Emission is serialized: the engine is a single sequential
// flow, but the server message callback and the row loop must never
// interleave partial lines.
type Emitter struct {
	mu  sync.Mutex
	buf *bufio.Writer
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{buf: bufio.NewWriter(w)}
}

func (e *Emitter) Emit(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error encoding %s event: %w", ev.Kind(), err)
	}

	if _, err := e.buf.Write(data); err != nil {
		return fmt.Errorf("error writing %s event: %w", ev.Kind(), err)
	}
	if err := e.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("error writing %s event: %w", ev.Kind(), err)
	}

	return e.buf.Flush()
}
