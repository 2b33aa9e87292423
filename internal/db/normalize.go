package db

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/cdacos/sql-info-streamer/internal/events"
)

// normalizeValue maps a driver-native cell value to a JSON-safe string,
// or nil for NULL. The same mapping is applied to result-set cells and
// output-parameter values.
func normalizeValue(value any) *string {
	if value == nil {
		return nil
	}

	var s string
	switch v := value.(type) {
	case []byte:
		s = base64.StdEncoding.EncodeToString(v)
	case time.Time:
		s = v.UTC().Format(events.TimestampLayout)
	case string:
		s = v
	default:
		s = fmt.Sprintf("%v", v)
	}

	return &s
}
