package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamps travel between the adapter and the engine as signed 64-bit
// microsecond-epoch integers. SELECT column lists wrap every timestamp
// column in tsCol's integer extraction; bound parameters go through tsParam.
// A float-second extraction would lose precision below the second, so the
// integer transport is mandatory in both directions.

// tsCol renders the canonical SELECT expression extracting a timestamptz
// column as epoch microseconds.
func tsCol(column string) string {
	return fmt.Sprintf("(extract(epoch from %s) * 1000000)::bigint", column)
}

// tsParam renders the canonical expression converting an epoch-microsecond
// bound parameter back to timestamptz. A NULL parameter yields NULL.
func tsParam(position int) string {
	return fmt.Sprintf("to_timestamp($%d::bigint / 1000000.0)", position)
}

// encodeTime converts a domain timestamp to its epoch-microsecond transport
// value.
func encodeTime(t time.Time) int64 {
	return t.UnixMicro()
}

// encodeTimePtr converts an optional domain timestamp to a bindable value:
// nil stays nil (SQL NULL).
func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}

	return encodeTime(*t)
}

// decodeTime converts an epoch-microsecond transport value back to a UTC
// timestamp.
func decodeTime(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// decodeTimePtr converts a nullable epoch-microsecond column value to an
// optional timestamp.
func decodeTimePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}

	t := decodeTime(v.Int64)
	return &t
}

// encodeMetadata serializes caller-supplied structured metadata for a JSON
// text column. nil maps encode as the empty object so the column stays
// non-null.
func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("error encoding metadata: %w", err)
	}

	return raw, nil
}

// decodeMetadata deserializes a JSON text column into a value of type T.
// On any decode failure the caller-supplied fallback is returned instead of
// an error: one malformed metadata blob must not mask an otherwise valid row
// elsewhere in a batch query.
func decodeMetadata[T any](raw sql.NullString, fallback T) T {
	if !raw.Valid || raw.String == "" {
		return fallback
	}

	var out T
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return fallback
	}

	return out
}
