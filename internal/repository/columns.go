package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// builder returns an ent SQL builder for the handle's dialect.
func (d *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.Dialect)
}

// timeArg binds t in a form both drivers read back. SQLite columns are TEXT.
func (d *DB) timeArg(t time.Time) any {
	if d.Dialect == dialect.SQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

func jsonArg(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

// jsonColumn scans a nullable JSON or JSONB column.
type jsonColumn struct {
	raw []byte
}

func (j *jsonColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		j.raw = nil
	case []byte:
		j.raw = append([]byte(nil), v...)
	case string:
		j.raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("scan json column from %T: %w", src, err)
		}
		j.raw = b
	}
	return nil
}

func (j jsonColumn) Valid() bool { return len(j.raw) > 0 && string(j.raw) != "null" }

func (j jsonColumn) Decode(dst any) error {
	if !j.Valid() {
		return nil
	}
	return json.Unmarshal(j.raw, dst)
}

// timeColumn scans TIMESTAMPTZ values and their SQLite TEXT form.
type timeColumn struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (t *timeColumn) Scan(src any) error {
	t.Valid = false
	var s string
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("scan time column from %T", src)
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

func (t timeColumn) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
