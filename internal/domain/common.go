package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// Audit carries the bookkeeping columns shared by every curated entity.
// History events themselves are emitted by the surrounding tracking
// extension, not by this service.
type Audit struct {
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at" api:"readonly"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at" api:"readonly"`
	CreatedByID  *uuid.UUID     `gorm:"type:uuid;column:created_by_id" json:"created_by_id,omitempty" api:"readonly"`
	UpdatedByIDs datatypes.JSON `gorm:"type:jsonb;column:updated_by_ids" json:"updated_by_ids,omitempty" api:"readonly"`
}

// Period is a closed date range persisted as a Postgres daterange. Both
// bounds are inclusive on the Go side; Scan normalizes the canonical
// half-open form Postgres hands back.
type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

func (p Period) GormDataType() string { return "daterange" }

func (p Period) Value() (driver.Value, error) {
	if p.Start == nil && p.End == nil {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('[')
	if p.Start != nil {
		b.WriteString(p.Start.Format(dateLayout))
	}
	b.WriteByte(',')
	if p.End != nil {
		b.WriteString(p.End.Format(dateLayout))
	}
	b.WriteByte(']')
	return b.String(), nil
}

func (p *Period) Scan(src any) error {
	if src == nil {
		*p = Period{}
		return nil
	}
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan Period: unsupported type %T", src)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "empty" {
		*p = Period{}
		return nil
	}
	if len(raw) < 2 {
		return fmt.Errorf("scan Period: malformed range %q", raw)
	}
	lowerInclusive := raw[0] == '['
	upperInclusive := raw[len(raw)-1] == ']'
	parts := strings.SplitN(raw[1:len(raw)-1], ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("scan Period: malformed range %q", raw)
	}
	out := Period{}
	if s := trimRangeBound(parts[0]); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return fmt.Errorf("scan Period start: %w", err)
		}
		if !lowerInclusive {
			t = t.AddDate(0, 0, 1)
		}
		out.Start = &t
	}
	if s := trimRangeBound(parts[1]); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return fmt.Errorf("scan Period end: %w", err)
		}
		if !upperInclusive {
			t = t.AddDate(0, 0, -1)
		}
		out.End = &t
	}
	*p = out
	return nil
}

func trimRangeBound(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// Contains reports whether t falls within the period, treating missing
// bounds as open.
func (p Period) Contains(t time.Time) bool {
	if p.Start != nil && t.Before(*p.Start) {
		return false
	}
	if p.End != nil && t.After(*p.End) {
		return false
	}
	return true
}

// Overlaps reports whether two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	if p.Start != nil && other.End != nil && other.End.Before(*p.Start) {
		return false
	}
	if p.End != nil && other.Start != nil && other.Start.After(*p.End) {
		return false
	}
	return true
}

// Envelope renders the external {start, end} object.
func (p Period) Envelope() map[string]any {
	out := map[string]any{}
	if p.Start != nil {
		out["start"] = p.Start.Format(dateLayout)
	}
	if p.End != nil {
		out["end"] = p.End.Format(dateLayout)
	}
	return out
}

// IntRange is a closed integer range persisted as int4range.
type IntRange struct {
	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`
}

func (r IntRange) GormDataType() string { return "int4range" }

func (r IntRange) Value() (driver.Value, error) {
	if r.Start == nil && r.End == nil {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('[')
	if r.Start != nil {
		b.WriteString(strconv.Itoa(*r.Start))
	}
	b.WriteByte(',')
	if r.End != nil {
		b.WriteString(strconv.Itoa(*r.End))
	}
	b.WriteByte(']')
	return b.String(), nil
}

func (r *IntRange) Scan(src any) error {
	if src == nil {
		*r = IntRange{}
		return nil
	}
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan IntRange: unsupported type %T", src)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "empty" {
		*r = IntRange{}
		return nil
	}
	if len(raw) < 2 {
		return fmt.Errorf("scan IntRange: malformed range %q", raw)
	}
	lowerInclusive := raw[0] == '['
	upperInclusive := raw[len(raw)-1] == ']'
	parts := strings.SplitN(raw[1:len(raw)-1], ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("scan IntRange: malformed range %q", raw)
	}
	out := IntRange{}
	if s := strings.TrimSpace(parts[0]); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("scan IntRange start: %w", err)
		}
		if !lowerInclusive {
			n++
		}
		out.Start = &n
	}
	if s := strings.TrimSpace(parts[1]); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("scan IntRange end: %w", err)
		}
		if !upperInclusive {
			n--
		}
		out.End = &n
	}
	*r = out
	return nil
}

// Envelope renders the external {start, end} object.
func (r IntRange) Envelope() map[string]any {
	out := map[string]any{}
	if r.Start != nil {
		out["start"] = *r.Start
	}
	if r.End != nil {
		out["end"] = *r.End
	}
	return out
}

// Contains reports whether n falls inside the (closed) range.
func (r IntRange) Contains(n int) bool {
	if r.Start != nil && n < *r.Start {
		return false
	}
	if r.End != nil && n > *r.End {
		return false
	}
	return true
}

// Measure is a quantity with a unit, persisted as jsonb. The default unit
// comes from the owning column's api tag. The amount field is named Amount
// so the driver.Valuer method keeps its required name.
type Measure struct {
	Amount float64 `json:"value"`
	Unit   string  `json:"unit"`
}

func (m Measure) GormDataType() string { return "jsonb" }

func (m Measure) Value() (driver.Value, error) {
	type plain Measure
	raw, err := json.Marshal(plain(m))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *Measure) Scan(src any) error {
	if src == nil {
		*m = Measure{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan Measure: unsupported type %T", src)
	}
	type plain Measure
	var out plain
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan Measure: %w", err)
	}
	*m = Measure(out)
	return nil
}
