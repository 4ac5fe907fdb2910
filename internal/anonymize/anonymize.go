// Package anonymize projects the per-schema anonymization policy onto
// read envelopes: fixed-sentinel redaction plus deterministic date
// perturbation keyed by a related identifier, so temporal relationships
// within one case survive the projection.
package anonymize

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

// Sentinel replaces redacted values.
const Sentinel = "ANONYMIZED"

const dateLayout = "2006-01-02"

// maxShiftDays bounds the perturbation to roughly twelve months either
// way.
const maxShiftDays = 365

// offsetDays derives the stable day offset of one key, in
// [-maxShiftDays, maxShiftDays].
func offsetDays(key string) int {
	sum := sha256.Sum256([]byte(key))
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n%(2*maxShiftDays+1)) - maxShiftDays
}

// ShiftDate perturbs a date by the key's deterministic offset.
func ShiftDate(key string, t time.Time) time.Time {
	return t.AddDate(0, 0, offsetDays(key))
}

// AgeBin coarsens an age in years to its five-year bin label.
func AgeBin(age int) string {
	if age < 0 {
		age = 0
	}
	lo := (age / 5) * 5
	return fmt.Sprintf("%d-%d", lo, lo+4)
}

// Apply projects the schema's anonymization policy onto an envelope in
// place. Date fields listed in the policy are shifted by the key field's
// stable offset; every other listed field collapses to the sentinel. The
// stored row is untouched.
func Apply(s *schema.Schema, envelope map[string]any) {
	if len(s.AnonymizedFields) == 0 {
		return
	}
	key := ""
	if s.AnonymizationKey != "" {
		key = fmt.Sprintf("%v", envelope[s.AnonymizationKey])
	}
	for _, name := range s.AnonymizedFields {
		value, ok := envelope[name]
		if !ok {
			continue
		}
		spec, known := s.Field(name)
		if known && (spec.Kind == schema.KindDate || spec.Kind == schema.KindDateTime) && key != "" {
			if shifted, ok := shiftValue(spec, key, value); ok {
				envelope[name] = shifted
				continue
			}
		}
		envelope[name] = Sentinel
	}
}

func shiftValue(spec *schema.FieldSpec, key string, value any) (string, bool) {
	raw, ok := value.(string)
	if !ok {
		return "", false
	}
	layout := dateLayout
	if spec.Kind == schema.KindDateTime {
		layout = time.RFC3339
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return "", false
	}
	return ShiftDate(key, t).Format(layout), true
}
