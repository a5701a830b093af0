// Package riskheader decodes the bot/fraud risk descriptor relayed by the edge
// risk engine in the Akamai-User-Risk header.
//
// Grammar:
//
//	descriptor = clause *( ";" clause )
//	clause     = key "=" value
//	value      = scalar | sub *( "|" sub )
//	sub        = subkey ":" subvalue
//
// A value containing "|" is decoded as a nested set of sub-fields. Clauses
// without "=" and sub-clauses without ":" are dropped, as are clauses with an
// empty key. A repeated key keeps its first position and takes the last value.
package riskheader

import (
	"strconv"
	"strings"
)

// HeaderName is the header carrying the raw descriptor on requests and responses.
const HeaderName = "Akamai-User-Risk"

const (
	clauseSep    = ";"
	keyValueSep  = "="
	subClauseSep = "|"
	subValueSep  = ":"
)

// Canonical field names.
const (
	FieldUUID      = "uuid"
	FieldRequestID = "requestid"
	FieldStatus    = "status"
	FieldScore     = "score"
	FieldRisk      = "risk"
	FieldTrust     = "trust"
	FieldGeneral   = "general"
	FieldAllow     = "allow"
	FieldAction    = "action"
)

// Pair is one decoded sub-field of a nested value.
type Pair struct {
	Key   string
	Value string
}

// Field is one decoded clause. Exactly one of Scalar or Nested is meaningful:
// Nested is non-nil when the raw value contained the sub-clause delimiter.
type Field struct {
	Key    string
	Scalar string
	Nested []Pair
}

// IsNested reports whether the field carries sub-fields.
func (f Field) IsNested() bool {
	return f.Nested != nil
}

// Map returns the nested sub-fields as a map. It returns nil for scalar fields.
func (f Field) Map() map[string]string {
	if f.Nested == nil {
		return nil
	}
	out := make(map[string]string, len(f.Nested))
	for _, p := range f.Nested {
		out[p.Key] = p.Value
	}
	return out
}

// Descriptor is an ordered, immutable set of decoded fields.
type Descriptor struct {
	fields []Field
	index  map[string]int
}

// Parse decodes raw into a Descriptor. It never fails: empty input yields an
// empty descriptor and malformed clauses are skipped.
func Parse(raw string) Descriptor {
	d := Descriptor{}
	if strings.TrimSpace(raw) == "" {
		return d
	}

	for _, clause := range strings.Split(raw, clauseSep) {
		key, value, ok := strings.Cut(clause, keyValueSep)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		d.set(decodeField(key, value))
	}
	return d
}

func decodeField(key, value string) Field {
	if !strings.Contains(value, subClauseSep) {
		return Field{Key: key, Scalar: value}
	}

	nested := make([]Pair, 0, strings.Count(value, subClauseSep)+1)
	for _, sub := range strings.Split(value, subClauseSep) {
		subKey, subValue, ok := strings.Cut(sub, subValueSep)
		if !ok {
			continue
		}
		subKey = strings.TrimSpace(subKey)
		if subKey == "" {
			continue
		}
		nested = append(nested, Pair{Key: subKey, Value: subValue})
	}
	return Field{Key: key, Nested: nested}
}

func (d *Descriptor) set(f Field) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[f.Key]; ok {
		d.fields[i] = f
		return
	}
	d.index[f.Key] = len(d.fields)
	d.fields = append(d.fields, f)
}

// Len returns the number of decoded fields.
func (d Descriptor) Len() int {
	return len(d.fields)
}

// Fields returns the decoded fields in input order.
func (d Descriptor) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Get returns the field stored under key.
func (d Descriptor) Get(key string) (Field, bool) {
	i, ok := d.index[key]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// Scalar returns the scalar value stored under key. Nested fields report false.
func (d Descriptor) Scalar(key string) (string, bool) {
	f, ok := d.Get(key)
	if !ok || f.IsNested() {
		return "", false
	}
	return f.Scalar, true
}

// Nested returns the sub-fields stored under key as a map.
func (d Descriptor) Nested(key string) (map[string]string, bool) {
	f, ok := d.Get(key)
	if !ok || !f.IsNested() {
		return nil, false
	}
	return f.Map(), true
}

// Score returns the numeric score field. It reports false when the field is
// missing, nested or not a number.
func (d Descriptor) Score() (float64, bool) {
	raw, ok := d.Scalar(FieldScore)
	if !ok {
		return 0, false
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return score, true
}
