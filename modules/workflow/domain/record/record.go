package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a flat-or-nested mapping of a record's editable fields.
type Snapshot map[string]any

// Clone deep-copies nested maps and slices.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Snapshot(t).Clone())
	case Snapshot:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

// Subset returns the entries of s for the given keys. Missing keys are omitted.
func (s Snapshot) Subset(keys []string) Snapshot {
	out := make(Snapshot, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = cloneValue(v)
		}
	}
	return out
}

type Actor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
}

// ModifiedData holds a proposal under review, or the last applied one.
type ModifiedData struct {
	Previous   Snapshot  `json:"previous"`
	Current    Snapshot  `json:"current"`
	ModifiedBy Actor     `json:"modified_by"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (m *ModifiedData) Clone() *ModifiedData {
	if m == nil {
		return nil
	}
	return &ModifiedData{
		Previous:   m.Previous.Clone(),
		Current:    m.Current.Clone(),
		ModifiedBy: m.ModifiedBy,
		ModifiedAt: m.ModifiedAt,
	}
}

// Record is a governed business record. Fields holds the entity specific
// columns and is flattened next to the envelope on the wire.
type Record struct {
	ID            string
	Entity        EntityType
	Status        Status
	RequestStatus RequestStatus
	Fields        Snapshot
	ModifiedData  *ModifiedData
	Remark        string
	Version       int64
	UpdatedAt     time.Time
}

const (
	keyID            = "id"
	keyEntity        = "entity"
	keyStatus        = "status"
	keyRequestStatus = "request_status"
	keyModifiedData  = "modifiedData"
	keyRemark        = "remark"
	keyVersion       = "version"
	keyUpdatedAt     = "updated_at"
)

var reservedKeys = []string{
	keyID, keyEntity, keyStatus, keyRequestStatus, keyModifiedData, keyRemark, keyVersion, keyUpdatedAt,
}

// IsReserved reports whether key belongs to the record envelope rather than its fields.
func IsReserved(key string) bool {
	return slices.Contains(reservedKeys, key)
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = r.Fields.Clone()
	c.ModifiedData = r.ModifiedData.Clone()
	return &c
}

// IsPending reports whether the record has an outstanding request.
func (r *Record) IsPending() bool {
	return r.RequestStatus == RequestPending
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+len(reservedKeys))
	for k, v := range r.Fields {
		if IsReserved(k) {
			continue
		}
		out[k] = v
	}
	out[keyID] = r.ID
	out[keyEntity] = r.Entity
	out[keyStatus] = r.Status
	out[keyRequestStatus] = r.RequestStatus
	out[keyVersion] = r.Version
	if r.ModifiedData != nil {
		out[keyModifiedData] = r.ModifiedData
	}
	if r.Remark != "" {
		out[keyRemark] = r.Remark
	}
	if !r.UpdatedAt.IsZero() {
		out[keyUpdatedAt] = r.UpdatedAt
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var rec Record
	fields := Snapshot{}
	for k, v := range raw {
		var err error
		switch k {
		case keyID:
			err = json.Unmarshal(v, &rec.ID)
		case keyEntity:
			err = json.Unmarshal(v, &rec.Entity)
		case keyStatus:
			err = json.Unmarshal(v, &rec.Status)
		case keyRequestStatus:
			err = json.Unmarshal(v, &rec.RequestStatus)
		case keyModifiedData:
			if string(v) != "null" {
				rec.ModifiedData = &ModifiedData{}
				err = decodeNumbers(v, rec.ModifiedData)
			}
		case keyRemark:
			err = json.Unmarshal(v, &rec.Remark)
		case keyVersion:
			err = json.Unmarshal(v, &rec.Version)
		case keyUpdatedAt:
			err = json.Unmarshal(v, &rec.UpdatedAt)
		default:
			var val any
			err = decodeNumbers(v, &val)
			fields[k] = val
		}
		if err != nil {
			return fmt.Errorf("record field %q: %w", k, err)
		}
	}
	rec.Fields = fields
	*r = rec
	return nil
}

// DecodeSnapshot parses a JSON object keeping numbers as json.Number.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var s Snapshot
	if err := decodeNumbers(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeInto decodes data into v keeping numbers as json.Number.
func DecodeInto(data []byte, v any) error {
	return decodeNumbers(data, v)
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// FindParams filters records of one entity. A zero RequestStatus matches any.
type FindParams struct {
	Entity        EntityType
	RequestStatus RequestStatus
	Limit         int
	Offset        int
}
