package persistence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
)

type WorkflowRecord struct {
	Entity        string
	ID            string
	Status        string
	RequestStatus string
	Fields        []byte
	ModifiedData  []byte
	Remark        string
	Version       int64
	UpdatedAt     time.Time
}

type WorkflowHistory struct {
	ID            pgtype.UUID
	Entity        string
	RecordID      string
	Action        string
	ActorID       pgtype.UUID
	ActorName     string
	StatusBefore  string
	StatusAfter   string
	RequestBefore string
	RequestAfter  string
	Previous      []byte
	Current       []byte
	Patch         []byte
	Remark        string
	CreatedAt     time.Time
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func asUUID(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

func marshalSnapshot(s record.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func toDBRecord(r *record.Record) (*WorkflowRecord, error) {
	fields := r.Fields
	if fields == nil {
		fields = record.Snapshot{}
	}
	rawFields, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var rawModified []byte
	if r.ModifiedData != nil {
		if rawModified, err = json.Marshal(r.ModifiedData); err != nil {
			return nil, err
		}
	}
	return &WorkflowRecord{
		Entity:        string(r.Entity),
		ID:            r.ID,
		Status:        string(r.Status),
		RequestStatus: string(r.RequestStatus),
		Fields:        rawFields,
		ModifiedData:  rawModified,
		Remark:        r.Remark,
		Version:       r.Version,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func toDomainRecord(row *WorkflowRecord) (*record.Record, error) {
	fields, err := record.DecodeSnapshot(row.Fields)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = record.Snapshot{}
	}
	var modified *record.ModifiedData
	if len(row.ModifiedData) > 0 && string(row.ModifiedData) != "null" {
		modified = &record.ModifiedData{}
		if err := record.DecodeInto(row.ModifiedData, modified); err != nil {
			return nil, err
		}
	}
	return &record.Record{
		ID:            row.ID,
		Entity:        record.EntityType(row.Entity),
		Status:        record.Status(row.Status),
		RequestStatus: record.RequestStatus(row.RequestStatus),
		Fields:        fields,
		ModifiedData:  modified,
		Remark:        row.Remark,
		Version:       row.Version,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func toDBHistory(e history.Entry) (*WorkflowHistory, error) {
	previous, err := marshalSnapshot(e.Previous)
	if err != nil {
		return nil, err
	}
	current, err := marshalSnapshot(e.Current)
	if err != nil {
		return nil, err
	}
	var patch []byte
	if len(e.Patch) > 0 {
		patch = []byte(e.Patch)
	}
	return &WorkflowHistory{
		ID:            pgUUID(e.ID),
		Entity:        string(e.Entity),
		RecordID:      e.RecordID,
		Action:        string(e.Action),
		ActorID:       pgUUID(e.Actor.ID),
		ActorName:     e.Actor.Name,
		StatusBefore:  string(e.StatusBefore),
		StatusAfter:   string(e.StatusAfter),
		RequestBefore: string(e.RequestBefore),
		RequestAfter:  string(e.RequestAfter),
		Previous:      previous,
		Current:       current,
		Patch:         patch,
		Remark:        e.Remark,
		CreatedAt:     e.CreatedAt,
	}, nil
}

func toDomainHistory(row *WorkflowHistory) (history.Entry, error) {
	previous, err := record.DecodeSnapshot(row.Previous)
	if err != nil {
		return history.Entry{}, err
	}
	current, err := record.DecodeSnapshot(row.Current)
	if err != nil {
		return history.Entry{}, err
	}
	var patch json.RawMessage
	if len(row.Patch) > 0 && string(row.Patch) != "null" {
		patch = json.RawMessage(row.Patch)
	}
	return history.Entry{
		ID:            asUUID(row.ID),
		Entity:        record.EntityType(row.Entity),
		RecordID:      row.RecordID,
		Action:        record.Action(row.Action),
		Actor:         record.Actor{ID: asUUID(row.ActorID), Name: row.ActorName},
		StatusBefore:  record.Status(row.StatusBefore),
		StatusAfter:   record.Status(row.StatusAfter),
		RequestBefore: record.RequestStatus(row.RequestBefore),
		RequestAfter:  record.RequestStatus(row.RequestAfter),
		Previous:      previous,
		Current:       current,
		Patch:         patch,
		Remark:        row.Remark,
		CreatedAt:     row.CreatedAt,
	}, nil
}
