package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRecord_JSONFlattensFields(t *testing.T) {
	t.Parallel()

	actor := Actor{ID: uuid.MustParse("7d3c3c9e-2b1a-4a47-9d77-3f6c3a9f0a11"), Name: "Ops"}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	rec := Record{
		ID:            "sub-1",
		Entity:        EntitySubscriber,
		Status:        StatusModified,
		RequestStatus: RequestPending,
		Fields:        Snapshot{"subscriber_id": "SUB-0001", "name": "Acme"},
		ModifiedData: &ModifiedData{
			Previous:   Snapshot{"name": "Acme"},
			Current:    Snapshot{"name": "Acme Inc"},
			ModifiedBy: actor,
			ModifiedAt: at,
		},
		Remark:  "rename",
		Version: 3,
	}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Equal(t, "sub-1", wire["id"])
	require.Equal(t, "Modified", wire["status"])
	require.Equal(t, "pending", wire["request_status"])
	require.Equal(t, "Acme", wire["name"])
	require.Equal(t, "rename", wire["remark"])
	md, ok := wire["modifiedData"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, md, "modified_by")
	require.Contains(t, md, "modified_at")
	require.NotContains(t, wire, "updated_at")

	var back Record
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, rec.ID, back.ID)
	require.Equal(t, rec.Status, back.Status)
	require.Equal(t, rec.RequestStatus, back.RequestStatus)
	require.Equal(t, Snapshot{"subscriber_id": "SUB-0001", "name": "Acme"}, back.Fields)
	require.NotNil(t, back.ModifiedData)
	require.Equal(t, "Acme Inc", back.ModifiedData.Current["name"])
	require.Equal(t, actor, back.ModifiedData.ModifiedBy)
	require.Equal(t, int64(3), back.Version)
}

func TestRecord_UnmarshalKeepsNumbers(t *testing.T) {
	t.Parallel()

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p-1","status":"Paid","amount":100.50}`), &rec))
	require.Equal(t, json.Number("100.50"), rec.Fields["amount"])
	require.Nil(t, rec.ModifiedData)
}

func TestRecord_CloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	rec := &Record{
		ID:     "e-1",
		Fields: Snapshot{"roles": []any{"HR"}, "contact": map[string]any{"phone": "1"}},
		ModifiedData: &ModifiedData{
			Current: Snapshot{"roles": []any{"IT"}},
		},
	}
	c := rec.Clone()
	c.Fields["roles"].([]any)[0] = "Ops"
	c.Fields["contact"].(map[string]any)["phone"] = "2"
	c.ModifiedData.Current["roles"] = nil

	require.Equal(t, []any{"HR"}, rec.Fields["roles"])
	require.Equal(t, "1", rec.Fields["contact"].(map[string]any)["phone"])
	require.Equal(t, []any{"IT"}, rec.ModifiedData.Current["roles"])
}

func TestStripIdentity(t *testing.T) {
	t.Parallel()

	got := StripIdentity(EntityEmployee, Snapshot{
		"employee_id": "EMP-1",
		"status":      "Active",
		"roles":       []any{"HR"},
	})
	require.Equal(t, Snapshot{"roles": []any{"HR"}}, got)
}

func TestParseEntityType(t *testing.T) {
	t.Parallel()

	e, err := ParseEntityType("ticket")
	require.NoError(t, err)
	require.Equal(t, EntityTicket, e)

	_, err = ParseEntityType("invoice")
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestValidateFields_Payment(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateFields(EntityPayment, Snapshot{"transactionType": "Expense", "amount": json.Number("12.30")}))
	require.NoError(t, ValidateFields(EntityPayment, Snapshot{"description": "partial"}))
	require.ErrorIs(t, ValidateFields(EntityPayment, Snapshot{"transactionType": "Gift"}), ErrInvalidPayload)
	require.ErrorIs(t, ValidateFields(EntityPayment, Snapshot{"amount": "-1"}), ErrInvalidPayload)
	require.ErrorIs(t, ValidateFields(EntityPayment, Snapshot{"amount": true}), ErrInvalidPayload)
	require.NoError(t, ValidateFields(EntitySubscriber, Snapshot{"amount": "-1"}))
}
