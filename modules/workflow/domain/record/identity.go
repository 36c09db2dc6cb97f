package record

import (
	"github.com/iota-uz/opsdesk/pkg/diff"
)

var identityKeys = map[EntityType]string{
	EntitySubscriber: "subscriber_id",
	EntityPayment:    "transactionId",
	EntityEmployee:   "employee_id",
	EntityTicket:     "ticketId",
}

// IdentityKey returns the human readable id field of the entity. It is immutable once assigned.
func IdentityKey(e EntityType) string {
	return identityKeys[e]
}

// StripIdentity drops the identity field and envelope keys from a candidate snapshot.
func StripIdentity(e EntityType, s Snapshot) Snapshot {
	out := make(Snapshot, len(s))
	key := IdentityKey(e)
	for k, v := range s {
		if k == key || IsReserved(k) {
			continue
		}
		out[k] = v
	}
	return out
}

var fieldLabels = map[EntityType]diff.Labels{
	EntitySubscriber: {
		"subscriber_id": "Subscriber ID",
		"name":          "Name",
		"email":         "Email",
		"phone":         "Phone",
		"address":       "Address",
		"plan":          "Plan",
		"localContact":  "Local Contact",
		"ispInfo":       "ISP Info",
		"credentials":   "Credentials",
	},
	EntityPayment: {
		"transactionId":   "Transaction ID",
		"transactionType": "Transaction Type",
		"amount":          "Amount",
		"currency":        "Currency",
		"paymentMethod":   "Payment Method",
		"paidAt":          "Paid At",
		"description":     "Description",
	},
	EntityEmployee: {
		"employee_id": "Employee ID",
		"first_name":  "First Name",
		"last_name":   "Last Name",
		"email":       "Email",
		"phone":       "Phone",
		"roles":       "Roles",
		"department":  "Department",
		"position":    "Position",
	},
	EntityTicket: {
		"ticketId":        "Ticket ID",
		"subject":         "Subject",
		"priority":        "Priority",
		"assignee":        "Assignee",
		"resolution_note": "Resolution Note",
	},
}

// FieldLabels returns the display labels of the entity's fields.
func FieldLabels(e EntityType) diff.Labels {
	return fieldLabels[e]
}
