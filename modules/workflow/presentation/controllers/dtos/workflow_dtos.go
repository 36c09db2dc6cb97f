package dtos

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/constants"
	"github.com/iota-uz/opsdesk/pkg/serrors"
)

// ActorDTO identifies the maker or checker of a request.
type ActorDTO struct {
	ActorID   string `json:"actor_id" validate:"required,uuid"`
	ActorName string `json:"actor_name" validate:"max=200"`
}

func (a ActorDTO) ToActor() record.Actor {
	return record.Actor{ID: uuid.MustParse(a.ActorID), Name: a.ActorName}
}

type ProposalDTO struct {
	ActorDTO
	Fields map[string]any `json:"fields" validate:"required"`
	Remark string         `json:"remark" validate:"max=1000"`
}

func (d *ProposalDTO) Ok() (map[string]string, bool) {
	d.ActorID = strings.TrimSpace(d.ActorID)
	return validate(d)
}

type DecisionDTO struct {
	ActorDTO
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Remark string `json:"remark" validate:"max=1000"`
}

func (d *DecisionDTO) Ok() (map[string]string, bool) {
	d.ActorID = strings.TrimSpace(d.ActorID)
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	return validate(d)
}

type SideActionDTO struct {
	ActorDTO
	Action string `json:"action" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
	Remark string `json:"remark" validate:"max=1000"`
}

func (d *SideActionDTO) Ok() (map[string]string, bool) {
	d.ActorID = strings.TrimSpace(d.ActorID)
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	return validate(d)
}

func (d *SideActionDTO) ToInput() services.SideActionInput {
	return services.SideActionInput{Note: d.Note, Remark: d.Remark}
}

type BatchItemDTO struct {
	ID            string `json:"id" validate:"required"`
	CurrentStatus string `json:"current_status"`
}

type BatchDTO struct {
	ActorDTO
	Action string         `json:"action" validate:"required"`
	Items  []BatchItemDTO `json:"items" validate:"required,min=1,max=1000,dive"`
}

func (d *BatchDTO) Ok() (map[string]string, bool) {
	d.ActorID = strings.TrimSpace(d.ActorID)
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	return validate(d)
}

func (d *BatchDTO) ToItems() []services.BatchItem {
	items := make([]services.BatchItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = services.BatchItem{ID: strings.TrimSpace(it.ID), Status: record.Status(it.CurrentStatus)}
	}
	return items
}

var fieldNames = map[string]string{
	"ActorID":       "actor_id",
	"ActorName":     "actor_name",
	"Fields":        "fields",
	"Remark":        "remark",
	"Action":        "action",
	"Note":          "note",
	"Items":         "items",
	"ID":            "id",
	"CurrentStatus": "current_status",
}

func validate(d any) (map[string]string, bool) {
	err := constants.Validate.Struct(d)
	if err == nil {
		return map[string]string{}, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}, false
	}
	return serrors.ProcessValidatorErrors(verrs, func(field string) string {
		return fieldNames[field]
	}), false
}
