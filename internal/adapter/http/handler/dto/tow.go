package dto

import (
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/request"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
)

type LocationReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

func (l *LocationReq) Validate(v *validator.Validator, field string) {
	if l.Latitude == nil || l.Longitude == nil {
		v.Check(l.Latitude != nil, field+".latitude", "must be provided")
		v.Check(l.Longitude != nil, field+".longitude", "must be provided")
		return
	}
	v.Check(*l.Latitude >= -90 && *l.Latitude <= 90, field+".latitude", "must be between -90 and 90")
	v.Check(*l.Longitude >= -180 && *l.Longitude <= 180, field+".longitude", "must be between -180 and 180")
}

func (l *LocationReq) ToModel() models.Location {
	return models.Location{
		Latitude:  *l.Latitude,
		Longitude: *l.Longitude,
		Address:   l.Address,
	}
}

type CreateTowReq struct {
	TowType         string       `json:"tow_type"`
	VehicleCategory string       `json:"vehicle_category"`
	Pickup          LocationReq  `json:"pickup"`
	Dropoff         *LocationReq `json:"dropoff"`
}

func (r *CreateTowReq) Validate(v *validator.Validator) {
	v.Check(r.TowType != "", "tow_type", "must be provided")
	v.Check(
		validator.In(types.TowType(r.TowType), types.TowFlatbed, types.TowHook),
		"tow_type", "must be FLATBED or HOOK",
	)

	v.Check(r.VehicleCategory != "", "vehicle_category", "must be provided")
	v.Check(
		types.VehicleCategory(r.VehicleCategory).IsValid(),
		"vehicle_category", "unknown vehicle category",
	)

	r.Pickup.Validate(v, "pickup")
	if r.Dropoff != nil {
		r.Dropoff.Validate(v, "dropoff")
	}
}

func (r *CreateTowReq) ToInput(userID uuid.UUID) request.CreateInput {
	in := request.CreateInput{
		UserID:          userID,
		TowType:         types.TowType(r.TowType),
		VehicleCategory: types.VehicleCategory(r.VehicleCategory),
		Pickup:          r.Pickup.ToModel(),
	}
	if r.Dropoff != nil {
		dropoff := r.Dropoff.ToModel()
		in.Dropoff = &dropoff
	}
	return in
}

type CancelTowReq struct {
	Reason string `json:"reason"`
}

func (r *CancelTowReq) Validate(v *validator.Validator) {
	v.Check(r.Reason != "", "reason", "must be provided")
	v.Check(len(r.Reason) <= 500, "reason", "must be at most 500 characters")
}

type QuoteReq struct {
	TowType         string       `json:"tow_type"`
	VehicleCategory string       `json:"vehicle_category"`
	Pickup          LocationReq  `json:"pickup"`
	Dropoff         *LocationReq `json:"dropoff"`
}

func (r *QuoteReq) Validate(v *validator.Validator) {
	(&CreateTowReq{
		TowType:         r.TowType,
		VehicleCategory: r.VehicleCategory,
		Pickup:          r.Pickup,
		Dropoff:         r.Dropoff,
	}).Validate(v)
}
