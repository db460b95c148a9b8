package dto

import (
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
)

type RegisterDriverReq struct {
	Name    string        `json:"name"`
	TowType types.TowType `json:"tow_type"`
}

func (r *RegisterDriverReq) Validate(v *validator.Validator) {
	v.Check(r.Name != "", "name", "must be provided")
	v.Check(len(r.Name) <= 100, "name", "must not be more than 100 characters")
	v.Check(validator.In(r.TowType, types.TowFlatbed, types.TowHook), "tow_type", "must be FLATBED or HOOK")
}

// ToModel builds the driver record keyed by the caller's identity.
func (r *RegisterDriverReq) ToModel(driverID uuid.UUID) *models.Driver {
	return &models.Driver{
		ID:      driverID,
		Name:    r.Name,
		TowType: r.TowType,
	}
}

type LocationUpdateReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r *LocationUpdateReq) Validate(v *validator.Validator) {
	if r.Latitude != nil && r.Longitude != nil {
		v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "latitude", "must be between -90 and 90")
		v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "longitude", "must be between -180 and 180")
	} else {
		v.Check(r.Latitude != nil, "latitude", "must be provided")
		v.Check(r.Longitude != nil, "longitude", "must be provided")
	}
}

type AvailabilityReq struct {
	Available *bool `json:"available"`
}

func (r *AvailabilityReq) Validate(v *validator.Validator) {
	v.Check(r.Available != nil, "available", "must be provided")
}

type CompleteTowReq struct {
	ActualPrice *float64                   `json:"actual_price"`
	Artifacts   models.CompletionArtifacts `json:"artifacts"`
}

func (r *CompleteTowReq) Validate(v *validator.Validator) {
	v.Check(r.ActualPrice != nil, "actual_price", "must be provided")
	if r.ActualPrice != nil {
		v.Check(*r.ActualPrice >= 0, "actual_price", "must not be negative")
	}
}
