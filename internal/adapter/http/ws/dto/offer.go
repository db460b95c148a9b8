package dto

import (
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
)

// OfferResp is the driver's answer to a pushed tow offer.
type OfferResp struct {
	Type      string    `json:"type"`
	ID        uuid.UUID `json:"offer_id"`
	RequestID uuid.UUID `json:"request_id"`
	Accepted  *bool     `json:"accepted"`
}

func (r *OfferResp) Validate(v *validator.Validator) {
	v.Check(r.ID != uuid.Nil, "offer_id", "must be provided")
	v.Check(r.RequestID != uuid.Nil, "request_id", "must be provided")
	v.Check(r.Accepted != nil, "accepted", "must be provided")
}
