package shipping

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swenlog/carrier-directory/internal/modules/carrier"
	"github.com/swenlog/carrier-directory/internal/modules/port"
)

var (
	ErrNotFound = errors.New("service not found")
	// ErrInvalidReference is returned when a carrier or port id does not
	// resolve at write time.
	ErrInvalidReference = errors.New("referenced carrier or port does not exist")
)

// ShippingService is a named carrier offering made of one or more routes.
type ShippingService struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	PartnerServices *string          `json:"partnerServices"`
	CarrierID       uuid.UUID        `json:"carrierId"`
	Carrier         *carrier.Carrier `json:"carrier,omitempty"`
	Routes          []*Route         `json:"routes"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Route is one POL to POD leg of a service, optionally calling at a via port.
type Route struct {
	ID          uuid.UUID  `json:"id"`
	ServiceID   uuid.UUID  `json:"serviceId"`
	PolID       uuid.UUID  `json:"polId"`
	PodID       uuid.UUID  `json:"podId"`
	ViaID       *uuid.UUID `json:"viaId"`
	TransitTime string     `json:"transitTime"`
	Position    int        `json:"-"`
	PolPort     *port.Port `json:"polPort,omitempty"`
	PodPort     *port.Port `json:"podPort,omitempty"`
	ViaPort     *port.Port `json:"viaPort,omitempty"`
}

// Ref is an id/name pair used for name-based lookups during import.
type Ref struct {
	ID   uuid.UUID
	Name string
}

// ServiceRequest is the payload for creating or replacing a service.
type ServiceRequest struct {
	Name            string         `json:"name" validate:"required,max=200"`
	PartnerServices string         `json:"partnerServices" validate:"max=500"`
	CarrierID       string         `json:"carrierId" validate:"required,uuid"`
	Routes          []RouteRequest `json:"routes" validate:"min=1,dive"`
}

// RouteRequest is one route of a ServiceRequest.
type RouteRequest struct {
	PolID       string `json:"polId" validate:"required,uuid"`
	PodID       string `json:"podId" validate:"required,uuid"`
	ViaID       string `json:"viaId" validate:"omitempty,uuid"`
	TransitTime string `json:"transitTime" validate:"required,max=100"`
}

func (r *ServiceRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.PartnerServices = strings.TrimSpace(r.PartnerServices)
	r.CarrierID = strings.TrimSpace(r.CarrierID)
	for i := range r.Routes {
		rt := &r.Routes[i]
		rt.PolID = strings.TrimSpace(rt.PolID)
		rt.PodID = strings.TrimSpace(rt.PodID)
		rt.ViaID = strings.TrimSpace(rt.ViaID)
		rt.TransitTime = strings.TrimSpace(rt.TransitTime)
	}
}

// portIDs returns the distinct port ids the request references.
func (r *ServiceRequest) portIDs() []string {
	seen := map[string]bool{}
	ids := []string{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, rt := range r.Routes {
		add(rt.PolID)
		add(rt.PodID)
		add(rt.ViaID)
	}
	return ids
}
