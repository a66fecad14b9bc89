package carrier

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/swenlog/carrier-directory/internal/validation"
)

var (
	ErrNotFound      = errors.New("carrier not found")
	ErrDuplicateName = errors.New("carrier name already exists")
)

// Type classifies a carrier's business model.
type Type string

const (
	TypeMLO              Type = "MLO"
	TypeNVOCC            Type = "NVOCC"
	TypeFreightForwarder Type = "Freight Forwarder"
	Type3PL              Type = "3PL"
	TypeCustomsBroker    Type = "Customs Broker"
)

var Types = []Type{TypeMLO, TypeNVOCC, TypeFreightForwarder, Type3PL, TypeCustomsBroker}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

func init() {
	validation.Register("carriertype", func(fl validator.FieldLevel) bool {
		return Type(fl.Field().String()).Valid()
	})
}

// Carrier is a shipping line or logistics provider operating services.
type Carrier struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	LogoURL     *string           `json:"logoUrl"`
	CarrierType *Type             `json:"carrierType"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Services    []*ServiceSummary `json:"services,omitempty"`
}

// ServiceSummary is the carrier-side view of a shipping service. Routes are only
// loaded for single-carrier reads.
type ServiceSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	PartnerServices *string   `json:"partnerServices"`
	CarrierID       uuid.UUID `json:"carrierId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Routes          []*Route  `json:"routes,omitempty"`
}

// Route is a bare route row without resolved ports.
type Route struct {
	ID          uuid.UUID  `json:"id"`
	ServiceID   uuid.UUID  `json:"serviceId"`
	PolID       uuid.UUID  `json:"polId"`
	PodID       uuid.UUID  `json:"podId"`
	ViaID       *uuid.UUID `json:"viaId"`
	TransitTime string     `json:"transitTime"`
}

// CarrierRequest is the payload for creating or replacing a carrier.
type CarrierRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	LogoURL     string `json:"logoUrl" validate:"omitempty,url"`
	CarrierType string `json:"carrierType" validate:"omitempty,carriertype"`
}

func (r *CarrierRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.LogoURL = strings.TrimSpace(r.LogoURL)
	r.CarrierType = strings.TrimSpace(r.CarrierType)
}
