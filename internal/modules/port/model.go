package port

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("port not found")
	ErrDuplicateUnloc = errors.New("port with this UNLOC already exists")
	ErrInUse          = errors.New("cannot delete port: it is used in one or more service routes")
)

// Port is a location identified by its UN/LOCODE.
type Port struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Unloc     string    `json:"unloc"`
	Code      *string   `json:"code"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PortRequest is the payload for creating or replacing a port. It is also the
// element type of the bulk endpoint.
type PortRequest struct {
	Name      string        `json:"name" validate:"required,max=200"`
	Country   string        `json:"country" validate:"required,max=100"`
	Unloc     string        `json:"unloc" validate:"required,max=10"`
	Code      string        `json:"code" validate:"max=20"`
	Latitude  OptionalFloat `json:"latitude"`
	Longitude OptionalFloat `json:"longitude"`
}

type coordinates struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (r *PortRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Country = strings.TrimSpace(r.Country)
	r.Unloc = strings.TrimSpace(r.Unloc)
	r.Code = strings.TrimSpace(r.Code)
}

func (r PortRequest) describe() string {
	b, err := json.Marshal(r)
	if err != nil {
		return r.Unloc
	}
	return string(b)
}

// OptionalFloat accepts a JSON number, a numeric string, an empty string or null.
// Admin forms submit coordinates as strings.
type OptionalFloat struct {
	Value float64
	Valid bool
}

func Float(v float64) OptionalFloat { return OptionalFloat{Value: v, Valid: true} }

func (f *OptionalFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = OptionalFloat{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return f.parse(s)
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func (f OptionalFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f *OptionalFloat) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = OptionalFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func (f OptionalFloat) ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// BulkResult summarises a simple-ports bulk upload.
type BulkResult struct {
	Message        string   `json:"message"`
	TotalProcessed int      `json:"totalProcessed"`
	SuccessCount   int      `json:"successCount"`
	DuplicateCount int      `json:"duplicateCount"`
	ErrorCount     int      `json:"errorCount"`
	Errors         []string `json:"errors"`
}
