package carrier

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/swenlog/carrier-directory/internal/validation"
)

// Service defines carrier business logic.
type Service interface {
	CreateCarrier(ctx context.Context, req CarrierRequest) (*Carrier, error)
	GetCarrier(ctx context.Context, id string) (*Carrier, error)
	ListCarriers(ctx context.Context) ([]*Carrier, error)
	UpdateCarrier(ctx context.Context, id string, req CarrierRequest) (*Carrier, error)
	DeleteCarrier(ctx context.Context, id string) error
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateCarrier(ctx context.Context, req CarrierRequest) (*Carrier, error) {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	c := &Carrier{ID: uuid.New()}
	apply(c, req)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create carrier: %w", err)
	}
	return c, nil
}

func (s *service) GetCarrier(ctx context.Context, id string) (*Carrier, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListCarriers(ctx context.Context) ([]*Carrier, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateCarrier(ctx context.Context, id string, req CarrierRequest) (*Carrier, error) {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(c, req)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update carrier: %w", err)
	}
	return c, nil
}

func (s *service) DeleteCarrier(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete carrier: %w", err)
	}
	return nil
}

func apply(c *Carrier, req CarrierRequest) {
	c.Name = req.Name
	c.Description = optional(req.Description)
	c.LogoURL = optional(req.LogoURL)
	c.CarrierType = nil
	if req.CarrierType != "" {
		t := Type(req.CarrierType)
		c.CarrierType = &t
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
