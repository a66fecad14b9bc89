package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/swenlog/carrier-directory/internal/validation"
)

// Service defines shipping service business logic.
type Service interface {
	CreateService(ctx context.Context, req ServiceRequest) (*ShippingService, error)
	GetService(ctx context.Context, id string) (*ShippingService, error)
	ListServices(ctx context.Context) ([]*ShippingService, error)
	SearchServices(ctx context.Context, pol, pod string) ([]*ShippingService, error)
	UpdateService(ctx context.Context, id string, req ServiceRequest) (*ShippingService, error)
	DeleteService(ctx context.Context, id string) error
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateService(ctx context.Context, req ServiceRequest) (*ShippingService, error) {
	if err := s.checkRequest(ctx, &req); err != nil {
		return nil, err
	}
	svc := &ShippingService{ID: uuid.New()}
	apply(svc, req)
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return s.repo.GetByID(ctx, svc.ID.String())
}

func (s *service) GetService(ctx context.Context, id string) (*ShippingService, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListServices(ctx context.Context) ([]*ShippingService, error) {
	return s.repo.List(ctx)
}

func (s *service) SearchServices(ctx context.Context, pol, pod string) ([]*ShippingService, error) {
	pol, pod = strings.TrimSpace(pol), strings.TrimSpace(pod)
	if pol == "" || pod == "" {
		return nil, validation.Errorf("POL and POD parameters are required")
	}
	return s.repo.Search(ctx, pol, pod)
}

// UpdateService replaces the service's fields and its whole route set.
func (s *service) UpdateService(ctx context.Context, id string, req ServiceRequest) (*ShippingService, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRequest(ctx, &req); err != nil {
		return nil, err
	}
	apply(svc, req)
	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) DeleteService(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}

// checkRequest validates the payload shape and that every referenced carrier
// and port exists.
func (s *service) checkRequest(ctx context.Context, req *ServiceRequest) error {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return err
	}
	ok, err := s.repo.CarrierExists(ctx, req.CarrierID)
	if err != nil {
		return fmt.Errorf("check carrier: %w", err)
	}
	if !ok {
		return validation.Errorf("Invalid carrier ID")
	}
	ids := req.portIDs()
	n, err := s.repo.CountPorts(ctx, ids)
	if err != nil {
		return fmt.Errorf("check ports: %w", err)
	}
	if n != len(ids) {
		return validation.Errorf("Invalid POL or POD port ID")
	}
	return nil
}

func apply(svc *ShippingService, req ServiceRequest) {
	svc.Name = req.Name
	svc.PartnerServices = nil
	if req.PartnerServices != "" {
		p := req.PartnerServices
		svc.PartnerServices = &p
	}
	svc.CarrierID = uuid.MustParse(req.CarrierID)
	svc.Carrier = nil
	svc.Routes = make([]*Route, 0, len(req.Routes))
	for i, rr := range req.Routes {
		rt := &Route{
			ID:          uuid.New(),
			ServiceID:   svc.ID,
			PolID:       uuid.MustParse(rr.PolID),
			PodID:       uuid.MustParse(rr.PodID),
			TransitTime: rr.TransitTime,
			Position:    i,
		}
		if rr.ViaID != "" {
			via := uuid.MustParse(rr.ViaID)
			rt.ViaID = &via
		}
		svc.Routes = append(svc.Routes, rt)
	}
}
