package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/metrics"
	"github.com/swenlog/carrier-directory/internal/modules/shipping"
)

// ErrNoServices is returned when a commit carries no services.
var ErrNoServices = errors.New("No services data provided")

// Store is the persistence the import pipeline needs. shipping.Repository
// satisfies it.
type Store interface {
	ListCarrierRefs(ctx context.Context) ([]shipping.Ref, error)
	ListPortRefs(ctx context.Context) ([]shipping.Ref, error)
	ExistsForCarrier(ctx context.Context, carrierID uuid.UUID, name string) (bool, error)
	CreateService(ctx context.Context, s *shipping.ShippingService) error
	AddRoute(ctx context.Context, rt *shipping.Route) error
	Delete(ctx context.Context, id string) error
}

// CreationResult reports the outcome for one parsed service.
type CreationResult struct {
	Success   bool       `json:"success"`
	ServiceID *uuid.UUID `json:"serviceId,omitempty"`
	Errors    []string   `json:"errors"`
	Warnings  []string   `json:"warnings"`
}

type CommitSummary struct {
	TotalServices   int `json:"totalServices"`
	CreatedServices int `json:"createdServices"`
	ErrorServices   int `json:"errorServices"`
}

type CommitResponse struct {
	Success bool             `json:"success"`
	Summary CommitSummary    `json:"summary"`
	Results []CreationResult `json:"results"`
}

// Committer persists parsed services one by one. A failing service never
// stops the ones after it.
type Committer struct {
	store   Store
	metrics *metrics.Metrics
}

func NewCommitter(store Store, m *metrics.Metrics) *Committer {
	return &Committer{store: store, metrics: m}
}

// refIndex resolves names to ids case-insensitively. When names collide the
// first ref listed wins.
type refIndex map[string]shipping.Ref

func indexRefs(refs []shipping.Ref) refIndex {
	idx := make(refIndex, len(refs))
	for _, r := range refs {
		key := lookupKey(r.Name)
		if _, ok := idx[key]; ok {
			continue
		}
		idx[key] = r
	}
	return idx
}

func (idx refIndex) find(name string) (shipping.Ref, bool) {
	r, ok := idx[lookupKey(name)]
	return r, ok
}

// Commit creates every parsed service with its routes. The returned error is
// non-nil only when the reference data cannot be loaded.
func (c *Committer) Commit(ctx context.Context, services []ParsedService) (*CommitResponse, error) {
	if len(services) == 0 {
		return nil, ErrNoServices
	}

	carrierRefs, err := c.store.ListCarrierRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load carriers: %w", err)
	}
	portRefs, err := c.store.ListPortRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ports: %w", err)
	}
	carriers, ports := indexRefs(carrierRefs), indexRefs(portRefs)

	resp := &CommitResponse{
		Success: true,
		Summary: CommitSummary{TotalServices: len(services)},
		Results: make([]CreationResult, 0, len(services)),
	}
	for _, ps := range services {
		res := c.commitOne(ctx, ps, carriers, ports)
		if res.Success {
			resp.Summary.CreatedServices++
		} else {
			resp.Summary.ErrorServices++
		}
		resp.Results = append(resp.Results, res)
	}

	c.metrics.ObserveCommit(resp.Summary.CreatedServices, resp.Summary.ErrorServices)
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"total":   resp.Summary.TotalServices,
		"created": resp.Summary.CreatedServices,
		"failed":  resp.Summary.ErrorServices,
	}).Info("service import committed")
	return resp, nil
}

func (c *Committer) commitOne(ctx context.Context, ps ParsedService, carriers, ports refIndex) CreationResult {
	log := logging.FromContext(ctx).WithField("service", ps.Name)
	res := CreationResult{Errors: []string{}, Warnings: []string{}}

	name := strings.TrimSpace(ps.Name)
	carrierName := strings.TrimSpace(ps.CarrierName)
	if name == "" || carrierName == "" {
		res.Errors = append(res.Errors, "Service name and carrier are required")
		return res
	}
	if len(ps.Routes) == 0 {
		res.Errors = append(res.Errors, "At least one route is required")
		return res
	}

	carrierRef, ok := carriers.find(carrierName)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("Carrier %q not found", carrierName))
		return res
	}

	exists, err := c.store.ExistsForCarrier(ctx, carrierRef.ID, name)
	if err != nil {
		log.WithError(err).Error("duplicate check failed")
		res.Errors = append(res.Errors, "Failed to create service due to database error")
		return res
	}
	if exists {
		res.Errors = append(res.Errors, fmt.Sprintf("Service %q already exists for carrier %q", name, carrierName))
		return res
	}

	svc := &shipping.ShippingService{ID: uuid.New(), Name: name, CarrierID: carrierRef.ID}
	if partner := strings.TrimSpace(ps.PartnerServices); partner != "" {
		svc.PartnerServices = &partner
	}
	if err := c.store.CreateService(ctx, svc); err != nil {
		log.WithError(err).Error("service insert failed")
		res.Errors = append(res.Errors, "Failed to create service due to database error")
		return res
	}

	created := 0
	for _, pr := range ps.Routes {
		pol, ok := ports.find(pr.POL)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Port %q not found", pr.POL))
			continue
		}
		pod, ok := ports.find(pr.POD)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Port %q not found", pr.POD))
			continue
		}
		transit := strings.TrimSpace(pr.TransitTime)
		if transit == "" {
			transit = DefaultTransitTime
		}
		rt := &shipping.Route{
			ID:          uuid.New(),
			ServiceID:   svc.ID,
			PolID:       pol.ID,
			PodID:       pod.ID,
			TransitTime: transit,
			Position:    created,
		}
		if err := c.store.AddRoute(ctx, rt); err != nil {
			log.WithError(err).WithFields(logrus.Fields{"pol": pr.POL, "pod": pr.POD}).Error("route insert failed")
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to create route from %s to %s", pr.POL, pr.POD))
			continue
		}
		created++
	}

	if created == 0 {
		if err := c.store.Delete(ctx, svc.ID.String()); err != nil {
			log.WithError(err).Error("could not remove service without routes")
		}
		res.Errors = append(res.Errors, "No valid routes were created for the service")
		return res
	}

	res.Success = true
	res.ServiceID = &svc.ID
	return res
}
