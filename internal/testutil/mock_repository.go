package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swenlog/carrier-directory/internal/modules/carrier"
	"github.com/swenlog/carrier-directory/internal/modules/port"
	"github.com/swenlog/carrier-directory/internal/modules/shipping"
)

// MockShippingRepository is an in-memory shipping.Repository that also holds
// the carriers and ports services refer to.
type MockShippingRepository struct {
	Carriers map[uuid.UUID]*carrier.Carrier
	Ports    map[uuid.UUID]*port.Port
	Services map[uuid.UUID]*shipping.ShippingService

	// AddRouteErr, when set, is consulted before every AddRoute call.
	AddRouteErr func(rt *shipping.Route) error

	clock time.Time
}

func NewMockShippingRepository() *MockShippingRepository {
	return &MockShippingRepository{
		Carriers: map[uuid.UUID]*carrier.Carrier{},
		Ports:    map[uuid.UUID]*port.Port{},
		Services: map[uuid.UUID]*shipping.ShippingService{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddCarrier stores a carrier and returns its id.
func (m *MockShippingRepository) AddCarrier(name string) uuid.UUID {
	c := &carrier.Carrier{ID: uuid.New(), Name: name, CreatedAt: m.tick(), UpdatedAt: m.clock}
	m.Carriers[c.ID] = c
	return c.ID
}

// AddPort stores a port and returns its id.
func (m *MockShippingRepository) AddPort(name, country, unloc string) uuid.UUID {
	p := &port.Port{ID: uuid.New(), Name: name, Country: country, Unloc: unloc, CreatedAt: m.tick(), UpdatedAt: m.clock}
	m.Ports[p.ID] = p
	return p.ID
}

// ServicesOf returns the names of the services stored for a carrier.
func (m *MockShippingRepository) ServicesOf(carrierID uuid.UUID) []string {
	names := []string{}
	for _, s := range m.ordered() {
		if s.CarrierID == carrierID {
			names = append(names, s.Name)
		}
	}
	return names
}

func (m *MockShippingRepository) Create(ctx context.Context, s *shipping.ShippingService) error {
	for i, rt := range s.Routes {
		_, polOK := m.Ports[rt.PolID]
		_, podOK := m.Ports[rt.PodID]
		if !polOK || !podOK {
			return shipping.ErrInvalidReference
		}
		rt.ServiceID = s.ID
		rt.Position = i
	}
	return m.CreateService(ctx, s)
}

func (m *MockShippingRepository) GetByID(ctx context.Context, id string) (*shipping.ShippingService, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, shipping.ErrNotFound
	}
	s, ok := m.Services[uid]
	if !ok {
		return nil, shipping.ErrNotFound
	}
	return m.hydrate(s), nil
}

func (m *MockShippingRepository) List(ctx context.Context) ([]*shipping.ShippingService, error) {
	ordered := m.ordered()
	out := make([]*shipping.ShippingService, 0, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		out = append(out, m.hydrate(ordered[i]))
	}
	return out, nil
}

func (m *MockShippingRepository) Search(ctx context.Context, pol, pod string) ([]*shipping.ShippingService, error) {
	all, _ := m.List(ctx)
	out := []*shipping.ShippingService{}
	for _, s := range all {
		for _, rt := range s.Routes {
			if portMatches(rt.PolPort, pol) && portMatches(rt.PodPort, pod) {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *MockShippingRepository) Update(ctx context.Context, s *shipping.ShippingService) error {
	existing, ok := m.Services[s.ID]
	if !ok {
		return shipping.ErrNotFound
	}
	cp := *s
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = m.tick()
	cp.Carrier = nil
	cp.Routes = make([]*shipping.Route, len(s.Routes))
	for i, rt := range s.Routes {
		r := *rt
		r.ServiceID = s.ID
		r.Position = i
		cp.Routes[i] = &r
	}
	m.Services[s.ID] = &cp
	return nil
}

func (m *MockShippingRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return shipping.ErrNotFound
	}
	if _, ok := m.Services[uid]; !ok {
		return shipping.ErrNotFound
	}
	delete(m.Services, uid)
	return nil
}

func (m *MockShippingRepository) CarrierExists(ctx context.Context, id string) (bool, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	_, ok := m.Carriers[uid]
	return ok, nil
}

func (m *MockShippingRepository) CountPorts(ctx context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if uid, err := uuid.Parse(id); err == nil {
			if _, ok := m.Ports[uid]; ok {
				n++
			}
		}
	}
	return n, nil
}

func (m *MockShippingRepository) ListCarrierRefs(ctx context.Context) ([]shipping.Ref, error) {
	refs := []shipping.Ref{}
	for _, c := range m.Carriers {
		refs = append(refs, shipping.Ref{ID: c.ID, Name: c.Name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (m *MockShippingRepository) ListPortRefs(ctx context.Context) ([]shipping.Ref, error) {
	refs := []shipping.Ref{}
	for _, p := range m.Ports {
		refs = append(refs, shipping.Ref{ID: p.ID, Name: p.Name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (m *MockShippingRepository) ExistsForCarrier(ctx context.Context, carrierID uuid.UUID, name string) (bool, error) {
	for _, s := range m.Services {
		if s.CarrierID == carrierID && strings.EqualFold(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockShippingRepository) CreateService(ctx context.Context, s *shipping.ShippingService) error {
	if _, ok := m.Carriers[s.CarrierID]; !ok {
		return shipping.ErrInvalidReference
	}
	s.CreatedAt = m.tick()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	cp.Routes = append([]*shipping.Route{}, s.Routes...)
	m.Services[s.ID] = &cp
	return nil
}

func (m *MockShippingRepository) AddRoute(ctx context.Context, rt *shipping.Route) error {
	if m.AddRouteErr != nil {
		if err := m.AddRouteErr(rt); err != nil {
			return err
		}
	}
	s, ok := m.Services[rt.ServiceID]
	if !ok {
		return shipping.ErrInvalidReference
	}
	_, polOK := m.Ports[rt.PolID]
	_, podOK := m.Ports[rt.PodID]
	if !polOK || !podOK {
		return shipping.ErrInvalidReference
	}
	cp := *rt
	s.Routes = append(s.Routes, &cp)
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (m *MockShippingRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MockShippingRepository) ordered() []*shipping.ShippingService {
	out := make([]*shipping.ShippingService, 0, len(m.Services))
	for _, s := range m.Services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MockShippingRepository) hydrate(s *shipping.ShippingService) *shipping.ShippingService {
	cp := *s
	cp.Carrier = m.Carriers[s.CarrierID]
	cp.Routes = make([]*shipping.Route, 0, len(s.Routes))
	for _, rt := range s.Routes {
		r := *rt
		r.PolPort = m.Ports[rt.PolID]
		r.PodPort = m.Ports[rt.PodID]
		if rt.ViaID != nil {
			r.ViaPort = m.Ports[*rt.ViaID]
		}
		cp.Routes = append(cp.Routes, &r)
	}
	return &cp
}

func portMatches(p *port.Port, term string) bool {
	if p == nil {
		return false
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Unloc), term) ||
		strings.Contains(strings.ToLower(p.Country), term)
}
