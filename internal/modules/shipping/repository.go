package shipping

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for services and their routes.
type Repository interface {
	// Create inserts the service and all its routes in one transaction.
	Create(ctx context.Context, s *ShippingService) error
	GetByID(ctx context.Context, id string) (*ShippingService, error)
	// List returns all services newest first with carrier and route ports.
	List(ctx context.Context) ([]*ShippingService, error)
	// Search returns services with a route whose POL matches pol and whose POD
	// matches pod. Matching is a case-insensitive substring test on the port's
	// name, unloc or country.
	Search(ctx context.Context, pol, pod string) ([]*ShippingService, error)
	// Update rewrites the service row and replaces its routes in one transaction.
	Update(ctx context.Context, s *ShippingService) error
	Delete(ctx context.Context, id string) error

	CarrierExists(ctx context.Context, id string) (bool, error)
	CountPorts(ctx context.Context, ids []string) (int, error)

	// Import support.
	ListCarrierRefs(ctx context.Context) ([]Ref, error)
	ListPortRefs(ctx context.Context) ([]Ref, error)
	ExistsForCarrier(ctx context.Context, carrierID uuid.UUID, name string) (bool, error)
	// CreateService inserts the service row only.
	CreateService(ctx context.Context, s *ShippingService) error
	AddRoute(ctx context.Context, rt *Route) error
}
