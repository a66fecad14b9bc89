package carrier

import "context"

// Repository defines the interface for carrier data storage.
type Repository interface {
	Create(ctx context.Context, c *Carrier) error
	// GetByID returns the carrier with its services and their routes.
	GetByID(ctx context.Context, id string) (*Carrier, error)
	// List returns all carriers ordered by name, each with its services.
	List(ctx context.Context) ([]*Carrier, error)
	Update(ctx context.Context, c *Carrier) error
	// Delete removes the carrier together with its services and routes.
	Delete(ctx context.Context, id string) error
}
