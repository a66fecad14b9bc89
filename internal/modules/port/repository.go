package port

import "context"

// Repository defines data access for ports.
type Repository interface {
	Create(ctx context.Context, p *Port) error
	GetByID(ctx context.Context, id string) (*Port, error)
	GetByUnloc(ctx context.Context, unloc string) (*Port, error)
	List(ctx context.Context) ([]*Port, error)
	// Search returns ports whose name, country or unloc contains query (case-insensitive).
	Search(ctx context.Context, query string, limit int) ([]*Port, error)
	Update(ctx context.Context, p *Port) error
	Delete(ctx context.Context, id string) error

	// CountRouteReferences counts service routes using the port as POL, POD or via.
	CountRouteReferences(ctx context.Context, id string) (int, error)
}
