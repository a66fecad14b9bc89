package shipping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/swenlog/carrier-directory/internal/database"
	"github.com/swenlog/carrier-directory/internal/modules/carrier"
	"github.com/swenlog/carrier-directory/internal/modules/port"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

var serviceSelect = `
	SELECT s.id, s.name, s.partner_services, s.carrier_id, s.created_at, s.updated_at,
	       ` + prefixed("c", carrier.Columns) + `
	FROM services s
	JOIN carriers c ON c.id = s.carrier_id`

// Create inserts the service and all its routes inside a single transaction.
func (r *postgresRepo) Create(ctx context.Context, s *ShippingService) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO services (id, name, partner_services, carrier_id)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.PartnerServices, s.CarrierID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return writeErr("insert service", err)
	}
	if err := insertRoutes(ctx, tx, s); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*ShippingService, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	services, err := r.queryServices(ctx, serviceSelect+` WHERE s.id=$1`, uid)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, ErrNotFound
	}
	return services[0], nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*ShippingService, error) {
	return r.queryServices(ctx, serviceSelect+` ORDER BY s.created_at DESC`)
}

func (r *postgresRepo) Search(ctx context.Context, pol, pod string) ([]*ShippingService, error) {
	return r.queryServices(ctx, serviceSelect+`
		WHERE EXISTS (
			SELECT 1 FROM service_routes sr
			JOIN ports pol ON pol.id = sr.pol_id
			JOIN ports pod ON pod.id = sr.pod_id
			WHERE sr.service_id = s.id
			  AND (pol.name ILIKE $1 OR pol.unloc ILIKE $1 OR pol.country ILIKE $1)
			  AND (pod.name ILIKE $2 OR pod.unloc ILIKE $2 OR pod.country ILIKE $2))
		ORDER BY s.created_at DESC`,
		"%"+escapeLike(pol)+"%", "%"+escapeLike(pod)+"%")
}

// Update rewrites the service and replaces all of its routes atomically.
func (r *postgresRepo) Update(ctx context.Context, s *ShippingService) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE services
		SET name=$1, partner_services=$2, carrier_id=$3, updated_at=NOW()
		WHERE id=$4
		RETURNING updated_at`,
		s.Name, s.PartnerServices, s.CarrierID, s.ID,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return writeErr("update service", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM service_routes WHERE service_id=$1`, s.ID); err != nil {
		return fmt.Errorf("delete service_routes: %w", err)
	}
	if err := insertRoutes(ctx, tx, s); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) CarrierExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM carriers WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) CountPorts(ctx context.Context, ids []string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ports WHERE id = ANY($1::uuid[])`, pq.Array(ids)).Scan(&n)
	return n, err
}

func (r *postgresRepo) ListCarrierRefs(ctx context.Context) ([]Ref, error) {
	return r.queryRefs(ctx, `SELECT id, name FROM carriers ORDER BY name ASC`)
}

func (r *postgresRepo) ListPortRefs(ctx context.Context) ([]Ref, error) {
	return r.queryRefs(ctx, `SELECT id, name FROM ports ORDER BY name ASC`)
}

func (r *postgresRepo) ExistsForCarrier(ctx context.Context, carrierID uuid.UUID, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM services WHERE carrier_id=$1 AND LOWER(name)=LOWER($2))`,
		carrierID, name).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) CreateService(ctx context.Context, s *ShippingService) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO services (id, name, partner_services, carrier_id)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.PartnerServices, s.CarrierID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return writeErr("insert service", err)
	}
	return nil
}

func (r *postgresRepo) AddRoute(ctx context.Context, rt *Route) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_routes (id, service_id, pol_id, pod_id, via_id, transit_time, position)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rt.ID, rt.ServiceID, rt.PolID, rt.PodID, nullableUUID(rt.ViaID), rt.TransitTime, rt.Position)
	if err != nil {
		return writeErr("insert service_route", err)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func insertRoutes(ctx context.Context, tx *sql.Tx, s *ShippingService) error {
	for i, rt := range s.Routes {
		rt.ServiceID = s.ID
		rt.Position = i
		_, err := tx.ExecContext(ctx, `
			INSERT INTO service_routes (id, service_id, pol_id, pod_id, via_id, transit_time, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			rt.ID, rt.ServiceID, rt.PolID, rt.PodID, nullableUUID(rt.ViaID), rt.TransitTime, rt.Position)
		if err != nil {
			return writeErr("insert service_route", err)
		}
	}
	return nil
}

// queryServices runs a serviceSelect query and loads routes and their ports.
func (r *postgresRepo) queryServices(ctx context.Context, query string, args ...interface{}) ([]*ShippingService, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []*ShippingService{}
	for rows.Next() {
		s := &ShippingService{Routes: []*Route{}}
		var partners sql.NullString
		c, err := carrier.Scan(func(dest ...interface{}) error {
			head := []interface{}{&s.ID, &s.Name, &partners, &s.CarrierID, &s.CreatedAt, &s.UpdatedAt}
			return rows.Scan(append(head, dest...)...)
		})
		if err != nil {
			return nil, err
		}
		if partners.Valid {
			s.PartnerServices = &partners.String
		}
		s.Carrier = c
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachRoutes(ctx, services); err != nil {
		return nil, err
	}
	return services, nil
}

func (r *postgresRepo) attachRoutes(ctx context.Context, services []*ShippingService) error {
	if len(services) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*ShippingService, len(services))
	ids := make([]string, 0, len(services))
	for _, s := range services {
		byID[s.ID] = s
		ids = append(ids, s.ID.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, service_id, pol_id, pod_id, via_id, transit_time, position
		FROM service_routes WHERE service_id = ANY($1::uuid[])
		ORDER BY position ASC`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	var routes []*Route
	portIDs := map[string]bool{}
	for rows.Next() {
		rt := &Route{}
		var via uuid.NullUUID
		if err := rows.Scan(&rt.ID, &rt.ServiceID, &rt.PolID, &rt.PodID, &via, &rt.TransitTime, &rt.Position); err != nil {
			return err
		}
		if via.Valid {
			rt.ViaID = &via.UUID
			portIDs[via.UUID.String()] = true
		}
		portIDs[rt.PolID.String()] = true
		portIDs[rt.PodID.String()] = true
		if s, ok := byID[rt.ServiceID]; ok {
			s.Routes = append(s.Routes, rt)
			routes = append(routes, rt)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(routes) == 0 {
		return nil
	}

	ports, err := r.loadPorts(ctx, portIDs)
	if err != nil {
		return err
	}
	for _, rt := range routes {
		rt.PolPort = ports[rt.PolID]
		rt.PodPort = ports[rt.PodID]
		if rt.ViaID != nil {
			rt.ViaPort = ports[*rt.ViaID]
		}
	}
	return nil
}

func (r *postgresRepo) loadPorts(ctx context.Context, set map[string]bool) (map[uuid.UUID]*port.Port, error) {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+port.Columns+` FROM ports WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ports := make(map[uuid.UUID]*port.Port, len(ids))
	for rows.Next() {
		p, err := port.Scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		ports[p.ID] = p
	}
	return ports, rows.Err()
}

func (r *postgresRepo) queryRefs(ctx context.Context, query string) ([]Ref, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []Ref{}
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func writeErr(op string, err error) error {
	if database.IsForeignKeyViolation(err) {
		return ErrInvalidReference
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(strings.TrimSpace(s)) }
