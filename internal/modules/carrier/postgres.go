package carrier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/swenlog/carrier-directory/internal/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// Columns lists the carriers table columns in Scan order.
const Columns = `id,name,description,logo_url,carrier_type,created_at,updated_at`

// Scan reads a carrier row selected with Columns.
func Scan(scan func(...interface{}) error) (*Carrier, error) {
	c := &Carrier{}
	var description, logoURL, carrierType sql.NullString
	if err := scan(&c.ID, &c.Name, &description, &logoURL, &carrierType, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	if logoURL.Valid {
		c.LogoURL = &logoURL.String
	}
	if carrierType.Valid {
		t := Type(carrierType.String)
		c.CarrierType = &t
	}
	return c, nil
}

func (r *postgresRepo) Create(ctx context.Context, c *Carrier) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carriers (id, name, description, logo_url, carrier_type)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Description, c.LogoURL, typeValue(c.CarrierType),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Carrier, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	c, err := Scan(r.db.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM carriers WHERE id=$1`, uid).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	services, err := r.listServices(ctx, []string{c.ID.String()})
	if err != nil {
		return nil, err
	}
	if err := r.attachRoutes(ctx, services); err != nil {
		return nil, err
	}
	c.Services = services
	return c, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*Carrier, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+Columns+`
		FROM carriers ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	carriers := []*Carrier{}
	byID := map[uuid.UUID]*Carrier{}
	ids := []string{}
	for rows.Next() {
		c, err := Scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		c.Services = []*ServiceSummary{}
		carriers = append(carriers, c)
		byID[c.ID] = c
		ids = append(ids, c.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return carriers, nil
	}

	services, err := r.listServices(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range services {
		if c, ok := byID[s.CarrierID]; ok {
			c.Services = append(c.Services, s)
		}
	}
	return carriers, nil
}

func (r *postgresRepo) Update(ctx context.Context, c *Carrier) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE carriers
		SET name=$1, description=$2, logo_url=$3, carrier_type=$4, updated_at=NOW()
		WHERE id=$5
		RETURNING updated_at`,
		c.Name, c.Description, c.LogoURL, typeValue(c.CarrierType), c.ID,
	).Scan(&c.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrDuplicateName
	}
	return err
}

// Delete removes the carrier's routes, its services and the carrier row in one
// transaction.
func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM service_routes
		WHERE service_id IN (SELECT id FROM services WHERE carrier_id=$1)`, id); err != nil {
		return fmt.Errorf("delete service_routes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM services WHERE carrier_id=$1`, id); err != nil {
		return fmt.Errorf("delete services: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM carriers WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete carrier: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (r *postgresRepo) listServices(ctx context.Context, carrierIDs []string) ([]*ServiceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,name,partner_services,carrier_id,created_at,updated_at
		FROM services WHERE carrier_id = ANY($1::uuid[])
		ORDER BY created_at ASC`, pq.Array(carrierIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []*ServiceSummary{}
	for rows.Next() {
		s := &ServiceSummary{}
		var partners sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &partners, &s.CarrierID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if partners.Valid {
			s.PartnerServices = &partners.String
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *postgresRepo) attachRoutes(ctx context.Context, services []*ServiceSummary) error {
	if len(services) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*ServiceSummary, len(services))
	ids := make([]string, 0, len(services))
	for _, s := range services {
		s.Routes = []*Route{}
		byID[s.ID] = s
		ids = append(ids, s.ID.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id,service_id,pol_id,pod_id,via_id,transit_time
		FROM service_routes WHERE service_id = ANY($1::uuid[])
		ORDER BY position ASC`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rt := &Route{}
		var via uuid.NullUUID
		if err := rows.Scan(&rt.ID, &rt.ServiceID, &rt.PolID, &rt.PodID, &via, &rt.TransitTime); err != nil {
			return err
		}
		if via.Valid {
			rt.ViaID = &via.UUID
		}
		if s, ok := byID[rt.ServiceID]; ok {
			s.Routes = append(s.Routes, rt)
		}
	}
	return rows.Err()
}

func typeValue(t *Type) interface{} {
	if t == nil {
		return nil
	}
	return string(*t)
}
