package port

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/swenlog/carrier-directory/internal/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// Columns lists the ports table columns in Scan order.
const Columns = `id,name,country,unloc,code,latitude,longitude,created_at,updated_at`

func (r *postgresRepo) Create(ctx context.Context, p *Port) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ports (id, name, country, unloc, code, latitude, longitude)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Country, p.Unloc, p.Code, p.Latitude, p.Longitude,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateUnloc
	}
	return err
}

// Scan reads a port row selected with Columns.
func Scan(scan func(...interface{}) error) (*Port, error) {
	p := &Port{}
	var code sql.NullString
	var lat, lng sql.NullFloat64
	err := scan(&p.ID, &p.Name, &p.Country, &p.Unloc, &code, &lat, &lng, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if code.Valid {
		p.Code = &code.String
	}
	if lat.Valid {
		p.Latitude = &lat.Float64
	}
	if lng.Valid {
		p.Longitude = &lng.Float64
	}
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Port, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+Columns+` FROM ports WHERE id=$1`, uid)
	return notFound(Scan(row.Scan))
}

func (r *postgresRepo) GetByUnloc(ctx context.Context, unloc string) (*Port, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+Columns+` FROM ports WHERE unloc=$1`, unloc)
	return notFound(Scan(row.Scan))
}

func (r *postgresRepo) List(ctx context.Context) ([]*Port, error) {
	return r.query(ctx, `SELECT `+Columns+` FROM ports ORDER BY name ASC`)
}

func (r *postgresRepo) Search(ctx context.Context, query string, limit int) ([]*Port, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.query(ctx, `
		SELECT `+Columns+` FROM ports
		WHERE name ILIKE $1 OR country ILIKE $1 OR unloc ILIKE $1
		ORDER BY name ASC
		LIMIT $2`, pattern, limit)
}

func (r *postgresRepo) Update(ctx context.Context, p *Port) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE ports
		SET name=$1, country=$2, unloc=$3, code=$4, latitude=$5, longitude=$6, updated_at=NOW()
		WHERE id=$7
		RETURNING updated_at`,
		p.Name, p.Country, p.Unloc, p.Code, p.Latitude, p.Longitude, p.ID,
	).Scan(&p.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrDuplicateUnloc
	}
	return err
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ports WHERE id=$1`, id)
	if database.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) CountRouteReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM service_routes
		WHERE pol_id=$1 OR pod_id=$1 OR via_id=$1`, id).Scan(&n)
	return n, err
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (r *postgresRepo) query(ctx context.Context, query string, args ...interface{}) ([]*Port, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ports := []*Port{}
	for rows.Next() {
		p, err := Scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, rows.Err()
}

func notFound(p *Port, err error) (*Port, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
