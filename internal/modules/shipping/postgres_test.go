package shipping

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func sampleService() *ShippingService {
	id := uuid.New()
	via := uuid.New()
	return &ShippingService{
		ID: id, Name: "AE1", CarrierID: uuid.New(),
		Routes: []*Route{
			{ID: uuid.New(), PolID: uuid.New(), PodID: uuid.New(), TransitTime: "30 days"},
			{ID: uuid.New(), PolID: uuid.New(), PodID: uuid.New(), ViaID: &via, TransitTime: "TBD"},
		},
	}
}

func TestPostgresCreateInsertsRoutesInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := sampleService()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO services (id, name, partner_services, carrier_id)")).
		WithArgs(s.ID, "AE1", nil, s.CarrierID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_routes")).
		WithArgs(s.Routes[0].ID, s.ID, s.Routes[0].PolID, s.Routes[0].PodID, nil, "30 days", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_routes")).
		WithArgs(s.Routes[1].ID, s.ID, s.Routes[1].PolID, s.Routes[1].PodID, *s.Routes[1].ViaID, "TBD", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), s))
	assert.Equal(t, s.ID, s.Routes[1].ServiceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRollsBackOnForeignKeyViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := sampleService()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO services")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_routes")).
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), s)
	assert.True(t, errors.Is(err, ErrInvalidReference))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateReplacesRoutes(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := sampleService()
	s.Routes = s.Routes[:1]

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE services")).
		WithArgs("AE1", nil, s.CarrierID, s.ID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM service_routes WHERE service_id=$1")).
		WithArgs(s.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_routes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE services")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	mock.ExpectRollback()

	assert.True(t, errors.Is(repo.Update(context.Background(), sampleService()), ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDHydratesCarrierAndPorts(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, carrierID, pol, pod := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("JOIN carriers c ON c.id = s.carrier_id WHERE s.id=$1")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "partner_services", "carrier_id", "created_at", "updated_at",
			"c_id", "c_name", "c_description", "c_logo_url", "c_carrier_type", "c_created_at", "c_updated_at",
		}).AddRow(id.String(), "AE1", "2M", carrierID.String(), now, now,
			carrierID.String(), "Maersk", nil, nil, "MLO", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM service_routes WHERE service_id = ANY($1::uuid[])")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "service_id", "pol_id", "pod_id", "via_id", "transit_time", "position"}).
			AddRow(uuid.NewString(), id.String(), pol.String(), pod.String(), nil, "30 days", 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ports WHERE id = ANY($1::uuid[])")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "country", "unloc", "code", "latitude", "longitude", "created_at", "updated_at"}).
			AddRow(pol.String(), "Shanghai", "China", "CNSHA", nil, nil, nil, now, now).
			AddRow(pod.String(), "Rotterdam", "Netherlands", "NLRTM", nil, nil, nil, now, now))

	s, err := repo.GetByID(context.Background(), id.String())
	require.NoError(t, err)
	require.NotNil(t, s.Carrier)
	assert.Equal(t, "Maersk", s.Carrier.Name)
	require.NotNil(t, s.PartnerServices)
	assert.Equal(t, "2M", *s.PartnerServices)
	require.Len(t, s.Routes, 1)
	assert.Equal(t, "Shanghai", s.Routes[0].PolPort.Name)
	assert.Equal(t, "Rotterdam", s.Routes[0].PodPort.Name)
	assert.Nil(t, s.Routes[0].ViaPort)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id=$1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSearchPatterns(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("pol.name ILIKE $1 OR pol.unloc ILIKE $1")).
		WithArgs("%shanghai%", `%rotter\_dam%`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	services, err := repo.Search(context.Background(), " shanghai ", "rotter_dam")
	require.NoError(t, err)
	assert.Empty(t, services)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExistsForCarrier(t *testing.T) {
	repo, mock := newMockRepo(t)
	carrierID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE carrier_id=$1 AND LOWER(name)=LOWER($2)")).
		WithArgs(carrierID, "ae1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsForCarrier(context.Background(), carrierID, "ae1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddRouteForeignKey(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_routes")).
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.AddRoute(context.Background(), &Route{ID: uuid.New(), ServiceID: uuid.New(), PolID: uuid.New(), PodID: uuid.New(), TransitTime: "TBD"})
	assert.True(t, errors.Is(err, ErrInvalidReference))
	assert.NoError(t, mock.ExpectationsWereMet())
}
