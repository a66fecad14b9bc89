package carrier

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

var carrierColumns = []string{"id", "name", "description", "logo_url", "carrier_type", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresDeleteCascadesInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM service_routes WHERE service_id IN (SELECT id FROM services WHERE carrier_id=$1)")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM services WHERE carrier_id=$1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM carriers WHERE id=$1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteMissingRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM service_routes")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM services")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM carriers")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.True(t, errors.Is(repo.Delete(context.Background(), id), ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateDuplicateName(t *testing.T) {
	repo, mock := newMockRepo(t)
	typ := TypeMLO
	c := &Carrier{ID: uuid.New(), Name: "Maersk", CarrierType: &typ}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO carriers")).
		WithArgs(sqlmock.AnyArg(), "Maersk", nil, nil, "MLO").
		WillReturnError(&pq.Error{Code: "23505"})

	assert.True(t, errors.Is(repo.Create(context.Background(), c), ErrDuplicateName))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAttachesServices(t *testing.T) {
	repo, mock := newMockRepo(t)
	maersk, msc := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM carriers ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(carrierColumns).
			AddRow(maersk.String(), "Maersk", nil, nil, "MLO", now, now).
			AddRow(msc.String(), "MSC", "Swiss", nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM services WHERE carrier_id = ANY($1::uuid[])")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "partner_services", "carrier_id", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), "AE1", nil, maersk.String(), now, now).
			AddRow(uuid.NewString(), "AE7", "2M", maersk.String(), now, now))

	carriers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, carriers, 2)
	assert.Len(t, carriers[0].Services, 2)
	assert.Empty(t, carriers[1].Services)
	require.NotNil(t, carriers[1].Description)
	assert.Equal(t, "Swiss", *carriers[1].Description)
	assert.Nil(t, carriers[1].CarrierType)
	require.NotNil(t, carriers[0].Services[1].PartnerServices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDLoadsRoutes(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, serviceID, pol, pod := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM carriers WHERE id=$1")).
		WillReturnRows(sqlmock.NewRows(carrierColumns).AddRow(id.String(), "Maersk", nil, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM services WHERE carrier_id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "partner_services", "carrier_id", "created_at", "updated_at"}).
			AddRow(serviceID.String(), "AE1", nil, id.String(), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM service_routes WHERE service_id = ANY($1::uuid[])")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "service_id", "pol_id", "pod_id", "via_id", "transit_time"}).
			AddRow(uuid.NewString(), serviceID.String(), pol.String(), pod.String(), nil, "30 days"))

	c, err := repo.GetByID(context.Background(), id.String())
	require.NoError(t, err)
	require.Len(t, c.Services, 1)
	require.Len(t, c.Services[0].Routes, 1)
	rt := c.Services[0].Routes[0]
	assert.Equal(t, pol, rt.PolID)
	assert.Nil(t, rt.ViaID)
	assert.Equal(t, "30 days", rt.TransitTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carriers WHERE id=$1")).
		WillReturnRows(sqlmock.NewRows(carrierColumns))

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
