package port

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swenlog/carrier-directory/internal/validation"
)

// MockPortRepository is an in-memory Repository.
type MockPortRepository struct {
	ports     map[string]*Port
	refs      map[string]int
	createErr error
}

func NewMockPortRepository() *MockPortRepository {
	return &MockPortRepository{ports: map[string]*Port{}, refs: map[string]int{}}
}

func (m *MockPortRepository) Create(ctx context.Context, p *Port) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.ports {
		if existing.Unloc == p.Unloc {
			return ErrDuplicateUnloc
		}
	}
	cp := *p
	m.ports[p.ID.String()] = &cp
	return nil
}

func (m *MockPortRepository) GetByID(ctx context.Context, id string) (*Port, error) {
	p, ok := m.ports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPortRepository) GetByUnloc(ctx context.Context, unloc string) (*Port, error) {
	for _, p := range m.ports {
		if p.Unloc == unloc {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockPortRepository) List(ctx context.Context) ([]*Port, error) {
	out := []*Port{}
	for _, p := range m.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockPortRepository) Search(ctx context.Context, query string, limit int) ([]*Port, error) {
	q := strings.ToLower(query)
	all, _ := m.List(ctx)
	out := []*Port{}
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Country), q) ||
			strings.Contains(strings.ToLower(p.Unloc), q) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockPortRepository) Update(ctx context.Context, p *Port) error {
	if _, ok := m.ports[p.ID.String()]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.ports {
		if existing.Unloc == p.Unloc && id != p.ID.String() {
			return ErrDuplicateUnloc
		}
	}
	cp := *p
	m.ports[p.ID.String()] = &cp
	return nil
}

func (m *MockPortRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.ports[id]; !ok {
		return ErrNotFound
	}
	delete(m.ports, id)
	return nil
}

func (m *MockPortRepository) CountRouteReferences(ctx context.Context, id string) (int, error) {
	return m.refs[id], nil
}

func newTestService() (*MockPortRepository, Service) {
	repo := NewMockPortRepository()
	return repo, NewService(repo, nil)
}

func mustCreate(t *testing.T, svc Service, name, country, unloc string) *Port {
	t.Helper()
	p, err := svc.CreatePort(context.Background(), PortRequest{Name: name, Country: country, Unloc: unloc})
	require.NoError(t, err)
	return p
}

func TestCreatePort(t *testing.T) {
	_, svc := newTestService()

	p, err := svc.CreatePort(context.Background(), PortRequest{
		Name: " Shanghai ", Country: "China", Unloc: "CNSHA", Code: "SHA",
		Latitude: Float(31.23), Longitude: Float(121.47),
	})
	require.NoError(t, err)
	assert.Equal(t, "Shanghai", p.Name)
	require.NotNil(t, p.Code)
	assert.Equal(t, "SHA", *p.Code)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 31.23, *p.Latitude, 1e-9)
}

func TestCreatePortValidation(t *testing.T) {
	_, svc := newTestService()

	_, err := svc.CreatePort(context.Background(), PortRequest{Name: "Shanghai", Country: "China"})
	assert.True(t, validation.IsInvalid(err))
	assert.Contains(t, err.Error(), "unloc is required")

	_, err = svc.CreatePort(context.Background(), PortRequest{
		Name: "Nowhere", Country: "X", Unloc: "XXNOW", Latitude: Float(95),
	})
	assert.True(t, validation.IsInvalid(err))
	assert.EqualError(t, err, "latitude must be between -90 and 90")
}

func TestCreatePortCoordinateBounds(t *testing.T) {
	_, svc := newTestService()

	for _, tc := range []struct {
		lat, long OptionalFloat
		msg       string
	}{
		{Float(-90.5), OptionalFloat{}, "latitude must be between -90 and 90"},
		{OptionalFloat{}, Float(180.25), "longitude must be between -180 and 180"},
		{Float(91), Float(-181), "latitude must be between -90 and 90; longitude must be between -180 and 180"},
	} {
		_, err := svc.CreatePort(context.Background(), PortRequest{
			Name: "Nowhere", Country: "X", Unloc: "XXNOW", Latitude: tc.lat, Longitude: tc.long,
		})
		assert.True(t, validation.IsInvalid(err), tc.msg)
		assert.EqualError(t, err, tc.msg)
	}

	for i, tc := range []struct{ lat, long float64 }{{90, 180}, {-90, -180}, {0, 0}, {-33.8688, 151.2093}} {
		p, err := svc.CreatePort(context.Background(), PortRequest{
			Name: "Edge", Country: "X", Unloc: fmt.Sprintf("XXE%02d", i), Latitude: Float(tc.lat), Longitude: Float(tc.long),
		})
		require.NoError(t, err, "%v", tc)
		require.NotNil(t, p.Longitude)
		assert.Equal(t, tc.long, *p.Longitude)
	}
}

func TestCreatePortDuplicateUnloc(t *testing.T) {
	_, svc := newTestService()
	mustCreate(t, svc, "Shanghai", "China", "CNSHA")

	_, err := svc.CreatePort(context.Background(), PortRequest{Name: "Shanghai 2", Country: "China", Unloc: "CNSHA"})
	assert.True(t, errors.Is(err, ErrDuplicateUnloc))
}

func TestUpdatePort(t *testing.T) {
	_, svc := newTestService()
	p := mustCreate(t, svc, "Shanghai", "China", "CNSHA")
	mustCreate(t, svc, "Rotterdam", "Netherlands", "NLRTM")

	updated, err := svc.UpdatePort(context.Background(), p.ID.String(), PortRequest{Name: "Shanghai Port", Country: "China", Unloc: "CNSHA"})
	require.NoError(t, err)
	assert.Equal(t, "Shanghai Port", updated.Name)

	_, err = svc.UpdatePort(context.Background(), p.ID.String(), PortRequest{Name: "Shanghai", Country: "China", Unloc: "NLRTM"})
	assert.True(t, errors.Is(err, ErrDuplicateUnloc))

	_, err = svc.UpdatePort(context.Background(), "missing", PortRequest{Name: "A", Country: "B", Unloc: "C"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteReferencedPortIsRefused(t *testing.T) {
	repo, svc := newTestService()
	p := mustCreate(t, svc, "Shanghai", "China", "CNSHA")
	repo.refs[p.ID.String()] = 2

	err := svc.DeletePort(context.Background(), p.ID.String())
	assert.True(t, errors.Is(err, ErrInUse))

	still, err := svc.GetPort(context.Background(), p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "CNSHA", still.Unloc)
}

func TestDeletePort(t *testing.T) {
	_, svc := newTestService()
	p := mustCreate(t, svc, "Shanghai", "China", "CNSHA")

	require.NoError(t, svc.DeletePort(context.Background(), p.ID.String()))
	_, err := svc.GetPort(context.Background(), p.ID.String())
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(svc.DeletePort(context.Background(), p.ID.String()), ErrNotFound))
}

func TestSearchPorts(t *testing.T) {
	_, svc := newTestService()
	mustCreate(t, svc, "Shanghai", "China", "CNSHA")
	mustCreate(t, svc, "Shantou", "China", "CNSTG")
	mustCreate(t, svc, "Rotterdam", "Netherlands", "NLRTM")

	empty, err := svc.SearchPorts(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	byCountry, err := svc.SearchPorts(context.Background(), "china")
	require.NoError(t, err)
	assert.Len(t, byCountry, 2)

	byUnloc, err := svc.SearchPorts(context.Background(), "nlrtm")
	require.NoError(t, err)
	require.Len(t, byUnloc, 1)
	assert.Equal(t, "Rotterdam", byUnloc[0].Name)
}

func TestSearchPortsRanksCloserMatchesFirst(t *testing.T) {
	_, svc := newTestService()
	mustCreate(t, svc, "Port Shanghai Waigaoqiao", "China", "CNWGQ")
	mustCreate(t, svc, "Shanghai", "China", "CNSHA")

	ports, err := svc.SearchPorts(context.Background(), "Shanghai")
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, "CNSHA", ports[0].Unloc)
}

func TestSearchPortsLimit(t *testing.T) {
	_, svc := newTestService()
	for i := 0; i < 30; i++ {
		mustCreate(t, svc, "Port "+string(rune('A'+i)), "Testland", "TL"+string(rune('A'+i)))
	}
	ports, err := svc.SearchPorts(context.Background(), "testland")
	require.NoError(t, err)
	assert.Len(t, ports, searchLimit)
}

func TestBulkCreate(t *testing.T) {
	_, svc := newTestService()
	mustCreate(t, svc, "Shanghai", "China", "CNSHA")

	res := svc.BulkCreate(context.Background(), []PortRequest{
		{Name: "Shanghai", Country: "China", Unloc: "CNSHA"},
		{Name: "Rotterdam", Country: "Netherlands", Unloc: "NLRTM", Latitude: Float(51.9), Longitude: Float(4.48)},
		{Name: "Hamburg", Unloc: "DEHAM"},
		{Name: "Broken", Country: "X", Unloc: "XXBRK", Latitude: Float(400)},
	})

	assert.Equal(t, "Bulk upload completed", res.Message)
	assert.Equal(t, 4, res.TotalProcessed)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.DuplicateCount)
	assert.Equal(t, 2, res.ErrorCount)
	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Missing required fields for port: "))
	assert.Contains(t, res.Errors[0], `"unloc":"DEHAM"`)
	assert.Equal(t, "Failed to process port: Broken (XXBRK)", res.Errors[1])
}

func TestBulkCreateRepositoryFailure(t *testing.T) {
	repo, svc := newTestService()
	repo.createErr = errors.New("connection reset")

	res := svc.BulkCreate(context.Background(), []PortRequest{{Name: "Hamburg", Country: "Germany", Unloc: "DEHAM"}})
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, []string{"Failed to process port: Hamburg (DEHAM)"}, res.Errors)
}
