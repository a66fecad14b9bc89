package port

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/metrics"
	"github.com/swenlog/carrier-directory/internal/validation"
)

const (
	searchCandidates = 100
	searchLimit      = 20
)

// Service defines port business logic.
type Service interface {
	CreatePort(ctx context.Context, req PortRequest) (*Port, error)
	GetPort(ctx context.Context, id string) (*Port, error)
	ListPorts(ctx context.Context) ([]*Port, error)
	SearchPorts(ctx context.Context, query string) ([]*Port, error)
	UpdatePort(ctx context.Context, id string, req PortRequest) (*Port, error)
	DeletePort(ctx context.Context, id string) error
	BulkCreate(ctx context.Context, entries []PortRequest) *BulkResult
}

type service struct {
	repo    Repository
	metrics *metrics.Metrics
}

func NewService(repo Repository, m *metrics.Metrics) Service {
	return &service{repo: repo, metrics: m}
}

func (s *service) CreatePort(ctx context.Context, req PortRequest) (*Port, error) {
	if err := checkRequest(&req); err != nil {
		return nil, err
	}
	p := &Port{ID: uuid.New()}
	apply(p, req)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create port: %w", err)
	}
	return p, nil
}

func (s *service) GetPort(ctx context.Context, id string) (*Port, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListPorts(ctx context.Context) ([]*Port, error) {
	return s.repo.List(ctx)
}

// SearchPorts narrows candidates with a substring match in the database and
// ranks them by how closely name, unloc or country matches the query.
func (s *service) SearchPorts(ctx context.Context, query string) ([]*Port, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Port{}, nil
	}
	candidates, err := s.repo.Search(ctx, query, searchCandidates)
	if err != nil {
		return nil, fmt.Errorf("search ports: %w", err)
	}

	ranks := make(map[uuid.UUID]int, len(candidates))
	for _, p := range candidates {
		ranks[p.ID] = rank(query, p)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := ranks[candidates[i].ID], ranks[candidates[j].ID]
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(candidates[i].Name) < strings.ToLower(candidates[j].Name)
	})
	if len(candidates) > searchLimit {
		candidates = candidates[:searchLimit]
	}
	return candidates, nil
}

// rank is the smallest Levenshtein distance between query and any searchable
// field it fuzzily matches. Exact unloc hits always come first.
func rank(query string, p *Port) int {
	if strings.EqualFold(query, p.Unloc) {
		return -1
	}
	best := -1
	for _, target := range []string{p.Name, p.Unloc, p.Country} {
		r := fuzzy.RankMatchNormalizedFold(query, target)
		if r >= 0 && (best < 0 || r < best) {
			best = r
		}
	}
	if best < 0 {
		return math.MaxInt
	}
	return best
}

func (s *service) UpdatePort(ctx context.Context, id string, req PortRequest) (*Port, error) {
	if err := checkRequest(&req); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(p, req)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update port: %w", err)
	}
	return p, nil
}

// DeletePort refuses to remove a port while any route references it.
func (s *service) DeletePort(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountRouteReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("count route references: %w", err)
	}
	if n > 0 {
		return ErrInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete port: %w", err)
	}
	return nil
}

// BulkCreate inserts every entry whose unloc is not yet known. Entries are
// independent: a failure is recorded and processing continues.
func (s *service) BulkCreate(ctx context.Context, entries []PortRequest) *BulkResult {
	log := logging.FromContext(ctx)
	res := &BulkResult{
		Message:        "Bulk upload completed",
		TotalProcessed: len(entries),
		Errors:         []string{},
	}

	for _, req := range entries {
		req.normalize()
		if req.Unloc != "" {
			_, err := s.repo.GetByUnloc(ctx, req.Unloc)
			if err == nil {
				res.DuplicateCount++
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				log.WithError(err).WithField("unloc", req.Unloc).Error("port lookup failed")
				res.Errors = append(res.Errors, fmt.Sprintf("Failed to process port: %s (%s)", req.Name, req.Unloc))
				continue
			}
		}
		if req.Name == "" || req.Country == "" || req.Unloc == "" {
			res.Errors = append(res.Errors, "Missing required fields for port: "+req.describe())
			continue
		}
		if _, err := s.CreatePort(ctx, req); err != nil {
			if errors.Is(err, ErrDuplicateUnloc) {
				res.DuplicateCount++
				continue
			}
			if !validation.IsInvalid(err) {
				log.WithError(err).WithField("unloc", req.Unloc).Error("port create failed")
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to process port: %s (%s)", req.Name, req.Unloc))
			continue
		}
		res.SuccessCount++
	}

	res.ErrorCount = len(res.Errors)
	s.metrics.ObservePortsBulk(res.SuccessCount, res.DuplicateCount, res.ErrorCount)
	log.WithFields(logrus.Fields{
		"total":      res.TotalProcessed,
		"created":    res.SuccessCount,
		"duplicates": res.DuplicateCount,
		"errors":     res.ErrorCount,
	}).Info("ports bulk upload completed")
	return res
}

// ── helpers ───────────────────────────────────────────────────────────────────

func checkRequest(req *PortRequest) error {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return err
	}
	return validation.Struct(coordinates{Latitude: req.Latitude.ptr(), Longitude: req.Longitude.ptr()})
}

func apply(p *Port, req PortRequest) {
	p.Name = req.Name
	p.Country = req.Country
	p.Unloc = req.Unloc
	p.Code = nil
	if req.Code != "" {
		code := req.Code
		p.Code = &code
	}
	p.Latitude = req.Latitude.ptr()
	p.Longitude = req.Longitude.ptr()
}
