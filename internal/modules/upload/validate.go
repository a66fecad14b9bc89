package upload

import (
	"fmt"
	"strings"
)

// DefaultTransitTime replaces a missing transit time.
const DefaultTransitTime = "TBD"

// ParsedRoute is one route of a ParsedService, still keyed by port names.
type ParsedRoute struct {
	RouteName   string `json:"routeName"`
	POL         string `json:"pol"`
	POD         string `json:"pod"`
	TransitTime string `json:"transitTime"`
}

// ParsedService is a group of upload rows sharing a service name.
type ParsedService struct {
	Name            string        `json:"name"`
	CarrierName     string        `json:"carrierName"`
	PartnerServices string        `json:"partnerServices"`
	Routes          []ParsedRoute `json:"routes"`
}

// ValidationReport is the outcome of Validate. Services holds the groups that
// survived validation even when IsValid is false.
type ValidationReport struct {
	IsValid  bool
	Errors   []string
	Warnings []string
	Services []ParsedService
}

// TotalRoutes counts the routes across all parsed services.
func (r *ValidationReport) TotalRoutes() int {
	n := 0
	for _, s := range r.Services {
		n += len(s.Routes)
	}
	return n
}

// lookup is a case-insensitive set of entity names.
type lookup map[string]string

func newLookup(names []string) lookup {
	l := make(lookup, len(names))
	for _, n := range names {
		l[lookupKey(n)] = n
	}
	return l
}

func (l lookup) has(name string) bool {
	_, ok := l[lookupKey(name)]
	return ok
}

func lookupKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type group struct {
	key  string
	rows []Row
}

// groupRows partitions rows by their raw service name, keeping the order in
// which each name first appears.
func groupRows(rows []Row) []*group {
	var groups []*group
	index := map[string]*group{}
	for _, row := range rows {
		key := row.Get(FieldServiceName)
		g, ok := index[key]
		if !ok {
			g = &group{key: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}
	return groups
}

// Validate groups rows into services and checks every carrier and port name
// against the given reference names.
func Validate(rows []Row, carrierNames, portNames []string) *ValidationReport {
	carriers := newLookup(carrierNames)
	ports := newLookup(portNames)

	report := &ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
		Services: []ParsedService{},
	}

	for _, g := range groupRows(rows) {
		first := g.rows[0]
		name := strings.TrimSpace(g.key)
		if name == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: Service name is required", first.Number))
			continue
		}

		carrierName := strings.TrimSpace(first.Get(FieldCarrier))
		if carrierName == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("Service %q: Carrier is required", g.key))
			continue
		}
		if !carriers.has(carrierName) {
			report.Errors = append(report.Errors, fmt.Sprintf("Service %q: Carrier %q not found in database", g.key, carrierName))
			continue
		}

		parsed := ParsedService{
			Name:            name,
			CarrierName:     carrierName,
			PartnerServices: strings.TrimSpace(first.Get(FieldPartnerServices)),
			Routes:          []ParsedRoute{},
		}

		for _, row := range g.rows {
			pol := strings.TrimSpace(row.Get(FieldPOL))
			pod := strings.TrimSpace(row.Get(FieldPOD))
			if pol == "" || pod == "" {
				report.Errors = append(report.Errors,
					fmt.Sprintf("Service %q: POL and POD are required for each route (row %d)", g.key, row.Number))
				continue
			}
			if !ports.has(pol) {
				report.Errors = append(report.Errors, fmt.Sprintf("Service %q: Port %q not found in database", g.key, pol))
				continue
			}
			if !ports.has(pod) {
				report.Errors = append(report.Errors, fmt.Sprintf("Service %q: Port %q not found in database", g.key, pod))
				continue
			}

			transit := strings.TrimSpace(row.Get(FieldTransitTime))
			if transit == "" {
				report.Warnings = append(report.Warnings, fmt.Sprintf("Service %q: Transit time is recommended", g.key))
				transit = DefaultTransitTime
			}

			parsed.Routes = append(parsed.Routes, ParsedRoute{
				RouteName:   strings.TrimSpace(row.Get(FieldRouteName)),
				POL:         pol,
				POD:         pod,
				TransitTime: transit,
			})
		}

		if len(parsed.Routes) == 0 {
			report.Errors = append(report.Errors, fmt.Sprintf("Service %q: No valid routes found", g.key))
			continue
		}
		report.Services = append(report.Services, parsed)
	}

	report.IsValid = len(report.Errors) == 0
	return report
}
