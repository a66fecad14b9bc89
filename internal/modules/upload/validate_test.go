package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	knownCarriers = []string{"Maersk", "MSC"}
	knownPorts    = []string{"Shanghai", "Rotterdam", "Ningbo", "Hamburg", "Qingdao", "Los Angeles"}
)

func mkRow(n int, service, carrier, pol, pod, transit string) Row {
	return Row{Number: n, Fields: map[string]string{
		FieldServiceName: service,
		FieldCarrier:     carrier,
		FieldPOL:         pol,
		FieldPOD:         pod,
		FieldTransitTime: transit,
	}}
}

func TestValidateSingleRowTemplate(t *testing.T) {
	data := "Service Name,Carrier,POL,POD,Transit Time\nAE1,Maersk,Shanghai,Rotterdam,30 days\n"
	rows, err := ParseFile("services.csv", "", []byte(data))
	require.NoError(t, err)

	report := Validate(rows, knownCarriers, knownPorts)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	require.Len(t, report.Services, 1)
	assert.Equal(t, "Maersk", report.Services[0].CarrierName)
	assert.Equal(t, []ParsedRoute{{POL: "Shanghai", POD: "Rotterdam", TransitTime: "30 days"}}, report.Services[0].Routes)
}

func TestValidateTemplateRoundTrip(t *testing.T) {
	data, err := TemplateCSV()
	require.NoError(t, err)
	rows, err := ParseFile(TemplateCSVName, "text/csv", data)
	require.NoError(t, err)

	report := Validate(rows, knownCarriers, knownPorts)
	assert.True(t, report.IsValid, report.Errors)
	require.Len(t, report.Services, 2)
	assert.Equal(t, "Asia-Europe Express", report.Services[0].Name)
	assert.Equal(t, "Rail connections throughout Europe", report.Services[0].PartnerServices)
	assert.Len(t, report.Services[0].Routes, 2)
	assert.Equal(t, "Main Route", report.Services[0].Routes[0].RouteName)
	assert.Equal(t, "Trans-Pacific Service", report.Services[1].Name)
	assert.Equal(t, 3, report.TotalRoutes())
}

func TestValidateMissingTransitTimeWarns(t *testing.T) {
	report := Validate([]Row{mkRow(2, "AE1", "Maersk", "Shanghai", "Rotterdam", " ")}, knownCarriers, knownPorts)

	assert.True(t, report.IsValid)
	assert.Equal(t, []string{`Service "AE1": Transit time is recommended`}, report.Warnings)
	require.Len(t, report.Services, 1)
	assert.Equal(t, DefaultTransitTime, report.Services[0].Routes[0].TransitTime)
}

func TestValidateUnknownCarrierDropsGroup(t *testing.T) {
	rows := []Row{
		mkRow(2, "AE1", "Maersk2", "Shanghai", "Rotterdam", "30 days"),
		mkRow(3, "AE1", "Maersk", "Ningbo", "Rotterdam", "32 days"),
	}

	report := Validate(rows, knownCarriers, knownPorts)
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{`Service "AE1": Carrier "Maersk2" not found in database`}, report.Errors)
	assert.Empty(t, report.Services)
}

func TestValidateMissingCarrierAndName(t *testing.T) {
	rows := []Row{
		mkRow(2, "AE1", "", "Shanghai", "Rotterdam", "30 days"),
		mkRow(3, "  ", "Maersk", "Shanghai", "Rotterdam", "30 days"),
	}

	report := Validate(rows, knownCarriers, knownPorts)
	assert.Equal(t, []string{
		`Service "AE1": Carrier is required`,
		"Row 3: Service name is required",
	}, report.Errors)
	assert.Empty(t, report.Services)
}

func TestValidateDropsBadRowsOnly(t *testing.T) {
	rows := []Row{
		mkRow(2, "AE1", "Maersk", "Shanghai", "Rotterdam", "30 days"),
		mkRow(3, "AE1", "Maersk", "Atlantis", "Rotterdam", "30 days"),
		mkRow(4, "AE1", "Maersk", "Ningbo", "Gotham", "30 days"),
		mkRow(5, "AE1", "Maersk", "Ningbo", "", "30 days"),
	}

	report := Validate(rows, knownCarriers, knownPorts)
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{
		`Service "AE1": Port "Atlantis" not found in database`,
		`Service "AE1": Port "Gotham" not found in database`,
		`Service "AE1": POL and POD are required for each route (row 5)`,
	}, report.Errors)
	require.Len(t, report.Services, 1)
	assert.Len(t, report.Services[0].Routes, 1)
}

func TestValidateNoValidRoutes(t *testing.T) {
	report := Validate([]Row{mkRow(2, "AE1", "Maersk", "Atlantis", "Rotterdam", "")}, knownCarriers, knownPorts)

	assert.Equal(t, []string{
		`Service "AE1": Port "Atlantis" not found in database`,
		`Service "AE1": No valid routes found`,
	}, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.Empty(t, report.Services)
}

func TestValidateLookupsIgnoreCase(t *testing.T) {
	report := Validate([]Row{mkRow(2, "AE1", " maersk ", "SHANGHAI", "rotterdam", "30 days")}, knownCarriers, knownPorts)

	assert.True(t, report.IsValid, report.Errors)
	require.Len(t, report.Services, 1)
	assert.Equal(t, "maersk", report.Services[0].CarrierName)
}

func TestGroupingPartitionsRowsInFirstAppearanceOrder(t *testing.T) {
	rows := []Row{
		mkRow(2, "TP6", "MSC", "Qingdao", "Los Angeles", "18 days"),
		mkRow(3, "AE1", "Maersk", "Shanghai", "Rotterdam", "30 days"),
		mkRow(4, "TP6", "MSC", "Ningbo", "Los Angeles", "20 days"),
		mkRow(5, "ae1", "Maersk", "Ningbo", "Hamburg", "28 days"),
		mkRow(6, "AE1", "Maersk", "Qingdao", "Hamburg", "31 days"),
	}

	groups := groupRows(rows)
	require.Len(t, groups, 3)
	seen := map[int]int{}
	for _, g := range groups {
		for _, r := range g.rows {
			seen[r.Number]++
		}
	}
	assert.Len(t, seen, len(rows))
	for n, count := range seen {
		assert.Equal(t, 1, count, "row %d", n)
	}

	report := Validate(rows, knownCarriers, knownPorts)
	require.True(t, report.IsValid, report.Errors)
	names := []string{}
	for _, s := range report.Services {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"TP6", "AE1", "ae1"}, names)
	assert.Equal(t, len(rows), report.TotalRoutes())
}

func TestValidPayloadRoutesReferenceKnownPorts(t *testing.T) {
	rows := []Row{
		mkRow(2, "AE1", "Maersk", "Shanghai", "Rotterdam", "30 days"),
		mkRow(3, "AE1", "Maersk", "Nowhere", "Rotterdam", "30 days"),
		mkRow(4, "TP6", "MSC", "Qingdao", "Los Angeles", ""),
		mkRow(5, "XX1", "Unknown", "Qingdao", "Los Angeles", ""),
	}

	ports := newLookup(knownPorts)
	report := Validate(rows, knownCarriers, knownPorts)
	for _, s := range report.Services {
		require.NotEmpty(t, s.Routes, s.Name)
		for _, rt := range s.Routes {
			assert.True(t, ports.has(rt.POL), rt.POL)
			assert.True(t, ports.has(rt.POD), rt.POD)
		}
	}
}
