package upload

import (
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

const (
	TemplateCSVName  = "service-template.csv"
	TemplateXLSXName = "service-template.xlsx"

	servicesSheet     = "Services"
	instructionsSheet = "Instructions"
)

type templateRow struct {
	ServiceName     string `csv:"Service Name"`
	Carrier         string `csv:"Carrier"`
	POL             string `csv:"POL"`
	POD             string `csv:"POD"`
	TransitTime     string `csv:"Transit Time"`
	PartnerServices string `csv:"Partner Services"`
	RouteName       string `csv:"Route Name"`
}

func (r templateRow) cells() []interface{} {
	return []interface{}{r.ServiceName, r.Carrier, r.POL, r.POD, r.TransitTime, r.PartnerServices, r.RouteName}
}

var templateHeader = []interface{}{
	"Service Name", "Carrier", "POL", "POD", "Transit Time", "Partner Services", "Route Name",
}

var templateRows = []*templateRow{
	{"Asia-Europe Express", "Maersk", "Shanghai", "Rotterdam", "30 days", "Rail connections throughout Europe", "Main Route"},
	{"Asia-Europe Express", "Maersk", "Ningbo", "Hamburg", "28 days", "Rail connections throughout Europe", "Alternative Route"},
	{"Trans-Pacific Service", "MSC", "Qingdao", "Los Angeles", "18 days", "Intermodal rail services", "Direct Route"},
}

var templateInstructions = [][]interface{}{
	{"Field", "Required", "Description"},
	{"Service Name", "Yes", "Name of the shipping service. Rows with the same name form one service."},
	{"Carrier", "Yes", "Carrier name. Must match an existing carrier."},
	{"POL", "Yes", "Port of loading. Must match an existing port name."},
	{"POD", "Yes", "Port of discharge. Must match an existing port name."},
	{"Transit Time", "No", "Transit time for the route, e.g. 30 days. Defaults to TBD."},
	{"Partner Services", "No", "Partner or connecting services. Read from the first row of a service."},
	{"Route Name", "No", "Optional label for the route."},
}

// TemplateCSV renders the upload template as CSV.
func TemplateCSV() ([]byte, error) {
	return gocsv.MarshalBytes(&templateRows)
}

// TemplateXLSX renders the upload template as a workbook with a Services
// sheet and an Instructions sheet.
func TemplateXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", servicesSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(servicesSheet, "A1", &templateHeader); err != nil {
		return nil, err
	}
	for i, row := range templateRows {
		cells := row.cells()
		if err := f.SetSheetRow(servicesSheet, fmt.Sprintf("A%d", i+2), &cells); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(servicesSheet, "A", "G", 22); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return nil, err
	}
	for i, row := range templateInstructions {
		row := row
		if err := f.SetSheetRow(instructionsSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(instructionsSheet, "C", "C", 70); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
