package main

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swenlog/carrier-directory/internal/database"
	"github.com/swenlog/carrier-directory/internal/modules/carrier"
	"github.com/swenlog/carrier-directory/internal/modules/port"
	"github.com/swenlog/carrier-directory/internal/modules/shipping"
	"github.com/swenlog/carrier-directory/internal/modules/upload"
)

var seedCarriers = []carrier.CarrierRequest{
	{Name: "Maersk", Description: "A.P. Moller - Maersk container line", CarrierType: string(carrier.TypeMLO)},
	{Name: "MSC", Description: "Mediterranean Shipping Company", CarrierType: string(carrier.TypeMLO)},
	{Name: "COSCO", Description: "COSCO Shipping Lines", CarrierType: string(carrier.TypeMLO)},
}

var seedPorts = []port.PortRequest{
	{Name: "Shanghai", Country: "China", Unloc: "CNSHA", Latitude: port.Float(31.2304), Longitude: port.Float(121.4737)},
	{Name: "Ningbo", Country: "China", Unloc: "CNNGB", Latitude: port.Float(29.8683), Longitude: port.Float(121.5440)},
	{Name: "Qingdao", Country: "China", Unloc: "CNTAO", Latitude: port.Float(36.0671), Longitude: port.Float(120.3826)},
	{Name: "Singapore", Country: "Singapore", Unloc: "SGSIN", Latitude: port.Float(1.2644), Longitude: port.Float(103.8222)},
	{Name: "Rotterdam", Country: "Netherlands", Unloc: "NLRTM", Latitude: port.Float(51.9244), Longitude: port.Float(4.4777)},
	{Name: "Hamburg", Country: "Germany", Unloc: "DEHAM", Latitude: port.Float(53.5511), Longitude: port.Float(9.9937)},
	{Name: "Antwerp", Country: "Belgium", Unloc: "BEANR", Latitude: port.Float(51.2194), Longitude: port.Float(4.4025)},
	{Name: "Los Angeles", Country: "United States", Unloc: "USLAX", Latitude: port.Float(33.7405), Longitude: port.Float(-118.2760)},
}

var seedServices = []upload.ParsedService{
	{
		Name: "Asia-Europe Express", CarrierName: "Maersk", PartnerServices: "Rail connections throughout Europe",
		Routes: []upload.ParsedRoute{
			{RouteName: "Main Route", POL: "Shanghai", POD: "Rotterdam", TransitTime: "30 days"},
			{RouteName: "Alternative Route", POL: "Ningbo", POD: "Hamburg", TransitTime: "28 days"},
		},
	},
	{
		Name: "Trans-Pacific Service", CarrierName: "MSC", PartnerServices: "Intermodal rail services",
		Routes: []upload.ParsedRoute{
			{RouteName: "Direct Route", POL: "Qingdao", POD: "Los Angeles", TransitTime: "18 days"},
		},
	},
	{
		Name: "Far East Loop", CarrierName: "COSCO",
		Routes: []upload.ParsedRoute{
			{POL: "Singapore", POD: "Antwerp", TransitTime: "24 days"},
			{POL: "Shanghai", POD: "Antwerp", TransitTime: "32 days"},
		},
	},
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample carriers, ports and services",
		Long:  "Load sample carriers, ports and services. Records that already exist are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := database.Open(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := seedCarrierRows(ctx, carrier.NewService(carrier.NewPostgresRepository(db)), a.logger); err != nil {
				return err
			}

			ports := port.NewService(port.NewPostgresRepository(db), nil).BulkCreate(ctx, seedPorts)
			a.logger.WithFields(logrus.Fields{
				"created":    ports.SuccessCount,
				"duplicates": ports.DuplicateCount,
				"errors":     ports.ErrorCount,
			}).Info("ports seeded")

			resp, err := upload.NewCommitter(shipping.NewPostgresRepository(db), nil).Commit(ctx, seedServices)
			if err != nil {
				return err
			}
			for i, res := range resp.Results {
				if !res.Success {
					a.logger.WithField("service", seedServices[i].Name).Info(strings.Join(res.Errors, "; "))
				}
			}
			a.logger.WithField("created", resp.Summary.CreatedServices).Info("services seeded")
			return nil
		},
	}
}

func seedCarrierRows(ctx context.Context, svc carrier.Service, logger *logrus.Logger) error {
	existing, err := svc.ListCarriers(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[strings.ToLower(c.Name)] = true
	}

	created := 0
	for _, req := range seedCarriers {
		if known[strings.ToLower(req.Name)] {
			continue
		}
		if _, err := svc.CreateCarrier(ctx, req); err != nil {
			if errors.Is(err, carrier.ErrDuplicateName) {
				continue
			}
			return err
		}
		created++
	}
	logger.WithField("created", created).Info("carriers seeded")
	return nil
}
