// Command pnl-export computes a period P&L against the live database and
// writes it out as an xlsx workbook, for month-end reporting without going
// through the API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/costing"
	"bitbucket.org/stitchfocus/garment_backend/models/reports"
)

func main() {
	periodFlag := flag.String("period", "MONTHLY", "rollup period: MONTHLY, QUARTERLY or ANNUAL")
	refFlag := flag.String("ref", "", "reference date (YYYY-MM-DD) inside the period, default today")
	startFlag := flag.String("start", "", "explicit window start (YYYY-MM-DD), overrides the period boundary")
	endFlag := flag.String("end", "", "explicit window end (YYYY-MM-DD, exclusive), overrides the period boundary")
	customerFlag := flag.Int("customer", 0, "restrict to one customer id")
	outFlag := flag.String("out", "period-pnl.xlsx", "output file")
	flag.Parse()

	period := costing.Period(strings.ToUpper(*periodFlag))
	if !period.IsValid() {
		log.Fatalf("invalid period %q", *periodFlag)
	}

	refDate := time.Now().UTC()
	if *refFlag != "" {
		t, err := time.Parse("2006-01-02", *refFlag)
		if err != nil {
			log.Fatalf("invalid ref date %q: %v", *refFlag, err)
		}
		refDate = t
	}
	parseOptional := func(name, v string) *time.Time {
		if v == "" {
			return nil
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			log.Fatalf("invalid %s date %q: %v", name, v, err)
		}
		return &t
	}
	startDate := parseOptional("start", *startFlag)
	endDate := parseOptional("end", *endFlag)

	var customerId *int
	if *customerFlag > 0 {
		customerId = customerFlag
	}

	config.ConnectDatabaseWithRetry()

	ctx := context.Background()
	report, err := reports.GetPeriodPnLReport(ctx, period, refDate, startDate, endDate, customerId)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*outFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := reports.ExportPeriodPnLExcel(report, f); err != nil {
		log.Fatal(err)
	}

	log.Printf("wrote %s: %d orders, window %s to %s",
		*outFlag, len(report.Summary.Orders),
		report.FromDate.Format("2006-01-02"), report.ToDate.Format("2006-01-02"))
}
