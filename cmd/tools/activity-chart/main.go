// Command activity-chart renders a bar chart of transactions captured per
// session from a capture database. The output is a standalone HTML file.
//
// Usage:
//
//	activity-chart -db capture.db -out activity.html
package main

import (
	"flag"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/buswatch/internal/db"
)

var (
	dbFile  = flag.String("db", "capture.db", "Path to the capture database")
	outFile = flag.String("out", "activity.html", "Output HTML file")
)

func main() {
	flag.Parse()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	activities, err := database.SessionActivities()
	if err != nil {
		log.Fatalf("failed to load session activity: %v", err)
	}
	if len(activities) == 0 {
		log.Fatal("no sessions recorded")
	}

	sessions := make([]string, 0, len(activities))
	counts := make([]opts.BarData, 0, len(activities))
	for _, a := range activities {
		// session IDs are UUIDs; the first block is enough to tell
		// bars apart on the axis
		label := a.SessionID
		if len(label) > 8 {
			label = label[:8]
		}
		sessions = append(sessions, label)
		counts = append(counts, opts.BarData{Value: a.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Capture Activity", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Transactions per capture session"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(sessions)
	bar.AddSeries("transactions", counts)

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("failed to create output file: %v", err)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}

	log.Printf("wrote %s (%d sessions)", *outFile, len(activities))
}
