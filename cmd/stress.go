package main

import (
	"fmt"

	"syllacal/internal/stress"

	"github.com/urfave/cli/v2"
)

func stressCommand() *cli.Command {
	return &cli.Command{
		Name:  "stress",
		Usage: "Flag overloaded days on your primary calendar.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: stress.DefaultDays, Usage: "Number of days to analyze (1-365)."},
			&cli.StringFlag{Name: "calendar", Value: "primary", Usage: "Google calendar ID to analyze."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			gClient, err := newGoogleClient(c.Context, logger, cfg)
			if err != nil {
				return err
			}

			analysis, err := stress.NewAnalyzer(logger, gClient, c.String("calendar"), cfg.TimeZone).Analyze(c.Context, c.Int("days"))
			if err != nil {
				return fmt.Errorf("failed to analyze calendar stress: %w", err)
			}

			fmt.Printf("%d events over %d days, %.2f per day.\n", analysis.TotalEvents, analysis.TotalDays, analysis.AverageEventsPerDay)
			if analysis.HighStressPeriod {
				fmt.Println("This is a high stress period.")
			}
			for _, day := range analysis.HighStressDays {
				marker := "marker not created"
				if day.MarkerEventID != "" {
					marker = "marked"
				}
				fmt.Printf("  %s: %d events (%s)\n", day.Date, day.EventCount, marker)
			}
			return nil
		},
	}
}
