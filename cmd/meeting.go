package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"syllacal/internal/availability"
	"syllacal/internal/meeting"
	"syllacal/internal/models"

	"github.com/urfave/cli/v2"
)

func slotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "slots",
		Usage: "Find meeting slots that are free for you and an attendee.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "attendee", Required: true, Usage: "Attendee email address."},
			&cli.IntFlag{Name: "duration", Value: 30, Usage: "Meeting length in minutes (at least 15)."},
			&cli.StringFlag{Name: "window", Value: "any", Usage: "Time of day: morning, afternoon, evening or any."},
			&cli.IntFlag{Name: "days", Value: meeting.DefaultWindowDays, Usage: "Number of days to search."},
			&cli.StringFlag{Name: "from", Usage: "First day to search (YYYY-MM-DD). Defaults to tomorrow."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			pref, err := availability.ParsePreference(c.String("window"))
			if err != nil {
				return err
			}

			gClient, err := newGoogleClient(c.Context, logger, cfg)
			if err != nil {
				return err
			}
			scheduler := meeting.NewScheduler(logger, gClient, gClient, nil, cfg.TimeZone)

			window, err := searchWindow(scheduler, c.String("from"), c.Int("days"))
			if err != nil {
				return err
			}

			slots, err := scheduler.FindSlots(c.Context, meeting.SlotQuery{
				Attendee:   c.String("attendee"),
				Duration:   c.Int("duration"),
				Preference: pref,
				Window:     window,
			})
			if errors.Is(err, meeting.ErrNoSlots) {
				fmt.Println("No availability in range.")
				return nil
			}
			if err != nil {
				return err
			}
			printSlots(slots, cfg.TimeZone)
			return nil
		},
	}
}

func bookCommand() *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Book a meeting from a plain language request.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "attendee", Required: true, Usage: "Attendee email address."},
			&cli.StringFlag{Name: "request", Required: true, Usage: `What to book, e.g. "30 minute coffee chat next week, mornings".`},
			&cli.IntFlag{Name: "duration", Usage: "Override the parsed meeting length in minutes."},
			&cli.IntFlag{Name: "pick", Usage: "Slot number to book (1-3). Prompts when not set."},
			&cli.StringFlag{Name: "tone", Value: string(models.ToneFriendly), Usage: "Invitation tone: friendly or formal."},
			&cli.StringFlag{Name: "message", Usage: "Invitation text to use instead of a drafted one."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Show the meeting without creating it."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}
			tone := models.Tone(c.String("tone"))
			if tone != models.ToneFriendly && tone != models.ToneFormal {
				return fmt.Errorf("unknown tone '%s' (want friendly or formal)", tone)
			}

			ext, closeExt, err := newExtractor(c.Context, logger, cfg)
			if err != nil {
				return err
			}
			defer closeExt()

			gClient, err := newGoogleClient(c.Context, logger, cfg)
			if err != nil {
				return err
			}
			scheduler := meeting.NewScheduler(logger, gClient, gClient, ext, cfg.TimeZone)

			details, err := ext.ParseMeeting(c.Context, c.String("request"), time.Now().In(cfg.TimeZone))
			if err != nil {
				return fmt.Errorf("failed to understand the request: %w", err)
			}
			if c.IsSet("duration") {
				details.Duration = c.Int("duration")
			}
			pref, err := availability.ParsePreference(details.TimeWindow())
			if err != nil {
				return err
			}
			logger.Info("Parsed meeting request", "title", details.Title, "duration", details.Duration, "window", pref)

			slots, err := scheduler.FindSlots(c.Context, meeting.SlotQuery{
				Attendee:   c.String("attendee"),
				Duration:   details.Duration,
				Preference: pref,
				Window:     scheduler.WindowFor(details),
			})
			if errors.Is(err, meeting.ErrNoSlots) {
				fmt.Println("No availability in range.")
				return nil
			}
			if err != nil {
				return err
			}
			printSlots(slots, cfg.TimeZone)

			reader := bufio.NewReader(os.Stdin)
			choice := c.Int("pick")
			if !c.IsSet("pick") {
				choice, err = strconv.Atoi(prompt(reader, fmt.Sprintf("Pick a slot (1-%d): ", len(slots))))
				if err != nil {
					return fmt.Errorf("invalid slot number: %w", err)
				}
			}
			if choice < 1 || choice > len(slots) {
				return fmt.Errorf("slot %d does not exist, pick 1-%d", choice, len(slots))
			}
			slot := slots[choice-1]

			message := c.String("message")
			if message == "" {
				message, err = scheduler.DraftInvitation(c.Context, *details, slot, c.String("attendee"), tone)
				if err != nil {
					logger.Warn("Could not draft an invitation, using the request description", "error", err)
				}
			}
			if message != "" {
				fmt.Printf("\nInvitation:\n%s\n\n", message)
			}

			if c.Bool("dry-run") {
				logger.Info("[DRY RUN] Would book meeting", "title", details.Title, "startTime", slot.Start, "attendee", c.String("attendee"))
				return nil
			}

			eventID, err := scheduler.Book(c.Context, c.String("attendee"), slot, *details, message)
			if err != nil {
				return err
			}
			logger.Info("Meeting booked.", "eventID", eventID, "startTime", slot.Start)
			return nil
		},
	}
}

// searchWindow builds the slot search window from the --from and --days flags.
func searchWindow(s *meeting.Scheduler, from string, days int) (availability.Window, error) {
	if days < 1 {
		return availability.Window{}, fmt.Errorf("--days must be at least 1")
	}
	w := s.DefaultWindow()
	start := w.Start
	if from != "" {
		day, err := time.ParseInLocation(time.DateOnly, from, s.Location())
		if err != nil {
			return availability.Window{}, fmt.Errorf("invalid --from date '%s': %w", from, err)
		}
		start = time.Date(day.Year(), day.Month(), day.Day(), availability.BusinessStartHour, 0, 0, 0, day.Location())
	}
	end := time.Date(start.Year(), start.Month(), start.Day()+days, availability.BusinessEndHour, 0, 0, 0, start.Location())
	return availability.Window{Start: start, End: end}, nil
}

func printSlots(slots []availability.Slot, loc *time.Location) {
	for i, slot := range slots {
		start, end := slot.Start.In(loc), slot.End.In(loc)
		fmt.Printf("%d. %s  %s - %s\n", i+1, start.Format("Mon Jan 2"), start.Format("3:04 PM"), end.Format("3:04 PM"))
	}
}
