// Command poll follows a workshop session from the terminal and logs every
// change the facilitator dashboard would render.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/logging"
	"github.com/soaringjerry/Huddle/internal/models"
	"github.com/soaringjerry/Huddle/internal/poller"
)

func main() {
	base := flag.String("url", "http://localhost:8080", "Huddle server base URL")
	workshop := flag.String("workshop", "", "workshop id to follow")
	interval := flag.Duration("interval", 0, "poll interval (default: server advertised, else 2s)")
	until := flag.String("until", "", "stop once the session reaches this status")
	level := flag.String("log-level", "info", "log level")
	format := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	log, err := logging.New(*level, *format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poll: %v\n", err)
		os.Exit(2)
	}
	var stopAt models.Status
	if *until != "" {
		if stopAt, err = models.ParseStatus(*until); err != nil {
			log.WithError(err).Fatal("invalid -until")
		}
	}

	p, err := poller.New(poller.Config{
		BaseURL:    *base,
		WorkshopID: *workshop,
		Interval:   *interval,
		Log:        log,
		OnChange: func(s *models.Session) {
			entry := log.WithFields(logrus.Fields{
				"workshop_id":  s.ID,
				"status":       s.Status,
				"version":      s.Version,
				"participants": len(s.Participants),
				"responses":    len(s.Responses),
			})
			if s.Analysis != nil {
				entry = entry.WithFields(logrus.Fields{"analysis": s.Analysis.Source, "average_gap": s.Analysis.AverageGap})
			}
			entry.Info("session changed")
		},
		OnStatus: func(from, to models.Status) {
			log.WithFields(logrus.Fields{"from": from, "to": to}).Info("stage changed")
		},
		StopWhen: func(s *models.Session) bool {
			return stopAt != "" && s.Status == stopAt
		},
	})
	if err != nil {
		log.WithError(err).Fatal("poller")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	start := time.Now()
	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("poll stopped")
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("done")
}
