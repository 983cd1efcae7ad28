// Command gnssdemo is the CLI edge around the decode/solver core:
// feed a receiver stream (serial port or a captured file) through one of
// the protocol decoders and print the ephemerides/observation batches or
// a point-positioning solution as they arrive. The core itself stays
// transport-agnostic (spec.md §1 Non-goals); this command is the only
// place serial I/O and command-line flag parsing are wired in, grounded
// on de-bkg-gognss/cmd/rnxgo's urfave/cli/v2 command surface and
// bramburn-gnssgo/pkg/gnssgo/stream's go.bug.st/serial usage.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.bug.st/serial"

	"github.com/skybeacon/gnssgo/internal/telemetry"
	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/decode/rtcm3"
	"github.com/skybeacon/gnssgo/pkg/decode/ubx"
	"github.com/skybeacon/gnssgo/pkg/navstore"
	"github.com/skybeacon/gnssgo/pkg/obs"
	"github.com/skybeacon/gnssgo/pkg/solver"
)

func main() {
	app := &cli.App{
		Name:      "gnssdemo",
		Usage:     "decode a GNSS receiver stream and print ephemerides, observation batches and point-positioning fixes",
		Version:   "v0.1.0",
		Compiled:  time.Now(),
		HelpName:  "gnssdemo",
		ArgsUsage: " ",
		Commands: []*cli.Command{
			{
				Name:  "decode",
				Usage: "feed a byte stream through one protocol decoder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proto", Value: "rtcm3", Usage: "rtcm3 or ubx"},
					&cli.StringFlag{Name: "port", Usage: "serial port path, e.g. /dev/ttyUSB0 (reads stdin if empty)"},
					&cli.IntFlag{Name: "baud", Value: 115200},
					&cli.StringFlag{Name: "opt", Usage: "decoder option string, e.g. \"-EPHALL -STA=0\""},
					&cli.BoolFlag{Name: "solve", Usage: "also run the point-positioning solver once ephemeris + observations are available"},
				},
				Action: runDecode,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDecode(c *cli.Context) error {
	runID := uuid.New()
	log := telemetry.New(os.Stderr, logrus.DebugLevel, logrus.Fields{"run": runID.String()})

	var r io.Reader = os.Stdin
	if port := c.String("port"); port != "" {
		mode := &serial.Mode{BaudRate: c.Int("baud"), DataBits: 8, StopBits: serial.OneStopBit, Parity: serial.NoParity}
		s, err := serial.Open(port, mode)
		if err != nil {
			return fmt.Errorf("open serial port %s: %w", port, err)
		}
		defer s.Close()
		r = s
	}

	store := navstore.New()
	opt := c.String("opt")
	solve := c.Bool("solve")
	sopt := solver.DefaultOptions()

	var feed func() decode.Status
	var batch func() []obs.Data
	switch c.String("proto") {
	case "ubx":
		d := ubx.New(store, opt)
		feed = func() decode.Status { return d.FeedReader(r) }
		batch = func() []obs.Data { return d.Batch.Data[:d.Batch.N] }
	default:
		d := rtcm3.New(store, opt)
		d.Log = log
		feed = func() decode.Status { return d.FeedReader(r) }
		batch = func() []obs.Data { return d.Batch.Data[:d.Batch.N] }
	}

	for {
		st := feed()
		switch st {
		case decode.StatusEOF:
			return nil
		case decode.StatusError:
			log.Warnf("decode: frame rejected")
		case decode.StatusEph:
			log.Debugf("decode: ephemeris ready")
		case decode.StatusSta:
			log.Debugf("decode: station parameters ready")
		case decode.StatusObs:
			log.Debugf("decode: observation batch ready, n=%d", len(batch()))
			if solve {
				sol, _, err := solver.PntPos(store, batch(), sopt)
				if err != nil {
					log.Warnf("pntpos: %v", err)
					continue
				}
				fmt.Printf("sol: ecef=%.3f,%.3f,%.3f ns=%d quality=%v\n",
					sol.Rr[0], sol.Rr[1], sol.Rr[2], sol.Ns, sol.Stat)
			}
		}
	}
}
