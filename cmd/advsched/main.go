// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Command advsched runs one adversarial-packet-scheduling simulation
// from a YAML config file, in the shape of ndn-dpdk's cmd/ndndpdk-godemo
// urfave/cli/v2 commands.
package main

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heistp/advsched/internal/app"
	"github.com/heistp/advsched/internal/config"
	"github.com/heistp/advsched/internal/obslog"
	"github.com/heistp/advsched/internal/packet"
	"github.com/heistp/advsched/internal/queue"
	"github.com/heistp/advsched/internal/server"
	"github.com/heistp/advsched/internal/sim"
	"github.com/heistp/advsched/internal/simerr"
	"github.com/heistp/advsched/internal/traffic"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var logger = obslog.New("cli")

func main() {
	cliApp := &cli.App{
		Name:  "advsched",
		Usage: "run an adversarial packet-scheduling simulation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Required: true, Usage: "path to the YAML configuration `FILE`"},
			&cli.StringFlag{Name: "packets", Usage: "write the per-packet log to `FILE`"},
			&cli.BoolFlag{Name: "dry", Usage: "run only the FCFS/1000ns calibration pass and print its metrics"},
		},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		if ce, ok := err.(cli.ExitCoder); ok {
			fmt.Fprintln(os.Stderr, "error:", ce.Error())
			os.Exit(ce.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return exitFor(err)
	}

	src := rand.NewSource(time.Now().UnixNano())

	if c.Bool("dry") {
		m, err := runPass(cfg, true, src, "")
		if err != nil {
			return exitFor(err)
		}
		printMetrics(m, true)
		return nil
	}

	// Trace-driven innocent traffic needs one calibration pass to
	// discover its true average packet size before the real policy can
	// compute inter-arrival times from a target rate, per spec §6's
	// "Calibration dry-run" paragraph -- unless the config already
	// supplies average_packet_size_bits directly.
	if cfg.InnocentTraffic.Type == "trace" && cfg.InnocentTraffic.AveragePacketSizeBits == nil {
		dryMetrics, err := runPass(cfg, true, src, "")
		if err != nil {
			return exitFor(err)
		}
		logger.Info("calibration pass complete",
			zap.Float64("avg_innocent_packet_size_bits", dryMetrics.AvgInnocentPacketSizeBits))
		avg := dryMetrics.AvgInnocentPacketSizeBits
		cfg.InnocentTraffic.AveragePacketSizeBits = &avg
	}

	packetsPath := c.String("packets")
	if packetsPath != "" {
		packetsPath = strings.ReplaceAll(packetsPath, "{run}", shortID())
	}

	m, err := runPass(cfg, false, src, packetsPath)
	if err != nil {
		return exitFor(err)
	}
	printMetrics(m, false)
	return nil
}

// runPass builds one complete simulation from cfg and runs it to
// completion. dry forces the FCFS policy and the traffic factory's
// dry-run settings (dryRunIATNs for innocent traffic, no attack
// arrivals), per spec §6.
func runPass(cfg *config.Config, dry bool, src rand.Source, packetsPath string) (sim.Metrics, error) {
	policy := cfg.Policy
	if dry {
		policy = "fcfs"
	}
	q, err := queue.New(policy, cfg.QueueOptions())
	if err != nil {
		return sim.Metrics{}, err
	}

	a, err := app.FromConfig(cfg.Application, src)
	if err != nil {
		return sim.Metrics{}, err
	}

	srv, err := server.New(a, q)
	if err != nil {
		return sim.Metrics{}, err
	}

	innocent, err := traffic.FromConfig(cfg.InnocentTraffic, packet.Innocent, dry, 0, src)
	if err != nil {
		return sim.Metrics{}, err
	}

	var attack traffic.Generator
	if cfg.AttackTraffic != nil {
		// A large, fixed offset keeps attack flow IDs out of the range
		// innocent synthetic generators assign, without needing to know
		// how many innocent flows are configured.
		attack, err = traffic.FromConfig(*cfg.AttackTraffic, packet.Attack, dry, 1<<24, src)
		if err != nil {
			return sim.Metrics{}, err
		}
	}

	maxArrivals := uint64(math.MaxUint64)
	if cfg.MaxNumArrivals != nil {
		maxArrivals = *cfg.MaxNumArrivals
	}

	s := sim.New(srv, q, innocent, attack, maxArrivals)

	if packetsPath != "" {
		f, err := os.Create(packetsPath)
		if err != nil {
			return sim.Metrics{}, &simerr.ConfigError{Message: "cannot create packet log: " + err.Error()}
		}
		defer f.Close()
		w := bufio.NewWriter(f)
		defer w.Flush()
		s.OnDepart(func(p packet.Packet) {
			fmt.Fprintln(w, p.LogLine())
		})
	}

	return s.Run()
}

func printMetrics(m sim.Metrics, dry bool) {
	if dry {
		fmt.Printf("calibration pass: %d packets, avg innocent packet size %.2f bits\n",
			m.NumInnocentArrivals, m.AvgInnocentPacketSizeBits)
		return
	}
	fmt.Printf("num_arrivals=%d num_departures=%d\n", m.NumArrivals, m.NumDepartures)
	fmt.Printf("service_rate_gbps=%.4f\n", m.ServiceRateGbps)
	fmt.Printf("input_rate_innocent_bps=%.2f\n", m.InputRateInnocentBps)
	fmt.Printf("steady_state_goodput_bps=%.2f\n", m.SteadyStateGoodputBps)
	fmt.Printf("displacement_factor=%.6f\n", m.DisplacementFactor)
}

func shortID() string {
	return uuid.New().String()[:8]
}

// exitFor maps the config/calibration/trace-parse errors spec §7 assigns
// non-zero exit status to a cli.ExitCoder with a human-readable message;
// any other error (a programmer-error type) is returned unwrapped, which
// urfave/cli also reports non-zero.
func exitFor(err error) error {
	switch err.(type) {
	case *simerr.ConfigError, *simerr.CalibrationError, *simerr.TraceParseError:
		return cli.Exit(err.Error(), 1)
	default:
		return err
	}
}
