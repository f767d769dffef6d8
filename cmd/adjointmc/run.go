package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukaszgryglicki/adjointmc/internal/app"
)

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an adjoint simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("PROFILE") != "" {
				f, err := os.Create("cpu.out")
				if err != nil {
					return err
				}
				if err := pprof.StartCPUProfile(f); err != nil {
					_ = f.Close()
					return err
				}
				defer func() {
					pprof.StopCPUProfile()
					_ = f.Close()
				}()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if addr := c.cfg.Metrics.Addr; addr != "" {
				srv := serveMetrics(addr, c.log)
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}

			sum, err := app.Run(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), sum)
		},
	}
	f := cmd.Flags()
	f.Int("events", 0, "adjoint events per primary type")
	f.Int("workers", 0, "worker threads, 0 runs sequentially")
	f.Int64("seed", 0, "random seed")
	f.Bool("save", false, "save the run to the database")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.String("spectra-out", "", "write binned spectra to this raw file")
	_ = c.v.BindPFlag("run.events", f.Lookup("events"))
	_ = c.v.BindPFlag("run.workers", f.Lookup("workers"))
	_ = c.v.BindPFlag("run.seed", f.Lookup("seed"))
	_ = c.v.BindPFlag("output.save", f.Lookup("save"))
	_ = c.v.BindPFlag("metrics.addr", f.Lookup("metrics-addr"))
	_ = c.v.BindPFlag("tally.raw_out", f.Lookup("spectra-out"))
	return cmd
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func printSummary(w io.Writer, sum *app.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "events per type\t%d\n", sum.EventsPerType)
	fmt.Fprintf(tw, "records\t%d\n", len(sum.Records))
	fmt.Fprintf(tw, "elapsed\t%s\n", sum.Duration.Round(time.Millisecond))
	if sum.RunID != "" {
		fmt.Fprintf(tw, "run id\t%s\n", sum.RunID)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PARTICLE\tWEIGHT\tWEIGHT/EVENT\tBINNED\tREL.ERR")
	names := make([]string, 0, len(sum.WeightByParticle))
	for n := range sum.WeightByParticle {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w := sum.WeightByParticle[n]
		per := 0.0
		if sum.EventsPerType > 0 {
			per = w / float64(sum.EventsPerType)
		}
		var binned, rel float64
		if sp, ok := sum.Spectra.Spectrum(n); ok {
			binned, rel = sp.Total()
		}
		fmt.Fprintf(tw, "%s\t%.6g\t%.6g\t%.6g\t%.3f\n", n, w, per, binned, rel)
	}
	return tw.Flush()
}
