package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/cadence/internal/demo"
	"github.com/hrygo/cadence/internal/runner"
	"github.com/hrygo/cadence/internal/telemetry"
)

var (
	rootCmd = &cobra.Command{
		Use:   "cadence",
		Short: `A cooperative, frame-driven task scheduling core. Submits sample task trees and drives them to completion on a fixed tick.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		Run: func(_ *cobra.Command, _ []string) {
			tickRate := viper.GetFloat64("tick-rate")
			if tickRate <= 0 {
				tickRate = 1.0 / 60.0
			}
			cascade := viper.GetBool("cascade")
			metricsAddr := viper.GetString("metrics-addr")

			opts := []runner.Option{}
			var exporter *telemetry.Exporter
			if metricsAddr != "" {
				exporter = telemetry.NewExporter(telemetry.DefaultConfig())
				opts = append(opts, runner.WithMetrics(exporter))
			}
			if cascade {
				opts = append(opts, runner.WithCascadeOnDependencyFailure())
			}

			r := runner.New(opts...)
			r.SubmitRange(demo.AllTrees())

			ctx, cancel := context.WithCancel(context.Background())

			c := make(chan os.Signal, 1)
			// Trigger graceful shutdown on SIGINT or SIGTERM.
			signal.Notify(c, terminationSignals...)

			var metricsServer *http.Server
			if exporter != nil {
				mux := http.NewServeMux()
				mux.Handle("/metrics", exporter.Handler())
				metricsServer = &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					slog.Info("cadence: metrics server listening", "addr", metricsAddr)
					if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						slog.Error("cadence: metrics server failed", "error", err)
					}
				}()
			}

			printGreetings(tickRate, metricsAddr)

			go func() {
				<-c
				if metricsServer != nil {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					_ = metricsServer.Shutdown(shutdownCtx)
				}
				cancel()
			}()

			ticker := time.NewTicker(time.Duration(tickRate * float64(time.Second)))
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					fmt.Println(r.Statistics())
					return
				case <-ticker.C:
					r.Tick(tickRate)
					if r.Count() == 0 {
						fmt.Println(r.Statistics())
						cancel()
					}
				}
			}
		},
	}
)

func init() {
	viper.SetDefault("tick-rate", 1.0/60.0)
	viper.SetDefault("cascade", false)
	viper.SetDefault("metrics-addr", "")

	rootCmd.PersistentFlags().Float64("tick-rate", 1.0/60.0, "seconds of simulated time per tick")
	rootCmd.PersistentFlags().Bool("cascade", false, "cancel dependents when a dependency fails or is cancelled")
	rootCmd.PersistentFlags().String("metrics-addr", "", "address to serve Prometheus /metrics on, e.g. :9090 (disabled if empty)")

	if err := viper.BindPFlag("tick-rate", rootCmd.PersistentFlags().Lookup("tick-rate")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("cascade", rootCmd.PersistentFlags().Lookup("cascade")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("metrics-addr", rootCmd.PersistentFlags().Lookup("metrics-addr")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("cadence")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(tickRate float64, metricsAddr string) {
	fmt.Println("Cadence task scheduler starting")
	fmt.Printf("Tick rate: %.4fs\n", tickRate)
	if metricsAddr != "" {
		fmt.Printf("Metrics: http://localhost%s/metrics\n", metricsAddr)
	}
	fmt.Println()
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
