// Command quoteserver runs the TCP control acceptor, the synthetic
// quote generator, and the UDP broadcast path described in spec.md.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quotestream/internal/conf"
	"quotestream/internal/flog"
	"quotestream/internal/server"
	"quotestream/internal/tickerfile"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "quoteserver",
		Short: "Serve synthetic stock quotes over TCP control + UDP broadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "quoteserver.yaml", "path to server config file")

	if err := root.Execute(); err != nil {
		flog.Fatalf("quoteserver: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := conf.LoadServerFromFile(configPath)
	if err != nil {
		return err
	}
	flog.SetLevel(int(flog.ParseLevel(cfg.Log.Level)))

	universe, err := tickerfile.Load(cfg.TickerFile)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return server.Serve(ctx, server.Config{
		TCPAddr:     cfg.TCPAddr,
		UDPAddr:     cfg.UDPAddr,
		Tickers:     universe,
		BusCapacity: len(universe),
	})
}
