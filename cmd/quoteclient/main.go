// Command quoteclient subscribes to a quoteserver over the TCP control
// channel and prints the UDP quote stream it receives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quotestream/internal/client"
	"quotestream/internal/conf"
	"quotestream/internal/flog"
	"quotestream/internal/quote"
	"quotestream/internal/tickerfile"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "quoteclient",
		Short: "Subscribe to a quoteserver and print the live quote stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "quoteclient.yaml", "path to client config file")

	if err := root.Execute(); err != nil {
		flog.Fatalf("quoteclient: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := conf.LoadClientFromFile(configPath)
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

	session := client.NewSession(client.Config{
		ServerAddr:      cfg.ServerAddr,
		LocalUDPAddr:    cfg.LocalUDPAddr,
		Tickers:         universe,
		ReconnectPeriod: cfg.ReconnectPeriod,
		PingPeriod:      cfg.PingPeriod,
	}, func(q quote.Quote) {
		fmt.Printf("%s %.2f %d\n", q.Ticker, q.Price, q.Volume)
	})

	return session.Run(ctx)
}
