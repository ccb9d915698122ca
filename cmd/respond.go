package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/p4calc/internal/config"
	"firestige.xyz/p4calc/internal/log"
	"firestige.xyz/p4calc/internal/metrics"
	"firestige.xyz/p4calc/internal/responder"
	"firestige.xyz/p4calc/internal/transport"
)

var respondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Answer P4calc requests in software",
	Long: `Act as the P4calc device: read requests on an interface, compute the result,
swap the MAC addresses and send the frame back. Quit frames are only logged.

A Lua fault script may rewrite results. It must define
  function compute(op, a, b, result)
returning nil to keep result, a number to replace it, or false to drop the request.

Examples:
  p4calc respond -i veth1
  p4calc respond -i veth1 --script faults.lua --delay 10ms`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runRespond(ctx, cfg)
	},
}

func init() {
	respondCmd.Flags().StringP("interface", "i", "eth0", "network interface to serve on")
	respondCmd.Flags().String("transport", transport.NameAfpacket, "transport implementation")
	respondCmd.Flags().String("pcap-out", "", "record every frame to this pcap file")
	respondCmd.Flags().String("script", "", "Lua fault-injection script")
	respondCmd.Flags().Duration("delay", 0, "delay added before every reply")
	respondCmd.Flags().Bool("metrics", false, "serve Prometheus metrics while responding")
}

func runRespond(ctx context.Context, cfg *config.GlobalConfig) error {
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	opts := responder.Options{
		EtherType: layers.EthernetType(cfg.Link.EtherType),
		Delay:     cfg.Responder.Delay,
		Logger:    log.GetLogger(),
	}
	if cfg.Responder.Script != "" {
		script, err := responder.LoadScript(cfg.Responder.Script)
		if err != nil {
			return err
		}
		defer script.Close()
		opts.Script = script
	}

	conn, err := transport.OpenConn(cfg.Transport, cfg.Link)
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	defer conn.Close()
	opts.Conn = conn

	return responder.New(opts).Serve(ctx)
}
