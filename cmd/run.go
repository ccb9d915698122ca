package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/p4calc/internal/config"
	"firestige.xyz/p4calc/internal/log"
	"firestige.xyz/p4calc/internal/metrics"
	"firestige.xyz/p4calc/internal/session"
	"firestige.xyz/p4calc/internal/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive test session",
	Long: `Read expressions of the form <number><operator><number> from stdin, one per
line, send each to the device and compare its answer with the true result.

Operators: + - & | ^ < > <= >= == !=. For & and | the device only supports
the constant 0xF as second operand, so it is forced to 15.
Type "quit" to send the quit frame and stop; end of input stops as well.

The exit status is 0 when every round passed and 1 otherwise.

Examples:
  p4calc run -i veth0
  p4calc run --transport loopback
  echo "5+3" | p4calc run --dump=false --pcap-out /tmp/p4calc.pcap`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSession(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().StringP("interface", "i", "eth0", "network interface facing the device")
	runCmd.Flags().String("dst-mac", "62:9b:0c:db:ac:20", "destination MAC address of the device")
	runCmd.Flags().Duration("timeout", time.Second, "how long to wait for each reply")
	runCmd.Flags().String("transport", transport.NameAfpacket, "transport implementation (afpacket, loopback)")
	runCmd.Flags().String("pcap-out", "", "record every frame to this pcap file")
	runCmd.Flags().Bool("dump", true, "print a layer dump of every frame")
	runCmd.Flags().Bool("metrics", false, "serve Prometheus metrics while the session runs")
}

func runSession(ctx context.Context, cfg *config.GlobalConfig, in io.Reader, out io.Writer) error {
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	tr, err := transport.Open(cfg.Transport, cfg.Link)
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	defer tr.Close()

	dst, err := cfg.Link.HardwareAddr()
	if err != nil {
		return err
	}

	c, err := session.New(session.Options{
		Transport: tr,
		In:        in,
		Out:       out,
		DstMAC:    dst,
		EtherType: layers.EthernetType(cfg.Link.EtherType),
		Trailer:   []byte(cfg.Link.Trailer),
		Timeout:   cfg.Session.Timeout,
		Prompt:    cfg.Session.Prompt,
		Dump:      cfg.Session.Dump,
		Logger:    log.GetLogger(),
	})
	if err != nil {
		return err
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"transport": cfg.Transport.Type,
		"interface": cfg.Transport.Interface,
		"dst_mac":   dst.String(),
		"timeout":   cfg.Session.Timeout.String(),
	}).Debug("session starting")

	st, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("session aborted: %w", err)
	}
	if !st.OverallPass {
		return ErrSessionFailed
	}
	return nil
}
