// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"errors"
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/p4calc/internal/config"
	"firestige.xyz/p4calc/internal/log"
	"firestige.xyz/p4calc/pkg/p4calc"
)

// ErrSessionFailed is returned by run when at least one round failed.
var ErrSessionFailed = errors.New("calculator test failed")

var (
	// Global flags
	configFile string
	logLevel   string

	// Effective configuration, loaded before every subcommand
	cfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "p4calc",
	Short: "P4calc - test harness for a P4 calculator device",
	Long: `p4calc sends arithmetic and comparison requests to a device that implements
the P4calc protocol (a 17-byte header directly over Ethernet, EtherType 0x1234)
and checks every answer against a locally evaluated true result.

Commands:
  run      interactive test session against the device
  eval     evaluate an expression locally
  encode   show the frame an expression turns into
  respond  act as the device in software
  config   print the effective configuration`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and P4CALC_* environment when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (trace, debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := log.Init(c.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	p4calc.BindEtherType(layers.EthernetType(c.Link.EtherType))
	cfg = c
	return nil
}
