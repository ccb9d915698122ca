package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/p4calc/internal/config"
	"firestige.xyz/p4calc/internal/expr"
	"firestige.xyz/p4calc/pkg/p4calc"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <expression>",
	Short: "Print the frame an expression is sent as",
	Long: `Parse <number><operator><number> and print the P4calc header and the full
Ethernet frame that run would transmit for it. Nothing is sent.

Examples:
  p4calc encode 5+3
  p4calc encode "6 & 3"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEncode(strings.Join(args, " "), cfg.Link, cmd.OutOrStdout())
	},
}

func init() {
	encodeCmd.Flags().String("dst-mac", "62:9b:0c:db:ac:20", "destination MAC address of the device")
}

func runEncode(input string, link config.LinkConfig, out io.Writer) error {
	parsed, warnings, err := expr.Parse(input)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	dst, err := link.HardwareAddr()
	if err != nil {
		return err
	}
	f := p4calc.Encode(parsed)
	data, err := p4calc.Link{
		DstMAC:    dst,
		EtherType: layers.EthernetType(link.EtherType),
		Trailer:   []byte(link.Trailer),
	}.Build(f)
	if err != nil {
		return err
	}

	header, _ := f.MarshalBinary()
	fmt.Fprintf(out, "frame: %s\n", f)
	fmt.Fprintf(out, "header: %s\n", hex.EncodeToString(header))
	fmt.Fprint(out, p4calc.Dump(data))
	return nil
}
