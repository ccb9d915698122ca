package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/p4calc/internal/eval"
	"firestige.xyz/p4calc/internal/expr"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an expression with the restricted evaluator",
	Long: `Evaluate an expression locally, the way the true result of a round is computed.

Only integer literals, + - & | ^, unary - and ~, parentheses and the
comparisons < <= > >= == != (chainable) are accepted.

Examples:
  p4calc eval "5 + 3"
  p4calc eval "1 < 2 < 3"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEval(strings.Join(args, " "), cmd.OutOrStdout())
	},
}

func runEval(input string, out io.Writer) error {
	v, err := eval.Evaluate(expr.Normalize(input))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, v)
	return nil
}
