// Command as-puc8a assembles PUC8a assembly text into an encoded
// program and can run that program under the instruction-level
// simulator, interactively or headlessly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wcaarls/puc8a/pkg/assemble"
	"github.com/wcaarls/puc8a/pkg/program"
	"github.com/wcaarls/puc8a/pkg/sim"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "as-puc8a",
		Short: "PUC8a assembler and instruction-level simulator",
	}

	var output string
	assembleCmd := &cobra.Command{
		Use:   "assemble <file.s>",
		Short: "Assemble a PUC8a source file into an encoded program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("as-puc8a: %w", err)
			}
			stream, err := assemble.ParseText(string(src))
			if err != nil {
				return fmt.Errorf("as-puc8a: %w", err)
			}
			prog, _, err := assemble.Assemble(stream)
			if err != nil {
				return fmt.Errorf("as-puc8a: %w", err)
			}
			if output == "" {
				output = args[0] + ".bin"
			}
			if err := program.Save(output, prog); err != nil {
				return fmt.Errorf("as-puc8a: %w", err)
			}
			fmt.Printf("assembled %d words to %s\n", len(prog.Code), output)
			return nil
		},
	}
	assembleCmd.Flags().StringVarP(&output, "output", "o", "", "output program file (default <input>.bin)")

	var interactive bool
	var steps int
	runCmd := &cobra.Command{
		Use:   "run <prog.bin>",
		Short: "Run an encoded program under the simulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := program.Load(args[0])
			if err != nil {
				return fmt.Errorf("as-puc8a: %w", err)
			}
			if interactive {
				repl := sim.NewREPL(prog, os.Stdin, os.Stdin, os.Stdout)
				return repl.Run()
			}
			final, err := sim.Run(prog, steps, sim.NewIO(os.Stdin, os.Stdout))
			if err != nil {
				return fmt.Errorf("as-puc8a: %w", err)
			}
			fmt.Println(final.String())
			return nil
		},
	}
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "drop into the interactive step/continue REPL")
	runCmd.Flags().IntVar(&steps, "steps", 1000, "instruction budget for headless runs")

	rootCmd.AddCommand(assembleCmd, runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
