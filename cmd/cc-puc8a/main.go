// Command cc-puc8a compiles a JSON-encoded lowered function into a PUC8a
// program: instruction selection and frame generation, then assembly,
// and optionally runs the result under the simulator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wcaarls/puc8a/pkg/assemble"
	"github.com/wcaarls/puc8a/pkg/codegen"
	"github.com/wcaarls/puc8a/pkg/ir"
	"github.com/wcaarls/puc8a/pkg/program"
	"github.com/wcaarls/puc8a/pkg/sim"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cc-puc8a",
		Short: "PUC8a code generator: lowered IR in, encoded program out",
	}

	var output string
	var run bool
	var steps int

	compileCmd := &cobra.Command{
		Use:   "compile <ir.json>",
		Short: "Generate code for a JSON-encoded lowered function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cc-puc8a: %w", err)
			}
			fn, err := ir.ParseFunction(data)
			if err != nil {
				return fmt.Errorf("cc-puc8a: %w", err)
			}
			stream, err := codegen.Compile(fn)
			if err != nil {
				return fmt.Errorf("cc-puc8a: %w", err)
			}
			prog, _, err := assemble.Assemble(stream)
			if err != nil {
				return fmt.Errorf("cc-puc8a: %w", err)
			}
			if output == "" {
				output = fn.Name + ".bin"
			}
			if err := program.Save(output, prog); err != nil {
				return fmt.Errorf("cc-puc8a: %w", err)
			}
			fmt.Printf("compiled %s: %d words to %s\n", fn.Name, len(prog.Code), output)

			if run {
				final, err := sim.Run(prog, steps, sim.NewIO(os.Stdin, os.Stdout))
				if err != nil {
					return fmt.Errorf("cc-puc8a: %w", err)
				}
				fmt.Println(final.String())
			}
			return nil
		},
	}
	compileCmd.Flags().StringVarP(&output, "output", "o", "", "output program file (default <function-name>.bin)")
	compileCmd.Flags().BoolVar(&run, "run", false, "run the compiled program under the simulator afterward")
	compileCmd.Flags().IntVar(&steps, "steps", 1000, "instruction budget for --run")

	rootCmd.AddCommand(compileCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
