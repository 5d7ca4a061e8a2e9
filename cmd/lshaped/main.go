// Command lshaped runs one configured decomposition-engine variant over a
// small built-in two-stage problem and prints the terminal status and
// history vectors (spec.md §6.2, §8 scenario 1 "simple-lp").
package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
	"github.com/lshaped-go/lshaped/internal/lpsolver/highs"
	"github.com/lshaped-go/lshaped/lshaped"
	"github.com/lshaped-go/lshaped/subproblem"
)

var variants = map[string]lshaped.Kind{
	"ls":  lshaped.LS,
	"rd":  lshaped.RD,
	"tr":  lshaped.TR,
	"lv":  lshaped.LV,
	"dls": lshaped.DLS,
	"drd": lshaped.DRD,
	"dtr": lshaped.DTR,
	"dlv": lshaped.DLV,
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lshaped",
		Short: "drive the L-shaped decomposition engine over a toy problem",
	}
	root.AddCommand(solveCmd())
	return root
}

func solveCmd() *cobra.Command {
	var (
		variant   string
		bundle    int
		workers   int
		linearize bool
		checkfeas bool
		logProg   bool
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "solve the simple-lp fixture (spec.md §8 scenario 1) with one engine variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := variants[variant]
			if !ok {
				return fmt.Errorf("unknown variant %q (want one of ls, rd, tr, lv, dls, drd, dtr, dlv)", variant)
			}

			opts := []lshaped.Option{
				lshaped.WithBundle(bundle),
				lshaped.WithWorkers(workers),
				lshaped.WithLinearize(linearize),
				lshaped.WithCheckfeas(checkfeas),
			}
			if logProg {
				opts = append(opts,
					lshaped.WithLog(true),
					lshaped.WithLogger(lshaped.SlogLogger{L: slog.Default()}),
				)
			}

			solver, err := lshaped.New(kind, highs.New, opts...)
			if err != nil {
				return err
			}

			result, err := solver.Solve(simpleLP())
			if err != nil {
				return err
			}

			fmt.Printf("status: %s\n", result.Status)
			fmt.Printf("x: %v\n", result.X)
			fmt.Printf("theta: %v\n", result.Thetas)
			fmt.Printf("gap: %g\n", result.Gap)
			fmt.Printf("Q history: %v\n", result.QHistory)
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "ls", "engine variant: ls, rd, tr, lv, dls, drd, dtr, dlv")
	cmd.Flags().IntVar(&bundle, "bundle", 1, "optimality-cut bundle size B")
	cmd.Flags().IntVar(&workers, "workers", 0, "distributed worker count (0 = auto)")
	cmd.Flags().BoolVar(&linearize, "linearize", false, "use the 1-norm level-set projection instead of the QP 2-norm")
	cmd.Flags().BoolVar(&checkfeas, "checkfeas", false, "generate feasibility cuts instead of terminating on an infeasible subproblem")
	cmd.Flags().BoolVar(&logProg, "log", false, "print per-iteration progress")

	return cmd
}

// simpleLP builds spec.md §8 scenario 1: two first-stage newsvendor-style
// order quantities x1, x2 (cost 2 and 3 per unit) and two equiprobable demand
// scenarios, each penalizing unmet demand y at 10 per unit:
//
//	minimize   2 x1 + 3 x2 + E[10 y]
//	subject to y >= d - x1 - x2, y >= 0, 0 <= x1, x2 <= 50
func simpleLP() lshaped.Problem {
	demands := []float64{5, 15}

	subs := make([]*subproblem.Subproblem, len(demands))
	for i, d := range demands {
		model := highs.New(lpsolver.Minimize)
		model.AddVariable(10, 0, math.Inf(1))
		if _, err := model.AddRow([]int{0}, []float64{1}, d, math.Inf(1)); err != nil {
			panic(err)
		}
		subs[i] = subproblem.New(i, 0.5, []subproblem.MasterTerm{
			{Row: 0, Col: 0, Coeff: 1},
			{Row: 0, Col: 1, Coeff: 1},
		}, 2, model, []subproblem.RowBase{{Row: 0, Lower: d, Upper: math.Inf(1)}})
	}

	return lshaped.Problem{
		Cost:        []float64{2, 3},
		Lower:       []float64{0, 0},
		Upper:       []float64{50, 50},
		Subproblems: subs,
	}
}
