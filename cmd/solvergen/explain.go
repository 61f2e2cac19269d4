package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wbrown/janus-solvergen/datalog/planner"
)

func newExplainCmd(a *app) *cobra.Command {
	var (
		flags   compileFlags
		stratum int
	)

	cmd := &cobra.Command{
		Use:   "explain FILE",
		Short: "Show the strata, equations and views of a rule file",
		Long: `Explain compiles a rule file and prints the plan as markdown tables:
the predicate ordering, then for each stratum its rules, equations and
views, then the predicates that must be persisted and why.

Use --stratum to show a single stratum.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExplain(cmd.OutOrStdout(), args[0], flags, stratum)
		},
	}
	cmd.Flags().StringSliceVarP(&flags.outputs, "output", "o", nil, "Output predicate (repeatable, overrides compile.outputs)")
	cmd.Flags().BoolVar(&flags.accumulate, "accumulate", false, "Report every invalid rule instead of stopping at the first")
	cmd.Flags().IntVarP(&stratum, "stratum", "s", -1, "Only show this stratum")
	return cmd
}

func (a *app) runExplain(w io.Writer, file string, flags compileFlags, stratum int) error {
	opts, _, err := a.options(flags)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	opts.Collector = a.collector()
	plan, err := planner.NewCompiler(opts).Compile(file, string(data))
	if err != nil {
		return a.report(file, err)
	}

	tf := planner.NewTableFormatter()
	if stratum < 0 {
		_, err = io.WriteString(w, tf.FormatPlan(plan))
		return err
	}

	if stratum >= len(plan.Strata) {
		return fmt.Errorf("stratum %d out of range (plan has %d)", stratum, len(plan.Strata))
	}
	s := plan.Strata[stratum]

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Stratum %d\n\n", s.Index)
	sb.WriteString(tf.FormatRules(s))
	sb.WriteString("\n")
	sb.WriteString(tf.FormatEquations(s.Equations))
	if len(s.Views.Order) > 0 {
		sb.WriteString("\n")
		sb.WriteString(tf.FormatViews(s.Views))
	}
	_, err = io.WriteString(w, sb.String())
	return err
}
