package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jyasuu/jcheck/pkg/checker"
	"github.com/jyasuu/jcheck/pkg/report"
	"github.com/jyasuu/jcheck/pkg/rule"
)

const cmdExamples = `  # Validate rules.json in the current directory:
  jcheck

  # Validate a specific rules file (JSON or YAML):
  jcheck ./rules.yaml

  # Re-run whenever a checked document changes:
  jcheck --watch

  # Machine-readable output:
  jcheck --output json

  # Run only named rules, on 4 workers:
  jcheck --rule db-host --rule user-ages --jobs 4

  # Run only rules selected by a CEL expression:
  jcheck --match 'check in ["equals", "jsonb_contains"]'`

type CheckArgs struct {
	*RootArgs

	RulesFile    string
	Output       string
	Match        string
	OTLPEndpoint string
	Rules        []string
	Jobs         int
	Watch        bool
	AllowEmpty   bool
}

func NewCheckArgs(rootArgs *RootArgs) *CheckArgs {
	return &CheckArgs{
		RootArgs: rootArgs,
	}
}

func (ca *CheckArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ca.Output, "output", "o", string(report.FormatText),
		fmt.Sprintf("Output format, one of: %s", report.AllFormats))
	cmd.Flags().BoolVarP(&ca.Watch, "watch", "w", false, "Watch checked documents and re-run on change")
	cmd.Flags().IntVarP(&ca.Jobs, "jobs", "j", 1, "Number of rules to evaluate concurrently")
	cmd.Flags().StringArrayVarP(&ca.Rules, "rule", "r", nil, "Run only the named rule (repeatable)")
	cmd.Flags().StringVarP(&ca.Match, "match", "m", "",
		"Run only rules matching a CEL expression over {name, file, path, check}")
	cmd.Flags().BoolVar(&ca.AllowEmpty, "allow-empty", false, "Pass rules whose path query selects no values")
	cmd.Flags().StringVar(&ca.OTLPEndpoint, "otlp-endpoint", "",
		"Export traces to an OTLP gRPC endpoint, e.g. localhost:4317")

	err := cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(report.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("rule", ruleNameCompletion(ca))
	if err != nil {
		panic(err)
	}
}

func NewCheckCmd(ca *CheckArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "check [rules-file]",
		Short:   "Default command, evaluates a rules file and reports results",
		Example: cmdExamples,
		Args:    cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}

			return []cobra.Completion{"json", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ca.RulesFile = rule.DefaultPath
			if len(args) > 0 {
				ca.RulesFile = args[0]
			}

			return runCheck(cmd, ca)
		},
	}
	ca.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runCheck(cmd *cobra.Command, ca *CheckArgs) error {
	ctx := cmd.Context()

	if ca.OTLPEndpoint != "" {
		shutdown, err := setupTracing(ctx, ca.OTLPEndpoint)
		if err != nil {
			return err
		}

		defer shutdown()
	}

	loader, err := rule.NewLoaderFromFile(ca.RulesFile)
	if err != nil {
		return err
	}

	rs, err := loader.Load()
	if err != nil {
		return err
	}

	opts, err := runnerOpts(ca, rs)
	if err != nil {
		return err
	}

	runner, err := checker.NewRunner(rs, opts...)
	if err != nil {
		return err
	}

	defer runner.Close()

	renderer, err := newRenderer(ca.Output)
	if err != nil {
		return err
	}

	results := runner.RunContext(ctx)

	err = renderer.Render(cmd.OutOrStdout(), results)
	if err != nil {
		return err
	}

	if ca.Watch {
		return watchLoop(ctx, cmd, runner, renderer)
	}

	return report.Verdict(results)
}

func runnerOpts(ca *CheckArgs, rs *rule.RuleSet) ([]checker.RunnerOpt, error) {
	opts := []checker.RunnerOpt{
		checker.WithJobs(ca.Jobs),
		checker.WithWatch(ca.Watch),
	}

	if ca.AllowEmpty {
		opts = append(opts, checker.WithZeroMatchPolicy(checker.ZeroMatchPass))
	}

	if len(ca.Rules) > 0 {
		err := checkRuleNames(ca.Rules, rs.Names())
		if err != nil {
			return nil, err
		}

		opts = append(opts, checker.WithRuleFilter(func(r *rule.Rule) bool {
			return slices.Contains(ca.Rules, r.Name)
		}))
	}

	if ca.Match != "" {
		sel, err := rule.NewSelector(ca.Match)
		if err != nil {
			return nil, err
		}

		opts = append(opts, checker.WithRuleFilter(sel.Matches))
	}

	return opts, nil
}

// checkRuleNames rejects unknown --rule values up front, suggesting the
// closest defined name.
func checkRuleNames(wanted, defined []string) error {
	for _, name := range wanted {
		if slices.Contains(defined, name) {
			continue
		}

		matches := fuzzy.Find(name, defined)
		if len(matches) > 0 {
			return fmt.Errorf("unknown rule %q, did you mean %q?", name, matches[0].Str)
		}

		return fmt.Errorf("unknown rule %q", name)
	}

	return nil
}

func newRenderer(format string) (report.Renderer, error) {
	opts := []report.Opt{}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = append(opts, report.WithColor(true))

		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err == nil && width > 0 {
			opts = append(opts, report.WithWidth(width))
		}
	}

	return report.NewRenderer(format, opts...)
}

// watchLoop renders a fresh report for every change event until the context
// is canceled.
func watchLoop(ctx context.Context, cmd *cobra.Command, runner *checker.Runner, renderer report.Renderer) error {
	events := make(chan checker.Event, 1)
	runner.Subscribe(events)

	go runner.RunOnEvent()

	for {
		select {
		case evt := <-events:
			if evt.Err != nil {
				return fmt.Errorf("watch documents: %w", evt.Err)
			}

			err := renderer.Render(cmd.OutOrStdout(), evt.Results)
			if err != nil {
				return err
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// ruleNameCompletion completes --rule values from the rules file currently
// pointed at, best-effort.
func ruleNameCompletion(ca *CheckArgs) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		path := ca.RulesFile
		if path == "" {
			path = rule.DefaultPath
		}

		loader, err := rule.NewLoaderFromFile(path)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		rs, err := loader.Load()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		return rs.Names(), cobra.ShellCompDirectiveNoFileComp
	}
}
