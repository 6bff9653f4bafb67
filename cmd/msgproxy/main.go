package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Craftserve/msgproxy/config"
	"github.com/Craftserve/msgproxy/placeholders"
	"github.com/Craftserve/msgproxy/rules"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:          "msgproxy",
		Short:        "Minecraft proxy rewriting the text players see",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newTestCmd())
	root.AddCommand(newReloadCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, msg := range verr.Problems {
				fmt.Fprintln(os.Stderr, msg)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// ruleFlags are shared by every command that loads rules.
type ruleFlags struct {
	rulesPath    string
	editsDir     string
	matchTimeout time.Duration
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.rulesPath, "rules", "rules.yml", "Rules file")
	cmd.Flags().StringVar(&f.editsDir, "edits", "edits", "Directory with additional rule files")
	cmd.Flags().DurationVar(&f.matchTimeout, "match-timeout", rules.DefaultMatchTimeout, "Regex match timeout")
}

func (f *ruleFlags) loader(static *placeholders.Static) *config.Loader {
	return &config.Loader{
		RulesFile:    f.rulesPath,
		EditsDir:     f.editsDir,
		MatchTimeout: f.matchTimeout,
		Static:       static,
	}
}

func newValidateCmd() *cobra.Command {
	var rf ruleFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the rule files",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := rf.loader(nil).Load()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "rules ok (%d rules, %d kinds)\n", set.Len(), len(set.Kinds()))
			return err
		},
	}

	rf.register(cmd)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version=%s commit=%s buildDate=%s\n", version, commit, buildDate)
		},
	}
}
