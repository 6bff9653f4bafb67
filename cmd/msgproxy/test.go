package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Craftserve/msgproxy"
	"github.com/Craftserve/msgproxy/intercept"
	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/placeholders"
	"github.com/Craftserve/msgproxy/rewrite"
	"github.com/Craftserve/msgproxy/rules"
)

func newTestCmd() *cobra.Command {
	var rf ruleFlags
	var kindName, player, locale string
	var protocol int

	cmd := &cobra.Command{
		Use:   "test [flags] <sample text>",
		Short: "Run a sample text through the rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := rules.ParseKind(kindName)
			if err != nil {
				return err
			}
			static := placeholders.NewStatic(nil)
			loader := rf.loader(static)
			set, err := loader.Load()
			if err != nil {
				return err
			}
			loader.Publish()

			engine := rewrite.NewEngine(placeholders.Chain{&placeholders.Builtin{}, static}, rewrite.DefaultResolverTimeout)
			i := intercept.New(rules.NewStore(set), engine)
			res := i.Test(kind, translateAmpersand(args[0]), rewrite.ViewerContext{
				ConnectionID: "test",
				PlayerUUID:   msgproxy.OfflinePlayerUUID(player),
				PlayerName:   player,
				Locale:       locale,
				Protocol:     protocol,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "original: %s\n", res.Original)
			fmt.Fprintf(out, "final:    %s\n", res.Final)
			if res.MatchedRuleID == "" {
				fmt.Fprintln(out, "no rule matched")
			} else {
				fmt.Fprintf(out, "rule:     %s (applied %s)\n", res.MatchedRuleID, strings.Join(res.Applied, ", "))
			}
			for _, fb := range res.Fallbacks {
				fmt.Fprintf(out, "fallback: %s: %v\n", fb.Marker, fb.Err)
			}
			for _, err := range res.MatchErrors {
				fmt.Fprintf(out, "match error: %v\n", err)
			}
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&kindName, "kind", rules.Chat.String(), "Text kind of the sample")
	cmd.Flags().StringVar(&player, "player", "Notch", "Viewer nickname")
	cmd.Flags().StringVar(&locale, "locale", "en_us", "Viewer locale")
	cmd.Flags().IntVar(&protocol, "protocol", packets.DefaultProfile.Protocol, "Viewer protocol version")

	return cmd
}

// translateAmpersand lets samples be typed with & colour codes.
func translateAmpersand(s string) string {
	return strings.ReplaceAll(s, "&", "§")
}
