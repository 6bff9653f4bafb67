package main

import (
	"fmt"

	"github.com/mediocregopher/radix/v3"
	"github.com/spf13/cobra"

	"github.com/Craftserve/msgproxy/config"
)

func newReloadCmd() *cobra.Command {
	var redisAddr, reason string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask every running proxy to reload its rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := radix.Dial("tcp", redisAddr)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := config.PublishReload(conn, reason)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reload sent to %d proxies\n", n)
			return err
		},
	}

	cmd.Flags().StringVar(&redisAddr, "redis-addr", "127.0.0.1:6379", "Redis address")
	cmd.Flags().StringVar(&reason, "reason", "cli", "Reason logged by the proxies")

	return cmd
}
