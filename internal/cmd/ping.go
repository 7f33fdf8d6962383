package cmd

import (
	"errors"
	"fmt"

	"github.com/dmorgan81/qrgen/internal/qr"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func newPingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the generation service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.shutdown()

			client, err := do.Invoke[*qr.Client](s.injector)
			if err != nil {
				return err
			}
			banner, err := client.Ping(s.ctx)
			if err != nil {
				var qerr *qr.Error
				if errors.As(err, &qerr) {
					return errors.New(qerr.Message)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", banner.Message, banner.Version, client.Base)
			return nil
		},
	}
}
