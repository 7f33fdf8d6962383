package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmorgan81/qrgen/internal/lifecycle"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func newGenerateCommand(opts *options) *cobra.Command {
	var noDownload bool
	cmd := &cobra.Command{
		Use:   "generate TEXT...",
		Short: "Run one generation cycle and download the result as qrcode.png",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.shutdown()

			machine, err := do.Invoke[*lifecycle.Machine](s.injector)
			if err != nil {
				return err
			}

			return withMetrics(s.ctx, s.cfg.MetricsAddr, func(ctx context.Context) error {
				state, err := machine.Start(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if state.Phase == lifecycle.Failed {
					return errors.New(state.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "generated %d bytes (%s) %s\n",
					state.Handle.Len(), state.Handle.MIMEType(), state.Handle.URL())
				if noDownload {
					return nil
				}

				location, err := machine.Download(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", location)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noDownload, "no-download", false, "generate without saving the image")
	return cmd
}
