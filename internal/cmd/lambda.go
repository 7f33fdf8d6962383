package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/qrgen/internal/handler"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func newLambdaCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:    "lambda",
		Short:  "Serve generation requests as an AWS Lambda function",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			h, err := do.Invoke[*handler.Handler](s.injector)
			if err != nil {
				return err
			}
			lambda.StartWithOptions(h.Handle, lambda.WithContext(s.ctx), lambda.WithEnableSIGTERM(s.shutdown))
			return nil
		},
	}
}
