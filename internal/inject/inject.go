package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/qrgen/internal/config"
	"github.com/dmorgan81/qrgen/internal/handler"
	"github.com/dmorgan81/qrgen/internal/lifecycle"
	"github.com/dmorgan81/qrgen/internal/log"
	"github.com/dmorgan81/qrgen/internal/param"
	"github.com/dmorgan81/qrgen/internal/qr"
	"github.com/dmorgan81/qrgen/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[*config.Config](injector, cfg)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, &http.Client{Timeout: cfg.RequestTimeout})

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.ProvideNamed[string](injector, "base_address", func(i *do.Injector) (string, error) {
		if cfg.BaseAddressParam == "" {
			return cfg.BaseAddress, nil
		}
		return do.MustInvoke[param.Fetcher](i).Fetch(ctx, cfg.BaseAddressParam)
	})

	do.Provide[*qr.Client](injector, func(i *do.Injector) (*qr.Client, error) {
		return qr.NewClient(do.MustInvokeNamed[string](i, "base_address"), do.MustInvoke[*http.Client](i))
	})
	do.Provide[qr.Generator](injector, func(i *do.Injector) (qr.Generator, error) {
		client, err := do.Invoke[*qr.Client](i)
		if err != nil {
			return nil, err
		}
		return client, nil
	})

	do.Provide[store.Invalidator](injector, store.NewCloudFrontInvalidator)
	do.Provide[store.Saver](injector, func(i *do.Injector) (store.Saver, error) {
		if cfg.IsS3Storage() {
			return store.NewS3Saver(i)
		}
		return &store.FileSaver{Dir: cfg.DownloadDir}, nil
	})

	do.Provide[*lifecycle.Machine](injector, func(i *do.Injector) (*lifecycle.Machine, error) {
		return lifecycle.New(
			do.MustInvoke[qr.Generator](i),
			do.MustInvoke[store.Saver](i),
			lifecycle.WithSize(cfg.Size),
		), nil
	})
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
