// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

// ConnectConfig holds what is needed to open real service clients.
// When AccessKey is empty the SDK's default credential chain is used.
type ConnectConfig struct {
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// Validate checks the config for obvious problems.
func (c ConnectConfig) Validate() error {
	if c.Region == "" {
		return errors.NotValidf("empty region")
	}
	if c.AccessKey != "" && c.SecretKey == "" {
		return errors.NotValidf("access key without secret key")
	}
	return nil
}

// Connect resolves credentials and returns a Client backed by real
// service clients for the configured region.
func Connect(ctx context.Context, cfg ConnectConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "resolving provider credentials")
	}
	return NewClient(ClientConfig{
		Region:  awsCfg.Region,
		Lambda:  lambda.NewFromConfig(awsCfg),
		Gateway: apigateway.NewFromConfig(awsCfg),
		Roles:   iam.NewFromConfig(awsCfg),
		Logs:    cloudwatchlogs.NewFromConfig(awsCfg),
		Clock:   clock.WallClock,
	}), nil
}
