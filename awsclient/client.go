// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package awsclient provides a typed client layer over the AWS
// serverless control plane. The methods are limited to the Lambda,
// API Gateway, IAM and CloudWatch Logs operations needed to deploy
// and manage a serverless application; each method is a thin,
// domain-shaped translation into the corresponding SDK call.
//
// Provider "not found" faults are translated into errors satisfying
// errors.Is(err, errors.NotFound). Eventually-consistent creation
// calls are retried against the injected clock.
package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("serverless.awsclient")

// LambdaAPI is the surface of the Lambda service client used by Client.
type LambdaAPI interface {
	GetFunction(ctx context.Context, in *lambda.GetFunctionInput, opts ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	GetFunctionConfiguration(ctx context.Context, in *lambda.GetFunctionConfigurationInput, opts ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
	CreateFunction(ctx context.Context, in *lambda.CreateFunctionInput, opts ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
	DeleteFunction(ctx context.Context, in *lambda.DeleteFunctionInput, opts ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
	UpdateFunctionCode(ctx context.Context, in *lambda.UpdateFunctionCodeInput, opts ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
	UpdateFunctionConfiguration(ctx context.Context, in *lambda.UpdateFunctionConfigurationInput, opts ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error)
	ListTags(ctx context.Context, in *lambda.ListTagsInput, opts ...func(*lambda.Options)) (*lambda.ListTagsOutput, error)
	TagResource(ctx context.Context, in *lambda.TagResourceInput, opts ...func(*lambda.Options)) (*lambda.TagResourceOutput, error)
	UntagResource(ctx context.Context, in *lambda.UntagResourceInput, opts ...func(*lambda.Options)) (*lambda.UntagResourceOutput, error)
	AddPermission(ctx context.Context, in *lambda.AddPermissionInput, opts ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
	GetPolicy(ctx context.Context, in *lambda.GetPolicyInput, opts ...func(*lambda.Options)) (*lambda.GetPolicyOutput, error)
}

// GatewayAPI is the surface of the API Gateway service client used by
// Client.
type GatewayAPI interface {
	GetRestApi(ctx context.Context, in *apigateway.GetRestApiInput, opts ...func(*apigateway.Options)) (*apigateway.GetRestApiOutput, error)
	GetRestApis(ctx context.Context, in *apigateway.GetRestApisInput, opts ...func(*apigateway.Options)) (*apigateway.GetRestApisOutput, error)
	ImportRestApi(ctx context.Context, in *apigateway.ImportRestApiInput, opts ...func(*apigateway.Options)) (*apigateway.ImportRestApiOutput, error)
	PutRestApi(ctx context.Context, in *apigateway.PutRestApiInput, opts ...func(*apigateway.Options)) (*apigateway.PutRestApiOutput, error)
	CreateDeployment(ctx context.Context, in *apigateway.CreateDeploymentInput, opts ...func(*apigateway.Options)) (*apigateway.CreateDeploymentOutput, error)
	DeleteRestApi(ctx context.Context, in *apigateway.DeleteRestApiInput, opts ...func(*apigateway.Options)) (*apigateway.DeleteRestApiOutput, error)
	GetSdk(ctx context.Context, in *apigateway.GetSdkInput, opts ...func(*apigateway.Options)) (*apigateway.GetSdkOutput, error)
}

// RoleAPI is the surface of the IAM service client used by Client.
type RoleAPI interface {
	GetRole(ctx context.Context, in *iam.GetRoleInput, opts ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreateRole(ctx context.Context, in *iam.CreateRoleInput, opts ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	PutRolePolicy(ctx context.Context, in *iam.PutRolePolicyInput, opts ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
	DeleteRolePolicy(ctx context.Context, in *iam.DeleteRolePolicyInput, opts ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error)
	ListRolePolicies(ctx context.Context, in *iam.ListRolePoliciesInput, opts ...func(*iam.Options)) (*iam.ListRolePoliciesOutput, error)
	DeleteRole(ctx context.Context, in *iam.DeleteRoleInput, opts ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// LogsAPI is the surface of the CloudWatch Logs service client used by
// Client.
type LogsAPI interface {
	FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// ClientConfig holds the dependencies of a Client.
type ClientConfig struct {
	Region  string
	Lambda  LambdaAPI
	Gateway GatewayAPI
	Roles   RoleAPI
	Logs    LogsAPI

	// Clock paces the retry loops. Defaults to the wall clock.
	Clock clock.Clock
}

// Client provides methods for interacting with the AWS serverless
// control plane. The client itself is stateless; all state lives with
// the provider.
type Client struct {
	region  string
	lambda  LambdaAPI
	gateway GatewayAPI
	roles   RoleAPI
	logs    LogsAPI
	clock   clock.Clock
}

// NewClient returns a Client calling the supplied service clients.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	return &Client{
		region:  cfg.Region,
		lambda:  cfg.Lambda,
		gateway: cfg.Gateway,
		roles:   cfg.Roles,
		logs:    cfg.Logs,
		clock:   cfg.Clock,
	}
}

// Region returns the region the client was configured against.
func (c *Client) Region() string {
	return c.region
}
