// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package deployer drives the control-plane client to push a packaged
// serverless application into a provider account. Every step is
// written to be safely repeatable: resources are looked up before
// creation, updates overwrite, and permission grants are only added
// when missing.
package deployer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/serverless/awsclient"
)

var logger = loggo.GetLogger("serverless.deployer")

// ControlPlane is the part of the control-plane client the deployer
// needs.
type ControlPlane interface {
	Region() string

	RoleARN(ctx context.Context, name string) (string, error)
	CreateRole(ctx context.Context, name string, trustPolicy, policy map[string]any) (string, error)
	PutRolePolicy(ctx context.Context, roleName, policyName string, policy map[string]any) error
	DeleteRolePolicy(ctx context.Context, roleName, policyName string) error
	DeleteRole(ctx context.Context, name string) error

	FunctionExists(ctx context.Context, name string) (bool, error)
	CreateFunction(ctx context.Context, args awsclient.CreateFunctionArgs) (string, error)
	UpdateFunction(ctx context.Context, args awsclient.UpdateFunctionArgs) error
	FunctionConfiguration(ctx context.Context, name string) (*lambda.GetFunctionConfigurationOutput, error)
	DeleteFunction(ctx context.Context, name string) error
	AddPermissionForAPIGatewayIfNeeded(ctx context.Context, name, region, accountID, apiID, statementID string) error

	RestAPIID(ctx context.Context, name string) (string, error)
	ImportRestAPI(ctx context.Context, swagger map[string]any) (string, error)
	UpdateRestAPIFromSwagger(ctx context.Context, apiID string, swagger map[string]any) error
	DeployRestAPI(ctx context.Context, apiID, stage string) error
	DeleteRestAPI(ctx context.Context, apiID string) error
}

// App describes one deployable application. ZipContents is the
// already-packaged code bundle; packaging is the caller's business.
type App struct {
	Name        string
	Stage       string
	Runtime     string
	Handler     string
	ZipContents []byte

	EnvironmentVariables map[string]string
	Timeout              int32
	MemorySize           int32
	Tags                 map[string]string

	// TrustPolicy and RolePolicy are the documents for the app's
	// execution role.
	TrustPolicy map[string]any
	RolePolicy  map[string]any

	// Swagger is the REST API definition.
	Swagger map[string]any
}

// Validate checks the app for obvious problems.
func (a App) Validate() error {
	if a.Name == "" {
		return errors.NotValidf("empty app name")
	}
	if a.Stage == "" {
		return errors.NotValidf("empty stage")
	}
	if a.Runtime == "" {
		return errors.NotValidf("empty runtime")
	}
	if len(a.ZipContents) == 0 {
		return errors.NotValidf("empty code bundle")
	}
	if a.Swagger == nil {
		return errors.NotValidf("missing api definition")
	}
	return nil
}

// Deployment reports where a deployed app ended up.
type Deployment struct {
	FunctionARN string
	RestAPIID   string
	URL         string
}

// Deployer creates or updates provider resources for an App.
type Deployer struct {
	api ControlPlane
}

// New returns a Deployer using the given control plane.
func New(api ControlPlane) *Deployer {
	return &Deployer{api: api}
}

// Deploy pushes the app: execution role, function, REST API, stage
// deployment and invoke permission. Calling it again with the same app
// converges on the same remote state.
func (d *Deployer) Deploy(ctx context.Context, app App) (Deployment, error) {
	if err := app.Validate(); err != nil {
		return Deployment{}, errors.Trace(err)
	}

	roleARN, err := d.ensureRole(ctx, app)
	if err != nil {
		return Deployment{}, errors.Trace(err)
	}
	functionARN, err := d.ensureFunction(ctx, app, roleARN)
	if err != nil {
		return Deployment{}, errors.Trace(err)
	}
	apiID, err := d.ensureRestAPI(ctx, app)
	if err != nil {
		return Deployment{}, errors.Trace(err)
	}
	if err := d.api.DeployRestAPI(ctx, apiID, app.Stage); err != nil {
		return Deployment{}, errors.Trace(err)
	}

	accountID, err := accountID(functionARN)
	if err != nil {
		return Deployment{}, errors.Trace(err)
	}
	region := d.api.Region()
	if err := d.api.AddPermissionForAPIGatewayIfNeeded(
		ctx, app.Name, region, accountID, apiID, uuid.NewString(),
	); err != nil {
		return Deployment{}, errors.Trace(err)
	}

	deployment := Deployment{
		FunctionARN: functionARN,
		RestAPIID:   apiID,
		URL:         fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s/", apiID, region, app.Stage),
	}
	logger.Infof("deployed %q to %s", app.Name, deployment.URL)
	return deployment, nil
}

// Remove deletes the app's provider resources. Resources already gone
// are not an error.
func (d *Deployer) Remove(ctx context.Context, app App) error {
	if app.Name == "" {
		return errors.NotValidf("empty app name")
	}

	apiID, err := d.api.RestAPIID(ctx, app.Name)
	switch {
	case err == nil:
		if err := ignoreNotFound(d.api.DeleteRestAPI(ctx, apiID)); err != nil {
			return errors.Trace(err)
		}
	case !errors.Is(err, errors.NotFound):
		return errors.Trace(err)
	}

	if err := ignoreNotFound(d.api.DeleteFunction(ctx, app.Name)); err != nil {
		return errors.Trace(err)
	}
	if err := ignoreNotFound(d.api.DeleteRolePolicy(ctx, app.Name, app.Name)); err != nil {
		return errors.Trace(err)
	}
	if err := ignoreNotFound(d.api.DeleteRole(ctx, app.Name)); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("removed %q", app.Name)
	return nil
}

// ensureRole returns the ARN of the app's execution role, creating the
// role when absent and refreshing its inline policy when present.
func (d *Deployer) ensureRole(ctx context.Context, app App) (string, error) {
	roleARN, err := d.api.RoleARN(ctx, app.Name)
	if errors.Is(err, errors.NotFound) {
		logger.Debugf("creating role %q", app.Name)
		roleARN, err = d.api.CreateRole(ctx, app.Name, app.TrustPolicy, app.RolePolicy)
		return roleARN, errors.Trace(err)
	}
	if err != nil {
		return "", errors.Trace(err)
	}
	// The role survives across deploys; its policy follows the app.
	if err := d.api.PutRolePolicy(ctx, app.Name, app.Name, app.RolePolicy); err != nil {
		return "", errors.Trace(err)
	}
	return roleARN, nil
}

func (d *Deployer) ensureFunction(ctx context.Context, app App, roleARN string) (string, error) {
	exists, err := d.api.FunctionExists(ctx, app.Name)
	if err != nil {
		return "", errors.Trace(err)
	}
	if !exists {
		logger.Debugf("creating function %q", app.Name)
		functionARN, err := d.api.CreateFunction(ctx, awsclient.CreateFunctionArgs{
			Name:                 app.Name,
			RoleARN:              roleARN,
			ZipContents:          app.ZipContents,
			Runtime:              app.Runtime,
			Handler:              app.Handler,
			EnvironmentVariables: app.EnvironmentVariables,
			Timeout:              app.Timeout,
			MemorySize:           app.MemorySize,
			Tags:                 app.Tags,
		})
		return functionARN, errors.Trace(err)
	}

	logger.Debugf("updating function %q", app.Name)
	if err := d.api.UpdateFunction(ctx, awsclient.UpdateFunctionArgs{
		Name:                 app.Name,
		ZipContents:          app.ZipContents,
		Runtime:              app.Runtime,
		EnvironmentVariables: app.EnvironmentVariables,
		Timeout:              app.Timeout,
		MemorySize:           app.MemorySize,
		Tags:                 app.Tags,
	}); err != nil {
		return "", errors.Trace(err)
	}
	config, err := d.api.FunctionConfiguration(ctx, app.Name)
	if err != nil {
		return "", errors.Trace(err)
	}
	if config.FunctionArn == nil {
		return "", errors.Errorf("function %q has no ARN", app.Name)
	}
	return *config.FunctionArn, nil
}

func (d *Deployer) ensureRestAPI(ctx context.Context, app App) (string, error) {
	apiID, err := d.api.RestAPIID(ctx, app.Name)
	if errors.Is(err, errors.NotFound) {
		logger.Debugf("importing rest api %q", app.Name)
		apiID, err = d.api.ImportRestAPI(ctx, app.Swagger)
		return apiID, errors.Trace(err)
	}
	if err != nil {
		return "", errors.Trace(err)
	}
	if err := d.api.UpdateRestAPIFromSwagger(ctx, apiID, app.Swagger); err != nil {
		return "", errors.Trace(err)
	}
	return apiID, nil
}

// accountID extracts the owning account from a function ARN.
func accountID(functionARN string) (string, error) {
	parsed, err := arn.Parse(functionARN)
	if err != nil {
		return "", errors.Annotatef(err, "parsing function ARN %q", functionARN)
	}
	return parsed.AccountID, nil
}

func ignoreNotFound(err error) error {
	if err == nil || errors.Is(err, errors.NotFound) {
		return nil
	}
	return err
}
