// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package deployer_test

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/serverless/awsclient"
	"github.com/juju/serverless/deployer"
)

type deployerSuite struct{}

var _ = gc.Suite(&deployerSuite{})

const testFunctionARN = "arn:aws:lambda:us-west-2:123456789012:function:myapp"

func testApp() deployer.App {
	return deployer.App{
		Name:        "myapp",
		Stage:       "dev",
		Runtime:     "python3.12",
		ZipContents: []byte("code"),
		TrustPolicy: map[string]any{"trust": "policy"},
		RolePolicy:  map[string]any{"policy": "document"},
		Swagger: map[string]any{
			"swagger": "2.0",
			"info":    map[string]any{"title": "myapp"},
		},
	}
}

// fakeControlPlane fakes the control-plane client with canned remote
// state.
type fakeControlPlane struct {
	stub testing.Stub

	roleMissing     bool
	functionMissing bool
	apiMissing      bool
}

func (f *fakeControlPlane) Region() string {
	f.stub.AddCall("Region")
	return "us-west-2"
}

func (f *fakeControlPlane) RoleARN(ctx context.Context, name string) (string, error) {
	f.stub.AddCall("RoleARN", name)
	if err := f.stub.NextErr(); err != nil {
		return "", err
	}
	if f.roleMissing {
		return "", errors.NotFoundf("role %q", name)
	}
	return "arn:aws:iam::123456789012:role/" + name, nil
}

func (f *fakeControlPlane) CreateRole(ctx context.Context, name string, trustPolicy, policy map[string]any) (string, error) {
	f.stub.AddCall("CreateRole", name, trustPolicy, policy)
	if err := f.stub.NextErr(); err != nil {
		return "", err
	}
	return "arn:aws:iam::123456789012:role/" + name, nil
}

func (f *fakeControlPlane) PutRolePolicy(ctx context.Context, roleName, policyName string, policy map[string]any) error {
	f.stub.AddCall("PutRolePolicy", roleName, policyName, policy)
	return f.stub.NextErr()
}

func (f *fakeControlPlane) DeleteRolePolicy(ctx context.Context, roleName, policyName string) error {
	f.stub.AddCall("DeleteRolePolicy", roleName, policyName)
	if err := f.stub.NextErr(); err != nil {
		return err
	}
	if f.roleMissing {
		return errors.NotFoundf("policy %q on role %q", policyName, roleName)
	}
	return nil
}

func (f *fakeControlPlane) DeleteRole(ctx context.Context, name string) error {
	f.stub.AddCall("DeleteRole", name)
	if err := f.stub.NextErr(); err != nil {
		return err
	}
	if f.roleMissing {
		return errors.NotFoundf("role %q", name)
	}
	return nil
}

func (f *fakeControlPlane) FunctionExists(ctx context.Context, name string) (bool, error) {
	f.stub.AddCall("FunctionExists", name)
	if err := f.stub.NextErr(); err != nil {
		return false, err
	}
	return !f.functionMissing, nil
}

func (f *fakeControlPlane) CreateFunction(ctx context.Context, args awsclient.CreateFunctionArgs) (string, error) {
	f.stub.AddCall("CreateFunction", args)
	if err := f.stub.NextErr(); err != nil {
		return "", err
	}
	return testFunctionARN, nil
}

func (f *fakeControlPlane) UpdateFunction(ctx context.Context, args awsclient.UpdateFunctionArgs) error {
	f.stub.AddCall("UpdateFunction", args)
	return f.stub.NextErr()
}

func (f *fakeControlPlane) FunctionConfiguration(ctx context.Context, name string) (*lambda.GetFunctionConfigurationOutput, error) {
	f.stub.AddCall("FunctionConfiguration", name)
	if err := f.stub.NextErr(); err != nil {
		return nil, err
	}
	return &lambda.GetFunctionConfigurationOutput{
		FunctionArn: aws.String(testFunctionARN),
	}, nil
}

func (f *fakeControlPlane) DeleteFunction(ctx context.Context, name string) error {
	f.stub.AddCall("DeleteFunction", name)
	if err := f.stub.NextErr(); err != nil {
		return err
	}
	if f.functionMissing {
		return errors.NotFoundf("function %q", name)
	}
	return nil
}

func (f *fakeControlPlane) AddPermissionForAPIGatewayIfNeeded(ctx context.Context, name, region, accountID, apiID, statementID string) error {
	f.stub.AddCall("AddPermissionForAPIGatewayIfNeeded", name, region, accountID, apiID)
	return f.stub.NextErr()
}

func (f *fakeControlPlane) RestAPIID(ctx context.Context, name string) (string, error) {
	f.stub.AddCall("RestAPIID", name)
	if err := f.stub.NextErr(); err != nil {
		return "", err
	}
	if f.apiMissing {
		return "", errors.NotFoundf("rest api %q", name)
	}
	return "restapi-1", nil
}

func (f *fakeControlPlane) ImportRestAPI(ctx context.Context, swagger map[string]any) (string, error) {
	f.stub.AddCall("ImportRestAPI", swagger)
	if err := f.stub.NextErr(); err != nil {
		return "", err
	}
	return "restapi-1", nil
}

func (f *fakeControlPlane) UpdateRestAPIFromSwagger(ctx context.Context, apiID string, swagger map[string]any) error {
	f.stub.AddCall("UpdateRestAPIFromSwagger", apiID, swagger)
	return f.stub.NextErr()
}

func (f *fakeControlPlane) DeployRestAPI(ctx context.Context, apiID, stage string) error {
	f.stub.AddCall("DeployRestAPI", apiID, stage)
	return f.stub.NextErr()
}

func (f *fakeControlPlane) DeleteRestAPI(ctx context.Context, apiID string) error {
	f.stub.AddCall("DeleteRestAPI", apiID)
	if err := f.stub.NextErr(); err != nil {
		return err
	}
	if f.apiMissing {
		return errors.NotFoundf("rest api %q", apiID)
	}
	return nil
}

func (s *deployerSuite) TestDeployFreshApp(c *gc.C) {
	api := &fakeControlPlane{
		roleMissing:     true,
		functionMissing: true,
		apiMissing:      true,
	}

	deployment, err := deployer.New(api).Deploy(context.Background(), testApp())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(deployment, jc.DeepEquals, deployer.Deployment{
		FunctionARN: testFunctionARN,
		RestAPIID:   "restapi-1",
		URL:         "https://restapi-1.execute-api.us-west-2.amazonaws.com/dev/",
	})
	api.stub.CheckCallNames(c,
		"RoleARN", "CreateRole",
		"FunctionExists", "CreateFunction",
		"RestAPIID", "ImportRestAPI",
		"DeployRestAPI",
		"Region", "AddPermissionForAPIGatewayIfNeeded",
	)
	api.stub.CheckCall(c, 8, "AddPermissionForAPIGatewayIfNeeded",
		"myapp", "us-west-2", "123456789012", "restapi-1")
}

func (s *deployerSuite) TestDeployExistingApp(c *gc.C) {
	api := &fakeControlPlane{}

	deployment, err := deployer.New(api).Deploy(context.Background(), testApp())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(deployment.URL, gc.Equals, "https://restapi-1.execute-api.us-west-2.amazonaws.com/dev/")
	api.stub.CheckCallNames(c,
		"RoleARN", "PutRolePolicy",
		"FunctionExists", "UpdateFunction", "FunctionConfiguration",
		"RestAPIID", "UpdateRestAPIFromSwagger",
		"DeployRestAPI",
		"Region", "AddPermissionForAPIGatewayIfNeeded",
	)
	api.stub.CheckCall(c, 1, "PutRolePolicy",
		"myapp", "myapp", map[string]any{"policy": "document"})
}

func (s *deployerSuite) TestDeployCreateFunctionArgs(c *gc.C) {
	api := &fakeControlPlane{
		roleMissing:     true,
		functionMissing: true,
		apiMissing:      true,
	}
	app := testApp()
	app.MemorySize = 256
	app.Tags = map[string]string{"owner": "team"}

	_, err := deployer.New(api).Deploy(context.Background(), app)
	c.Assert(err, jc.ErrorIsNil)
	api.stub.CheckCall(c, 3, "CreateFunction", awsclient.CreateFunctionArgs{
		Name:        "myapp",
		RoleARN:     "arn:aws:iam::123456789012:role/myapp",
		ZipContents: []byte("code"),
		Runtime:     "python3.12",
		MemorySize:  256,
		Tags:        map[string]string{"owner": "team"},
	})
}

func (s *deployerSuite) TestDeployCreateFunctionError(c *gc.C) {
	api := &fakeControlPlane{
		roleMissing:     true,
		functionMissing: true,
	}
	api.stub.SetErrors(nil, nil, nil, errors.New("boom"))

	_, err := deployer.New(api).Deploy(context.Background(), testApp())
	c.Assert(err, gc.ErrorMatches, "boom")
}

func (s *deployerSuite) TestDeployInvalidApp(c *gc.C) {
	api := &fakeControlPlane{}
	app := testApp()
	app.Stage = ""

	_, err := deployer.New(api).Deploy(context.Background(), app)
	c.Assert(err, jc.ErrorIs, errors.NotValid)
	api.stub.CheckCallNames(c)
}

func (s *deployerSuite) TestRemove(c *gc.C) {
	api := &fakeControlPlane{}

	err := deployer.New(api).Remove(context.Background(), testApp())
	c.Assert(err, jc.ErrorIsNil)
	api.stub.CheckCallNames(c,
		"RestAPIID", "DeleteRestAPI",
		"DeleteFunction",
		"DeleteRolePolicy", "DeleteRole",
	)
}

func (s *deployerSuite) TestRemoveAlreadyGone(c *gc.C) {
	api := &fakeControlPlane{
		roleMissing:     true,
		functionMissing: true,
		apiMissing:      true,
	}

	err := deployer.New(api).Remove(context.Background(), testApp())
	c.Assert(err, jc.ErrorIsNil)
	api.stub.CheckCallNames(c,
		"RestAPIID",
		"DeleteFunction",
		"DeleteRolePolicy", "DeleteRole",
	)
}

func (s *deployerSuite) TestRemoveErrorPropagates(c *gc.C) {
	api := &fakeControlPlane{apiMissing: true}
	api.stub.SetErrors(nil, errors.New("boom"))

	err := deployer.New(api).Remove(context.Background(), testApp())
	c.Assert(err, gc.ErrorMatches, "boom")
}

func (s *deployerSuite) TestAppValidate(c *gc.C) {
	for _, mutate := range []func(*deployer.App){
		func(a *deployer.App) { a.Name = "" },
		func(a *deployer.App) { a.Stage = "" },
		func(a *deployer.App) { a.Runtime = "" },
		func(a *deployer.App) { a.ZipContents = nil },
		func(a *deployer.App) { a.Swagger = nil },
	} {
		app := testApp()
		mutate(&app)
		c.Check(app.Validate(), jc.ErrorIs, errors.NotValid)
	}
	c.Check(testApp().Validate(), jc.ErrorIsNil)
}
