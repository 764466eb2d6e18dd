// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/juju/errors"
)

// RestAPIExists reports whether a REST API with the given id exists.
func (c *Client) RestAPIExists(ctx context.Context, apiID string) (bool, error) {
	_, err := c.gateway.GetRestApi(ctx, &apigateway.GetRestApiInput{
		RestApiId: aws.String(apiID),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return false, nil
		}
		return false, errors.Trace(err)
	}
	return true, nil
}

// RestAPIID scans the account's REST APIs for one with the given name
// and returns its id, or a not found error. Names are not unique on
// the provider side; the first match wins.
func (c *Client) RestAPIID(ctx context.Context, name string) (string, error) {
	var position *string
	for {
		page, err := c.gateway.GetRestApis(ctx, &apigateway.GetRestApisInput{
			Position: position,
		})
		if err != nil {
			return "", errors.Trace(err)
		}
		for _, api := range page.Items {
			if aws.ToString(api.Name) == name {
				return aws.ToString(api.Id), nil
			}
		}
		if page.Position == nil {
			return "", errors.NotFoundf("rest api %q", name)
		}
		position = page.Position
	}
}

// ImportRestAPI creates a REST API from a swagger document and returns
// the new API's id.
func (c *Client) ImportRestAPI(ctx context.Context, swagger map[string]any) (string, error) {
	body, err := marshalIndentedJSON(swagger)
	if err != nil {
		return "", errors.Trace(err)
	}
	imported, err := c.gateway.ImportRestApi(ctx, &apigateway.ImportRestApiInput{
		Body: body,
	})
	if err != nil {
		return "", errors.Annotate(err, "importing rest api")
	}
	return aws.ToString(imported.Id), nil
}

// UpdateRestAPIFromSwagger overwrites the definition of an existing
// REST API with a swagger document.
func (c *Client) UpdateRestAPIFromSwagger(ctx context.Context, apiID string, swagger map[string]any) error {
	body, err := marshalIndentedJSON(swagger)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = c.gateway.PutRestApi(ctx, &apigateway.PutRestApiInput{
		RestApiId: aws.String(apiID),
		Mode:      types.PutModeOverwrite,
		Body:      body,
	})
	return errors.Annotatef(err, "updating rest api %q", apiID)
}

// DeployRestAPI deploys the REST API to the named stage.
func (c *Client) DeployRestAPI(ctx context.Context, apiID, stage string) error {
	_, err := c.gateway.CreateDeployment(ctx, &apigateway.CreateDeploymentInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(stage),
	})
	return errors.Annotatef(err, "deploying rest api %q to stage %q", apiID, stage)
}

// DeleteRestAPI deletes the REST API with the given id, returning a
// not found error if it is already gone.
func (c *Client) DeleteRestAPI(ctx context.Context, apiID string) error {
	_, err := c.gateway.DeleteRestApi(ctx, &apigateway.DeleteRestApiInput{
		RestApiId: aws.String(apiID),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return errors.NotFoundf("rest api %q", apiID)
		}
		return errors.Trace(err)
	}
	return nil
}

// SDKDownload returns a generated client SDK for a deployed stage of
// the REST API.
func (c *Client) SDKDownload(ctx context.Context, apiID, stage, sdkType string) ([]byte, error) {
	sdk, err := c.gateway.GetSdk(ctx, &apigateway.GetSdkInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(stage),
		SdkType:   aws.String(sdkType),
	})
	if err != nil {
		return nil, errors.Annotatef(err, "downloading %s sdk for rest api %q", sdkType, apiID)
	}
	return sdk.Body, nil
}
