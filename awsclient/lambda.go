// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

const (
	// defaultHandler is the entry point used when a function is
	// created without an explicit one.
	defaultHandler = "app.app"

	// A role created immediately before the function may not have
	// propagated to the function service yet, which surfaces as a
	// transient parameter fault. Creation is retried on a fixed
	// cadence until the race resolves.
	createFunctionAttempts = 5
	createFunctionDelay    = 5 * time.Second

	invokeAction     = "lambda:InvokeFunction"
	gatewayPrincipal = "apigateway.amazonaws.com"
)

// CreateFunctionArgs are the arguments for Client.CreateFunction.
// Optional fields are only sent to the provider when set.
type CreateFunctionArgs struct {
	Name        string
	RoleARN     string
	ZipContents []byte
	Runtime     string

	Handler              string
	EnvironmentVariables map[string]string
	Timeout              int32
	MemorySize           int32
	Tags                 map[string]string
}

// UpdateFunctionArgs are the arguments for Client.UpdateFunction. The
// code is always updated; configuration fields are only sent when set.
// A nil Tags map leaves the remote tags alone, an empty non-nil map
// removes them all.
type UpdateFunctionArgs struct {
	Name        string
	ZipContents []byte

	Runtime              string
	EnvironmentVariables map[string]string
	Timeout              int32
	MemorySize           int32
	Tags                 map[string]string
}

// FunctionExists reports whether the named function exists. Any fault
// other than not found is returned to the caller.
func (c *Client) FunctionExists(ctx context.Context, name string) (bool, error) {
	_, err := c.lambda.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return false, nil
		}
		return false, errors.Trace(err)
	}
	return true, nil
}

// FunctionConfiguration returns the remote configuration of the named
// function.
func (c *Client) FunctionConfiguration(ctx context.Context, name string) (*lambda.GetFunctionConfigurationOutput, error) {
	config, err := c.lambda.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return nil, errors.NotFoundf("function %q", name)
		}
		return nil, errors.Trace(err)
	}
	return config, nil
}

// CreateFunction creates a function from the given zipped code and
// returns its ARN. Creation races role propagation, so transient
// parameter faults are retried; any other fault, or the final
// transient fault once attempts are exhausted, is returned as is.
func (c *Client) CreateFunction(ctx context.Context, args CreateFunctionArgs) (string, error) {
	handler := args.Handler
	if handler == "" {
		handler = defaultHandler
	}
	input := &lambda.CreateFunctionInput{
		FunctionName: aws.String(args.Name),
		Role:         aws.String(args.RoleARN),
		Runtime:      types.Runtime(args.Runtime),
		Handler:      aws.String(handler),
		Code:         &types.FunctionCode{ZipFile: args.ZipContents},
	}
	if len(args.EnvironmentVariables) > 0 {
		input.Environment = &types.Environment{Variables: args.EnvironmentVariables}
	}
	if args.Timeout > 0 {
		input.Timeout = aws.Int32(args.Timeout)
	}
	if args.MemorySize > 0 {
		input.MemorySize = aws.Int32(args.MemorySize)
	}
	if len(args.Tags) > 0 {
		input.Tags = args.Tags
	}

	var arn string
	err := retry.Call(retry.CallArgs{
		Clock:    c.clock,
		Delay:    createFunctionDelay,
		Attempts: createFunctionAttempts,
		Func: func() error {
			created, err := c.lambda.CreateFunction(ctx, input)
			if err != nil {
				return err
			}
			arn = aws.ToString(created.FunctionArn)
			return nil
		},
		IsFatalError: func(err error) bool {
			return !isRolePropagationFault(err)
		},
		NotifyFunc: func(lastError error, attempt int) {
			logger.Debugf("create function %q attempt %d: %v", args.Name, attempt, lastError)
		},
		Stop: ctx.Done(),
	})
	if retry.IsAttemptsExceeded(err) {
		err = retry.LastError(err)
	}
	if err != nil {
		return "", errors.Annotatef(err, "creating function %q", args.Name)
	}
	return arn, nil
}

// DeleteFunction deletes the named function, returning a not found
// error if it is already gone.
func (c *Client) DeleteFunction(ctx context.Context, name string) error {
	_, err := c.lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return errors.NotFoundf("function %q", name)
		}
		return errors.Trace(err)
	}
	return nil
}

// UpdateFunction updates the named function's code, then its
// configuration when any configuration argument is set, then
// reconciles its tags.
func (c *Client) UpdateFunction(ctx context.Context, args UpdateFunctionArgs) error {
	updated, err := c.lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(args.Name),
		ZipFile:      args.ZipContents,
	})
	if err != nil {
		return errors.Annotatef(err, "updating code for function %q", args.Name)
	}
	if err := c.updateFunctionConfiguration(ctx, args); err != nil {
		return errors.Trace(err)
	}
	if args.Tags == nil {
		return nil
	}
	arn := aws.ToString(updated.FunctionArn)
	return errors.Annotatef(c.reconcileFunctionTags(ctx, arn, args.Tags),
		"reconciling tags for function %q", args.Name)
}

func (c *Client) updateFunctionConfiguration(ctx context.Context, args UpdateFunctionArgs) error {
	input := &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(args.Name),
	}
	var dirty bool
	if args.Runtime != "" {
		input.Runtime = types.Runtime(args.Runtime)
		dirty = true
	}
	if args.EnvironmentVariables != nil {
		input.Environment = &types.Environment{Variables: args.EnvironmentVariables}
		dirty = true
	}
	if args.Timeout > 0 {
		input.Timeout = aws.Int32(args.Timeout)
		dirty = true
	}
	if args.MemorySize > 0 {
		input.MemorySize = aws.Int32(args.MemorySize)
		dirty = true
	}
	if !dirty {
		return nil
	}
	_, err := c.lambda.UpdateFunctionConfiguration(ctx, input)
	return errors.Annotatef(err, "updating configuration for function %q", args.Name)
}

// reconcileFunctionTags diffs the remote tag set against the desired
// one and issues the minimal tag and untag calls. Matching sets result
// in no calls at all.
func (c *Client) reconcileFunctionTags(ctx context.Context, arn string, desired map[string]string) error {
	remote, err := c.lambda.ListTags(ctx, &lambda.ListTagsInput{
		Resource: aws.String(arn),
	})
	if err != nil {
		return errors.Trace(err)
	}
	toAdd, toRemove := diffTags(remote.Tags, desired)
	if len(toAdd) > 0 {
		if _, err := c.lambda.TagResource(ctx, &lambda.TagResourceInput{
			Resource: aws.String(arn),
			Tags:     toAdd,
		}); err != nil {
			return errors.Trace(err)
		}
	}
	if len(toRemove) > 0 {
		if _, err := c.lambda.UntagResource(ctx, &lambda.UntagResourceInput{
			Resource: aws.String(arn),
			TagKeys:  toRemove,
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// AddPermissionForAPIGateway grants the API gateway service permission
// to invoke the named function on behalf of the given API.
func (c *Client) AddPermissionForAPIGateway(ctx context.Context, name, region, accountID, apiID, statementID string) error {
	_, err := c.lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		Action:       aws.String(invokeAction),
		FunctionName: aws.String(name),
		StatementId:  aws.String(statementID),
		Principal:    aws.String(gatewayPrincipal),
		SourceArn:    aws.String(gatewaySourceARN(region, accountID, apiID)),
	})
	return errors.Annotatef(err, "adding gateway invoke permission to function %q", name)
}

// AddPermissionForAPIGatewayIfNeeded inspects the function's resource
// policy and only adds the gateway invoke permission when no statement
// already grants it for the same source ARN, keeping repeated
// deployments idempotent.
func (c *Client) AddPermissionForAPIGatewayIfNeeded(ctx context.Context, name, region, accountID, apiID, statementID string) error {
	sourceARN := gatewaySourceARN(region, accountID, apiID)
	policy, err := c.functionPolicy(ctx, name)
	if err != nil {
		return errors.Trace(err)
	}
	if policy.grantsSourceARN(sourceARN) {
		logger.Tracef("function %q already grants invoke for %q", name, sourceARN)
		return nil
	}
	return c.AddPermissionForAPIGateway(ctx, name, region, accountID, apiID, statementID)
}

// functionPolicy fetches and parses the function's resource policy.
// A function with no policy at all reports a not found fault, which is
// treated as an empty policy.
func (c *Client) functionPolicy(ctx context.Context, name string) (policyDocument, error) {
	remote, err := c.lambda.GetPolicy(ctx, &lambda.GetPolicyInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return policyDocument{}, nil
		}
		return policyDocument{}, errors.Annotatef(err, "fetching policy for function %q", name)
	}
	doc, err := parsePolicyDocument(aws.ToString(remote.Policy))
	return doc, errors.Trace(err)
}

func gatewaySourceARN(region, accountID, apiID string) string {
	return fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/*", region, accountID, apiID)
}
