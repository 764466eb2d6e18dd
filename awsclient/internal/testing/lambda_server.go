// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

type fakeFunction struct {
	arn         string
	role        string
	runtime     types.Runtime
	handler     string
	zipContents []byte
	environment map[string]string
	timeout     *int32
	memorySize  *int32
	tags        map[string]string
	permissions []permission
}

type permission struct {
	sid       string
	action    string
	principal string
	sourceARN string
}

// LambdaServer implements a function service simulator for use in
// testing.
type LambdaServer struct {
	mu sync.Mutex

	functions map[string]*fakeFunction

	// createFailures makes the next N create calls fail with the
	// transient role-propagation fault.
	createFailures int

	// CreateCalls counts create attempts, including failed ones.
	CreateCalls int

	// Call counters for asserting which reconciliation calls were
	// actually issued.
	ConfigUpdateCalls  int
	TagResourceCalls   int
	UntagResourceCalls int
	AddPermissionCalls int
}

func NewLambdaServer() *LambdaServer {
	srv := &LambdaServer{}
	srv.Reset()
	return srv
}

func (l *LambdaServer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.functions = make(map[string]*fakeFunction)
	l.createFailures = 0
	l.CreateCalls = 0
	l.ConfigUpdateCalls = 0
	l.TagResourceCalls = 0
	l.UntagResourceCalls = 0
	l.AddPermissionCalls = 0
}

// FailCreates makes the next n CreateFunction calls fail as if the
// execution role had not propagated yet.
func (l *LambdaServer) FailCreates(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createFailures = n
}

// Tags returns the stored tags of a function, for test assertions.
func (l *LambdaServer) Tags(name string) map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fn, ok := l.functions[name]; ok {
		return fn.tags
	}
	return nil
}

// SetTags seeds remote tags on a function.
func (l *LambdaServer) SetTags(name string, tags map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fn, ok := l.functions[name]; ok {
		fn.tags = tags
	}
}

func functionARN(name string) string {
	return fmt.Sprintf("arn:aws:lambda:us-west-2:123456789012:function:%s", name)
}

func (l *LambdaServer) GetFunction(
	ctx context.Context,
	input *lambda.GetFunctionInput,
	opts ...func(*lambda.Options),
) (*lambda.GetFunctionOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, exists := l.functions[*input.FunctionName]
	if !exists {
		return nil, apiError("ResourceNotFoundException", "function %s not found", *input.FunctionName)
	}
	return &lambda.GetFunctionOutput{
		Configuration: &types.FunctionConfiguration{
			FunctionName: input.FunctionName,
			FunctionArn:  aws.String(fn.arn),
			Runtime:      fn.runtime,
			Handler:      aws.String(fn.handler),
		},
	}, nil
}

func (l *LambdaServer) GetFunctionConfiguration(
	ctx context.Context,
	input *lambda.GetFunctionConfigurationInput,
	opts ...func(*lambda.Options),
) (*lambda.GetFunctionConfigurationOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, exists := l.functions[*input.FunctionName]
	if !exists {
		return nil, apiError("ResourceNotFoundException", "function %s not found", *input.FunctionName)
	}
	return &lambda.GetFunctionConfigurationOutput{
		FunctionName: input.FunctionName,
		FunctionArn:  aws.String(fn.arn),
		Runtime:      fn.runtime,
		Handler:      aws.String(fn.handler),
		Timeout:      fn.timeout,
		MemorySize:   fn.memorySize,
	}, nil
}

func (l *LambdaServer) CreateFunction(
	ctx context.Context,
	input *lambda.CreateFunctionInput,
	opts ...func(*lambda.Options),
) (*lambda.CreateFunctionOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.CreateCalls++
	if l.createFailures > 0 {
		l.createFailures--
		return nil, apiError("InvalidParameterValueException",
			"The role defined for the function cannot be assumed by Lambda.")
	}
	if _, exists := l.functions[*input.FunctionName]; exists {
		return nil, apiError("ResourceConflictException", "function %s already exists", *input.FunctionName)
	}

	fn := &fakeFunction{
		arn:         functionARN(*input.FunctionName),
		role:        aws.ToString(input.Role),
		runtime:     input.Runtime,
		handler:     aws.ToString(input.Handler),
		zipContents: input.Code.ZipFile,
		timeout:     input.Timeout,
		memorySize:  input.MemorySize,
		tags:        input.Tags,
	}
	if input.Environment != nil {
		fn.environment = input.Environment.Variables
	}
	l.functions[*input.FunctionName] = fn

	return &lambda.CreateFunctionOutput{
		FunctionArn: aws.String(fn.arn),
	}, nil
}

func (l *LambdaServer) DeleteFunction(
	ctx context.Context,
	input *lambda.DeleteFunctionInput,
	opts ...func(*lambda.Options),
) (*lambda.DeleteFunctionOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.functions[*input.FunctionName]; !exists {
		return nil, apiError("ResourceNotFoundException", "function %s not found", *input.FunctionName)
	}
	delete(l.functions, *input.FunctionName)
	return &lambda.DeleteFunctionOutput{}, nil
}

func (l *LambdaServer) UpdateFunctionCode(
	ctx context.Context,
	input *lambda.UpdateFunctionCodeInput,
	opts ...func(*lambda.Options),
) (*lambda.UpdateFunctionCodeOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, exists := l.functions[*input.FunctionName]
	if !exists {
		return nil, apiError("ResourceNotFoundException", "function %s not found", *input.FunctionName)
	}
	fn.zipContents = input.ZipFile
	return &lambda.UpdateFunctionCodeOutput{
		FunctionArn: aws.String(fn.arn),
	}, nil
}

func (l *LambdaServer) UpdateFunctionConfiguration(
	ctx context.Context,
	input *lambda.UpdateFunctionConfigurationInput,
	opts ...func(*lambda.Options),
) (*lambda.UpdateFunctionConfigurationOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ConfigUpdateCalls++
	fn, exists := l.functions[*input.FunctionName]
	if !exists {
		return nil, apiError("ResourceNotFoundException", "function %s not found", *input.FunctionName)
	}
	if input.Runtime != "" {
		fn.runtime = input.Runtime
	}
	if input.Environment != nil {
		fn.environment = input.Environment.Variables
	}
	if input.Timeout != nil {
		fn.timeout = input.Timeout
	}
	if input.MemorySize != nil {
		fn.memorySize = input.MemorySize
	}
	return &lambda.UpdateFunctionConfigurationOutput{
		FunctionArn: aws.String(fn.arn),
	}, nil
}

func (l *LambdaServer) byARN(arn string) (*fakeFunction, error) {
	for _, fn := range l.functions {
		if fn.arn == arn {
			return fn, nil
		}
	}
	return nil, apiError("ResourceNotFoundException", "function %s not found", arn)
}

func (l *LambdaServer) ListTags(
	ctx context.Context,
	input *lambda.ListTagsInput,
	opts ...func(*lambda.Options),
) (*lambda.ListTagsOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, err := l.byARN(*input.Resource)
	if err != nil {
		return nil, err
	}
	return &lambda.ListTagsOutput{Tags: fn.tags}, nil
}

func (l *LambdaServer) TagResource(
	ctx context.Context,
	input *lambda.TagResourceInput,
	opts ...func(*lambda.Options),
) (*lambda.TagResourceOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.TagResourceCalls++
	fn, err := l.byARN(*input.Resource)
	if err != nil {
		return nil, err
	}
	if fn.tags == nil {
		fn.tags = make(map[string]string)
	}
	for key, value := range input.Tags {
		fn.tags[key] = value
	}
	return &lambda.TagResourceOutput{}, nil
}

func (l *LambdaServer) UntagResource(
	ctx context.Context,
	input *lambda.UntagResourceInput,
	opts ...func(*lambda.Options),
) (*lambda.UntagResourceOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.UntagResourceCalls++
	fn, err := l.byARN(*input.Resource)
	if err != nil {
		return nil, err
	}
	for _, key := range input.TagKeys {
		delete(fn.tags, key)
	}
	return &lambda.UntagResourceOutput{}, nil
}

func (l *LambdaServer) AddPermission(
	ctx context.Context,
	input *lambda.AddPermissionInput,
	opts ...func(*lambda.Options),
) (*lambda.AddPermissionOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.AddPermissionCalls++
	fn, exists := l.functions[*input.FunctionName]
	if !exists {
		return nil, apiError("ResourceNotFoundException", "function %s not found", *input.FunctionName)
	}
	for _, granted := range fn.permissions {
		if granted.sid == *input.StatementId {
			return nil, apiError("ResourceConflictException", "statement %s already exists", *input.StatementId)
		}
	}
	fn.permissions = append(fn.permissions, permission{
		sid:       aws.ToString(input.StatementId),
		action:    aws.ToString(input.Action),
		principal: aws.ToString(input.Principal),
		sourceARN: aws.ToString(input.SourceArn),
	})
	return &lambda.AddPermissionOutput{}, nil
}

func (l *LambdaServer) GetPolicy(
	ctx context.Context,
	input *lambda.GetPolicyInput,
	opts ...func(*lambda.Options),
) (*lambda.GetPolicyOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, exists := l.functions[*input.FunctionName]
	if !exists {
		return nil, apiError("ResourceNotFoundException", "function %s not found", *input.FunctionName)
	}
	if len(fn.permissions) == 0 {
		return nil, apiError("ResourceNotFoundException", "function %s has no policy", *input.FunctionName)
	}

	statements := make([]map[string]any, 0, len(fn.permissions))
	for _, granted := range fn.permissions {
		statements = append(statements, map[string]any{
			"Sid":       granted.sid,
			"Effect":    "Allow",
			"Action":    granted.action,
			"Principal": map[string]string{"Service": granted.principal},
			"Resource":  fn.arn,
			"Condition": map[string]any{
				"ArnLike": map[string]string{"AWS:SourceArn": granted.sourceARN},
			},
		})
	}
	document, err := json.Marshal(map[string]any{
		"Version":   "2012-10-17",
		"Id":        "default",
		"Statement": statements,
	})
	if err != nil {
		return nil, err
	}
	return &lambda.GetPolicyOutput{Policy: aws.String(string(document))}, nil
}
