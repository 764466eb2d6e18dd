// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/juju/collections/set"
)

// IAMServer implements an identity service simulator for use in
// testing.
type IAMServer struct {
	mu sync.Mutex

	roles            map[string]*types.Role
	roleInlinePolicy map[string]map[string]string
}

func NewIAMServer() *IAMServer {
	srv := &IAMServer{}
	srv.Reset()
	return srv
}

func (i *IAMServer) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.roles = make(map[string]*types.Role)
	i.roleInlinePolicy = make(map[string]map[string]string)
}

// InlinePolicy returns the stored inline policy document, for test
// assertions.
func (i *IAMServer) InlinePolicy(roleName, policyName string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	document, ok := i.roleInlinePolicy[roleName][policyName]
	return document, ok
}

func (i *IAMServer) CreateRole(
	ctx context.Context,
	input *iam.CreateRoleInput,
	opts ...func(*iam.Options),
) (*iam.CreateRoleOutput, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if role, exists := i.roles[*input.RoleName]; exists {
		return &iam.CreateRoleOutput{
				Role: role,
			}, &types.EntityAlreadyExistsException{
				Message: aws.String(fmt.Sprintf("role %s", *input.RoleName)),
			}
	}

	createDate := time.Now()
	i.roles[*input.RoleName] = &types.Role{
		Arn:                      aws.String(fmt.Sprintf("arn:aws:iam::123456789012:role/%s", *input.RoleName)),
		CreateDate:               &createDate,
		RoleName:                 input.RoleName,
		AssumeRolePolicyDocument: input.AssumeRolePolicyDocument,
		Description:              input.Description,
		Path:                     input.Path,
		Tags:                     input.Tags,
	}
	i.roleInlinePolicy[*input.RoleName] = make(map[string]string)

	return &iam.CreateRoleOutput{
		Role: i.roles[*input.RoleName],
	}, nil
}

func (i *IAMServer) GetRole(
	ctx context.Context,
	input *iam.GetRoleInput,
	opts ...func(*iam.Options),
) (*iam.GetRoleOutput, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	role, exists := i.roles[*input.RoleName]
	if !exists {
		return nil, apiError("NoSuchEntity", "role %s not found", *input.RoleName)
	}
	return &iam.GetRoleOutput{
		Role: role,
	}, nil
}

func (i *IAMServer) PutRolePolicy(
	ctx context.Context,
	input *iam.PutRolePolicyInput,
	opts ...func(*iam.Options),
) (*iam.PutRolePolicyOutput, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, exists := i.roles[*input.RoleName]; !exists {
		return nil, apiError("NoSuchEntity", "role %s not found", *input.RoleName)
	}
	i.roleInlinePolicy[*input.RoleName][*input.PolicyName] = *input.PolicyDocument
	return &iam.PutRolePolicyOutput{}, nil
}

func (i *IAMServer) DeleteRolePolicy(
	ctx context.Context,
	input *iam.DeleteRolePolicyInput,
	opts ...func(*iam.Options),
) (*iam.DeleteRolePolicyOutput, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	policies, exists := i.roleInlinePolicy[*input.RoleName]
	if !exists {
		return nil, apiError("NoSuchEntity", "role %s not found", *input.RoleName)
	}
	if _, exists := policies[*input.PolicyName]; !exists {
		return nil, apiError("NoSuchEntity", "role %s has no policy %s", *input.RoleName, *input.PolicyName)
	}
	delete(policies, *input.PolicyName)
	return &iam.DeleteRolePolicyOutput{}, nil
}

func (i *IAMServer) ListRolePolicies(
	ctx context.Context,
	input *iam.ListRolePoliciesInput,
	opts ...func(*iam.Options),
) (*iam.ListRolePoliciesOutput, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	policies, exists := i.roleInlinePolicy[*input.RoleName]
	if !exists {
		return nil, apiError("NoSuchEntity", "role %s not found", *input.RoleName)
	}
	names := set.NewStrings()
	for name := range policies {
		names.Add(name)
	}
	return &iam.ListRolePoliciesOutput{
		PolicyNames: names.SortedValues(),
	}, nil
}

func (i *IAMServer) DeleteRole(
	ctx context.Context,
	input *iam.DeleteRoleInput,
	opts ...func(*iam.Options),
) (*iam.DeleteRoleOutput, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, exists := i.roles[*input.RoleName]; !exists {
		return nil, apiError("NoSuchEntity", "role %s not found", *input.RoleName)
	}
	if len(i.roleInlinePolicy[*input.RoleName]) > 0 {
		return nil, apiError("DeleteConflict", "role %s still has inline policies", *input.RoleName)
	}
	delete(i.roleInlinePolicy, *input.RoleName)
	delete(i.roles, *input.RoleName)
	return &iam.DeleteRoleOutput{}, nil
}
