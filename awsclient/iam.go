// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/juju/errors"
)

// RoleARN returns the ARN of the named role, or a not found error if
// the identity service has no such entity.
func (c *Client) RoleARN(ctx context.Context, name string) (string, error) {
	role, err := c.roles.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(name),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return "", errors.NotFoundf("role %q", name)
		}
		return "", errors.Trace(err)
	}
	return aws.ToString(role.Role.Arn), nil
}

// CreateRole creates a role with the given trust document, attaches
// the policy document inline under the role's own name, and returns
// the new role's ARN.
func (c *Client) CreateRole(ctx context.Context, name string, trustPolicy, policy map[string]any) (string, error) {
	trust, err := marshalIndentedJSON(trustPolicy)
	if err != nil {
		return "", errors.Trace(err)
	}
	created, err := c.roles.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(string(trust)),
	})
	if err != nil {
		return "", errors.Annotatef(err, "creating role %q", name)
	}
	if err := c.PutRolePolicy(ctx, name, name, policy); err != nil {
		return "", errors.Trace(err)
	}
	return aws.ToString(created.Role.Arn), nil
}

// PutRolePolicy writes an inline policy document on the named role.
func (c *Client) PutRolePolicy(ctx context.Context, roleName, policyName string, policy map[string]any) error {
	document, err := marshalIndentedJSON(policy)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = c.roles.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(string(document)),
	})
	return errors.Annotatef(err, "writing policy %q on role %q", policyName, roleName)
}

// DeleteRolePolicy removes an inline policy from the named role.
func (c *Client) DeleteRolePolicy(ctx context.Context, roleName, policyName string) error {
	_, err := c.roles.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(policyName),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return errors.NotFoundf("policy %q on role %q", policyName, roleName)
		}
		return errors.Trace(err)
	}
	return nil
}

// DeleteRole removes the named role. Inline policies block role
// deletion, so they are deleted first.
func (c *Client) DeleteRole(ctx context.Context, name string) error {
	var marker *string
	for {
		policies, err := c.roles.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{
			RoleName: aws.String(name),
			Marker:   marker,
		})
		if err != nil {
			if IsNotFoundFault(err) {
				return errors.NotFoundf("role %q", name)
			}
			return errors.Trace(err)
		}
		for _, policyName := range policies.PolicyNames {
			if err := c.DeleteRolePolicy(ctx, name, policyName); err != nil {
				return errors.Trace(err)
			}
		}
		if !policies.IsTruncated {
			break
		}
		marker = policies.Marker
	}
	_, err := c.roles.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(name),
	})
	if err != nil {
		if IsNotFoundFault(err) {
			return errors.NotFoundf("role %q", name)
		}
		return errors.Trace(err)
	}
	return nil
}
