// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"github.com/aws/smithy-go"
	"github.com/juju/errors"
)

// Fault codes returned by the provider that the client reacts to.
// Each service spells "not found" differently.
const (
	lambdaNotFoundCode  = "ResourceNotFoundException"
	gatewayNotFoundCode = "NotFoundException"
	iamNotFoundCode     = "NoSuchEntity"

	// rolePropagationCode is returned by CreateFunction while a freshly
	// created role has not yet propagated to the function service.
	rolePropagationCode = "InvalidParameterValueException"
)

// IsNotFoundFault reports whether err is a provider fault indicating
// the addressed resource does not exist. It also passes through errors
// already translated to the uniform not found error.
func IsNotFoundFault(err error) bool {
	if err == nil {
		return false
	}
	if hasFaultCode(err, lambdaNotFoundCode, gatewayNotFoundCode, iamNotFoundCode) {
		return true
	}
	return errors.Is(err, errors.NotFound)
}

func isRolePropagationFault(err error) bool {
	return hasFaultCode(err, rolePropagationCode)
}

func hasFaultCode(err error, codes ...string) bool {
	var fault smithy.APIError
	if !errors.As(err, &fault) {
		return false
	}
	for _, code := range codes {
		if fault.ErrorCode() == code {
			return true
		}
	}
	return false
}
