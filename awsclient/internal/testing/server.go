// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testing implements in-memory simulators for the control
// plane services the client talks to, for use in tests.
package testing

import (
	"fmt"

	"github.com/aws/smithy-go"
)

func apiError(code, format string, args ...interface{}) error {
	return &smithy.GenericAPIError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
