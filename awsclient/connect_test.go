// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type connectSuite struct{}

var _ = gc.Suite(&connectSuite{})

func (s *connectSuite) TestValidate(c *gc.C) {
	err := ConnectConfig{
		Region:    "us-west-2",
		AccessKey: "key",
		SecretKey: "secret",
	}.Validate()
	c.Check(err, jc.ErrorIsNil)
}

func (s *connectSuite) TestValidateDefaultCredentialChain(c *gc.C) {
	err := ConnectConfig{Region: "us-west-2"}.Validate()
	c.Check(err, jc.ErrorIsNil)
}

func (s *connectSuite) TestValidateEmptyRegion(c *gc.C) {
	err := ConnectConfig{}.Validate()
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *connectSuite) TestValidateAccessKeyWithoutSecret(c *gc.C) {
	err := ConnectConfig{Region: "us-west-2", AccessKey: "key"}.Validate()
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *connectSuite) TestRegionExposed(c *gc.C) {
	client := NewClient(ClientConfig{Region: "us-west-2"})
	c.Check(client.Region(), gc.Equals, "us-west-2")
}
