// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type policySuite struct{}

var _ = gc.Suite(&policySuite{})

const grantedPolicy = `{
  "Id": "default",
  "Version": "2012-10-17",
  "Statement": [{
    "Action": "lambda:InvokeFunction",
    "Condition": {
      "ArnLike": {
        "AWS:SourceArn": "arn:aws:execute-api:us-west-2:123:rest-api-id/*"
      }
    },
    "Effect": "Allow",
    "Principal": {"Service": "apigateway.amazonaws.com"},
    "Resource": "arn:aws:lambda:us-west-2:123:function:name",
    "Sid": "e4755709-067e-4254-b6ec-e7f9639e6f7b"
  }]
}`

func (s *policySuite) TestParseEmptyDocument(c *gc.C) {
	doc, err := parsePolicyDocument("")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(doc.Statement, gc.HasLen, 0)
}

func (s *policySuite) TestParseEmptyObject(c *gc.C) {
	doc, err := parsePolicyDocument("{}")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(doc.Statement, gc.HasLen, 0)
}

func (s *policySuite) TestParseBadDocument(c *gc.C) {
	_, err := parsePolicyDocument("{not json")
	c.Assert(err, gc.ErrorMatches, "parsing policy document: .*")
}

func (s *policySuite) TestGrantMatch(c *gc.C) {
	doc, err := parsePolicyDocument(grantedPolicy)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(doc.grantsSourceARN("arn:aws:execute-api:us-west-2:123:rest-api-id/*"), jc.IsTrue)
}

func (s *policySuite) TestGrantMismatch(c *gc.C) {
	doc, err := parsePolicyDocument(grantedPolicy)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(doc.grantsSourceARN("arn:aws:execute-api:us-west-2:123:other-api/*"), jc.IsFalse)
}

func (s *policySuite) TestGrantNoCondition(c *gc.C) {
	doc, err := parsePolicyDocument(`{"Statement": [{"Sid": "x", "Effect": "Allow"}]}`)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(doc.grantsSourceARN("arn:aws:execute-api:us-west-2:123:rest-api-id/*"), jc.IsFalse)
}
