// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"context"
	"time"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	clienttesting "github.com/juju/serverless/awsclient/internal/testing"
)

type logsSuite struct {
	server *clienttesting.LogsServer
	client *Client
}

var _ = gc.Suite(&logsSuite{})

func (s *logsSuite) SetUpTest(c *gc.C) {
	s.server = clienttesting.NewLogsServer()
	s.client = NewClient(ClientConfig{
		Region: "us-west-2",
		Logs:   s.server,
	})
}

func (s *logsSuite) collect(c *gc.C, group string) []LogEvent {
	var events []LogEvent
	for event, err := range s.client.LogEvents(context.Background(), group) {
		c.Assert(err, jc.ErrorIsNil)
		events = append(events, event)
	}
	return events
}

func (s *logsSuite) TestLogEvents(c *gc.C) {
	s.server.AddEvent("/aws/lambda/myapp", "stream-a", "hello", 0)

	events := s.collect(c, "/aws/lambda/myapp")
	c.Assert(events, gc.HasLen, 1)
	c.Check(events[0].LogStreamName, gc.Equals, "stream-a")
	c.Check(events[0].Message, gc.Equals, "hello")
	// Provider epoch milliseconds become UTC times.
	c.Check(events[0].Timestamp, gc.Equals, time.Unix(0, 0).UTC())
	c.Check(events[0].IngestionTime, gc.Equals, time.Unix(0, 0).UTC())
}

func (s *logsSuite) TestLogEventsFollowsPagination(c *gc.C) {
	s.server.PageSize = 2
	for i := int64(0); i < 5; i++ {
		s.server.AddEvent("/aws/lambda/myapp", "stream-a", "msg", i*1000)
	}

	events := s.collect(c, "/aws/lambda/myapp")
	c.Assert(events, gc.HasLen, 5)
	c.Check(events[4].Timestamp, gc.Equals, time.Unix(4, 0).UTC())
}

func (s *logsSuite) TestLogEventsConsumerStops(c *gc.C) {
	s.server.PageSize = 1
	for i := int64(0); i < 5; i++ {
		s.server.AddEvent("/aws/lambda/myapp", "stream-a", "msg", i)
	}

	var count int
	for _, err := range s.client.LogEvents(context.Background(), "/aws/lambda/myapp") {
		c.Assert(err, jc.ErrorIsNil)
		count++
		if count == 2 {
			break
		}
	}
	c.Check(count, gc.Equals, 2)
}

func (s *logsSuite) TestLogEventsGroupMissing(c *gc.C) {
	var calls int
	for _, err := range s.client.LogEvents(context.Background(), "missing") {
		calls++
		c.Check(err, gc.ErrorMatches, `fetching events for log group "missing": .*`)
	}
	c.Check(calls, gc.Equals, 1)
}
