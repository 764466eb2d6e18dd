// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"context"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/juju/errors"
)

// LogEvent is one event from a function's log group. The provider's
// epoch-millisecond timestamps are converted to UTC times.
type LogEvent struct {
	LogStreamName string
	Timestamp     time.Time
	Message       string
	IngestionTime time.Time
	EventID       string
}

// LogEvents returns the events of a log group, interleaved across its
// streams, following provider pagination until the group is exhausted
// or the consumer stops.
func (c *Client) LogEvents(ctx context.Context, group string) iter.Seq2[LogEvent, error] {
	return func(yield func(LogEvent, error) bool) {
		var token *string
		for {
			page, err := c.logs.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
				LogGroupName: aws.String(group),
				Interleaved:  aws.Bool(true),
				NextToken:    token,
			})
			if err != nil {
				yield(LogEvent{}, errors.Annotatef(err, "fetching events for log group %q", group))
				return
			}
			for _, event := range page.Events {
				out := LogEvent{
					LogStreamName: aws.ToString(event.LogStreamName),
					Timestamp:     millisToTime(event.Timestamp),
					Message:       aws.ToString(event.Message),
					IngestionTime: millisToTime(event.IngestionTime),
					EventID:       aws.ToString(event.EventId),
				}
				if !yield(out, nil) {
					return
				}
			}
			if page.NextToken == nil {
				return
			}
			token = page.NextToken
		}
	}
}

func millisToTime(millis *int64) time.Time {
	return time.UnixMilli(aws.ToInt64(millis)).UTC()
}
