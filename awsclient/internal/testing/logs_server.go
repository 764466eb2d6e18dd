// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// LogsServer implements a log service simulator for use in testing.
type LogsServer struct {
	mu sync.Mutex

	groups map[string][]types.FilteredLogEvent

	// PageSize bounds FilterLogEvents pages so pagination is
	// exercised. Zero means everything in one page.
	PageSize int
}

func NewLogsServer() *LogsServer {
	srv := &LogsServer{}
	srv.Reset()
	return srv
}

func (s *LogsServer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = make(map[string][]types.FilteredLogEvent)
}

// AddEvent appends an event to a log group.
func (s *LogsServer) AddEvent(group, stream, message string, timestampMillis int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group] = append(s.groups[group], types.FilteredLogEvent{
		EventId:       aws.String(strconv.Itoa(len(s.groups[group]))),
		LogStreamName: aws.String(stream),
		Message:       aws.String(message),
		Timestamp:     aws.Int64(timestampMillis),
		IngestionTime: aws.Int64(timestampMillis),
	})
}

func (s *LogsServer) FilterLogEvents(
	ctx context.Context,
	input *cloudwatchlogs.FilterLogEventsInput,
	opts ...func(*cloudwatchlogs.Options),
) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, exists := s.groups[*input.LogGroupName]
	if !exists {
		return nil, apiError("ResourceNotFoundException", "log group %s not found", *input.LogGroupName)
	}

	start := 0
	if input.NextToken != nil {
		var err error
		if start, err = strconv.Atoi(*input.NextToken); err != nil {
			return nil, apiError("InvalidParameterException", "bad token %s", *input.NextToken)
		}
	}
	end := len(events)
	if s.PageSize > 0 && start+s.PageSize < end {
		end = start + s.PageSize
	}

	out := &cloudwatchlogs.FilterLogEventsOutput{
		Events: events[start:end],
	}
	if end < len(events) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}
