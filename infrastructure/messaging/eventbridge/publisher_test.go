package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onokeee/mindmap/domain/events"
)

type mockPutEvents struct {
	mock.Mock
}

func (m *mockPutEvents) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.PutEventsOutput), args.Error(1)
}

func savedEvents(n int) []events.DomainEvent {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewMindMapSaved("map-id", "alice", "Plans", 3, i+1, i == 0, now)
	}
	return out
}

func newTestPublisher(client PutEventsAPI) *Publisher {
	p := NewPublisher(client, "bus", nil)
	p.backoff = time.Millisecond
	return p
}

func TestPublisher_BatchesOfTen(t *testing.T) {
	ctx := context.Background()
	client := new(mockPutEvents)
	p := newTestPublisher(client)

	var sizes []int
	client.On("PutEvents", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)

	require.NoError(t, p.Publish(ctx, savedEvents(23)...))
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublisher_EntryShape(t *testing.T) {
	ctx := context.Background()
	client := new(mockPutEvents)
	p := newTestPublisher(client)

	client.On("PutEvents", ctx, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		if len(in.Entries) != 1 {
			return false
		}
		e := in.Entries[0]
		var detail map[string]interface{}
		if err := json.Unmarshal([]byte(aws.ToString(e.Detail)), &detail); err != nil {
			return false
		}
		return aws.ToString(e.EventBusName) == "bus" &&
			aws.ToString(e.Source) == events.SourceBackend &&
			aws.ToString(e.DetailType) == "mindmap.saved" &&
			detail["aggregate_id"] == "map-id" &&
			detail["name"] == "Plans"
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	require.NoError(t, p.Publish(ctx, savedEvents(1)...))
	client.AssertExpectations(t)
}

func TestPublisher_NothingToSend(t *testing.T) {
	client := new(mockPutEvents)
	require.NoError(t, newTestPublisher(client).Publish(context.Background()))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}

func TestPublisher_RetriesOnlyFailedEntries(t *testing.T) {
	ctx := context.Background()
	client := new(mockPutEvents)
	p := newTestPublisher(client)

	client.On("PutEvents", ctx, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 3
	})).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{EventId: aws.String("1")},
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("try again")},
			{EventId: aws.String("3")},
		},
	}, nil).Once()
	client.On("PutEvents", ctx, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 1
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	require.NoError(t, p.Publish(ctx, savedEvents(3)...))
	client.AssertExpectations(t)
}

func TestPublisher_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{name: "throttled then exhausted", err: &smithy.GenericAPIError{Code: "ThrottlingException"}, wantCalls: 3},
		{name: "server fault", err: &smithy.GenericAPIError{Code: "Boom", Fault: smithy.FaultServer}, wantCalls: 3},
		{name: "client fault not retried", err: &smithy.GenericAPIError{Code: "AccessDeniedException", Fault: smithy.FaultClient}, wantCalls: 1},
		{name: "transport error not retried", err: errors.New("dial tcp: refused"), wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client := new(mockPutEvents)
			p := newTestPublisher(client)
			client.On("PutEvents", ctx, mock.Anything).Return(nil, tt.err)

			err := p.Publish(ctx, savedEvents(2)...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			client.AssertNumberOfCalls(t, "PutEvents", tt.wantCalls)
		})
	}
}

func TestPublisher_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := new(mockPutEvents)
	p := newTestPublisher(client)
	p.backoff = time.Hour

	client.On("PutEvents", ctx, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, &smithy.GenericAPIError{Code: "ThrottlingException"})

	err := p.Publish(ctx, savedEvents(1)...)
	assert.ErrorIs(t, err, context.Canceled)
}
