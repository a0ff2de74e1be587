package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onokeee/mindmap/domain/config"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/infrastructure/persistence"
	"github.com/onokeee/mindmap/internal/testutil/fixtures"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

type mockDBClient struct {
	mock.Mock
}

func (m *mockDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *mockDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.QueryOutput), args.Error(1)
}

func (m *mockDBClient) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.TransactWriteItemsOutput), args.Error(1)
}

const testTable = "mindmaps-test"

func storedItem(t *testing.T, m *aggregates.MindMap) map[string]types.AttributeValue {
	t.Helper()
	rec, err := persistence.ToRecord(m)
	require.NoError(t, err)
	av, err := attributevalue.MarshalMap(toItem(rec))
	require.NoError(t, err)
	return av
}

func keyFor(userID, mapID string) interface{} {
	return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		pk, _ := in.Key["PK"].(*types.AttributeValueMemberS)
		sk, _ := in.Key["SK"].(*types.AttributeValueMemberS)
		return aws.ToString(in.TableName) == testTable &&
			pk != nil && pk.Value == "USER#"+userID &&
			sk != nil && sk.Value == "MAP#"+mapID
	})
}

func canceledAt(index, total int) error {
	reasons := make([]types.CancellationReason, total)
	for i := range reasons {
		reasons[i].Code = aws.String("None")
	}
	reasons[index].Code = aws.String("ConditionalCheckFailed")
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: reasons,
	}
}

func TestMindMapRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	repo := NewMindMapRepository(client, testTable, nil)

	m := fixtures.NewMindMapBuilder().WithUserID("alice").WithName("Trip").WithVersion(3).MustBuild()
	client.On("GetItem", ctx, keyFor("alice", m.ID().String())).
		Return(&dynamodb.GetItemOutput{Item: storedItem(t, m)}, nil)

	got, err := repo.GetByID(ctx, "alice", m.ID())
	require.NoError(t, err)
	assert.Equal(t, m.ID(), got.ID())
	assert.Equal(t, "Trip", got.Name())
	assert.Equal(t, 3, got.Version())
	assert.Equal(t, m.Document().NodeCount(), got.Document().NodeCount())
	assert.True(t, m.UpdatedAt().Equal(got.UpdatedAt()))
}

func TestMindMapRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	repo := NewMindMapRepository(client, testTable, nil)

	id := valueobjects.NewMapID()
	client.On("GetItem", ctx, keyFor("bob", id.String())).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := repo.GetByID(ctx, "bob", id)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMindMapRepository_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "throttled",
			err:   &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
			check: func(err error) bool { return pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable) },
		},
		{
			name:  "capacity",
			err:   &types.ProvisionedThroughputExceededException{Message: aws.String("too much")},
			check: func(err error) bool { return pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable) },
		},
		{
			name:  "missing table",
			err:   &types.ResourceNotFoundException{Message: aws.String("no table")},
			check: func(err error) bool { return pkgerrors.IsType(err, pkgerrors.ErrorTypeDatabase) },
		},
		{
			name:  "cancelled",
			err:   context.Canceled,
			check: func(err error) bool { return errors.Is(err, context.Canceled) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client := new(mockDBClient)
			repo := NewMindMapRepository(client, testTable, nil)
			client.On("GetItem", ctx, mock.Anything).Return(nil, tt.err)

			_, err := repo.GetByID(ctx, "alice", valueobjects.NewMapID())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestMindMapRepository_SaveNew(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	repo := NewMindMapRepository(client, testTable, nil)

	m, err := aggregates.NewMindMap("alice", "Ideas", fixtures.SampleDocument(), config.DefaultDomainConfig())
	require.NoError(t, err)

	client.On("GetItem", ctx, keyFor("alice", m.ID().String())).Return(&dynamodb.GetItemOutput{}, nil)
	client.On("TransactWriteItems", ctx, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 {
			return false
		}
		put := in.TransactItems[txMapItem].Put
		name := in.TransactItems[txNameItem].Put
		if put == nil || name == nil || put.ConditionExpression == nil || name.ConditionExpression == nil {
			return false
		}
		var item mapItem
		if err := attributevalue.UnmarshalMap(put.Item, &item); err != nil {
			return false
		}
		var reservation nameItem
		if err := attributevalue.UnmarshalMap(name.Item, &reservation); err != nil {
			return false
		}
		return item.PK == "USER#alice" &&
			item.Name == "Ideas" &&
			item.NodeCount == 3 &&
			item.Version == 1 &&
			reservation.SK == "MAPNAME#Ideas" &&
			reservation.MapID == m.ID().String()
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	require.NoError(t, repo.Save(ctx, m))
	client.AssertExpectations(t)
}

func TestMindMapRepository_SaveRenameReleasesOldName(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	repo := NewMindMapRepository(client, testTable, nil)

	stored := fixtures.NewMindMapBuilder().WithUserID("alice").WithName("Old").MustBuild()
	client.On("GetItem", ctx, keyFor("alice", stored.ID().String())).
		Return(&dynamodb.GetItemOutput{Item: storedItem(t, stored)}, nil)

	require.NoError(t, stored.Overwrite("New", aggregates.NewDocument(), config.DefaultDomainConfig()))

	client.On("TransactWriteItems", ctx, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 3 || in.TransactItems[2].Delete == nil {
			return false
		}
		sk, _ := in.TransactItems[2].Delete.Key["SK"].(*types.AttributeValueMemberS)
		return sk != nil && sk.Value == "MAPNAME#Old"
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	require.NoError(t, repo.Save(ctx, stored))
	client.AssertExpectations(t)
}

func TestMindMapRepository_SaveConflicts(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{name: "name taken", err: canceledAt(txNameItem, 2), message: "already exists"},
		{name: "stale version", err: canceledAt(txMapItem, 2), message: "modified concurrently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client := new(mockDBClient)
			repo := NewMindMapRepository(client, testTable, nil)

			m := fixtures.NewMindMapBuilder().WithUserID("alice").MustBuild()
			client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)
			client.On("TransactWriteItems", ctx, mock.Anything).Return(nil, tt.err)

			err := repo.Save(ctx, m)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsConflict(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestMindMapRepository_SaveStaleAfterDelete(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	repo := NewMindMapRepository(client, testTable, nil)

	m := fixtures.NewMindMapBuilder().WithVersion(2).MustBuild()
	client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	err := repo.Save(ctx, m)
	assert.True(t, pkgerrors.IsNotFound(err))
	client.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
}

func TestMindMapRepository_ListByUserPaginates(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	repo := NewMindMapRepository(client, testTable, nil)

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	page := func(items ...summaryItem) []map[string]types.AttributeValue {
		out := make([]map[string]types.AttributeValue, 0, len(items))
		for _, it := range items {
			av, err := attributevalue.MarshalMap(it)
			require.NoError(t, err)
			out = append(out, av)
		}
		return out
	}
	lastKey := map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "USER#alice"}}

	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil && in.KeyConditionExpression != nil && in.ProjectionExpression != nil
	})).Return(&dynamodb.QueryOutput{
		Items:            page(summaryItem{MapID: "1", Name: "Old", NodeCount: 1, UpdatedAt: formatTime(base)}),
		LastEvaluatedKey: lastKey,
	}, nil).Once()
	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{
		Items: page(
			summaryItem{MapID: "2", Name: "New", NodeCount: 4, UpdatedAt: formatTime(base.Add(time.Hour))},
			summaryItem{MapID: "3", Name: "Broken", UpdatedAt: "yesterday"},
		),
	}, nil).Once()

	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "New", list[0].Name)
	assert.Equal(t, 4, list[0].NodeCount)
	assert.Equal(t, "Old", list[1].Name)
	client.AssertExpectations(t)
}

func TestMindMapRepository_Delete(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	repo := NewMindMapRepository(client, testTable, nil)

	m := fixtures.NewMindMapBuilder().WithUserID("alice").WithName("Gone").MustBuild()
	client.On("GetItem", ctx, keyFor("alice", m.ID().String())).
		Return(&dynamodb.GetItemOutput{Item: storedItem(t, m)}, nil)
	client.On("TransactWriteItems", ctx, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 || in.TransactItems[1].Delete == nil {
			return false
		}
		sk, _ := in.TransactItems[1].Delete.Key["SK"].(*types.AttributeValueMemberS)
		return sk != nil && sk.Value == "MAPNAME#Gone"
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	require.NoError(t, repo.Delete(ctx, "alice", m.ID()))
	client.AssertExpectations(t)
}

func TestMindMapRepository_DeleteMissing(t *testing.T) {
	ctx := context.Background()

	t.Run("absent before delete", func(t *testing.T) {
		client := new(mockDBClient)
		repo := NewMindMapRepository(client, testTable, nil)
		client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		err := repo.Delete(ctx, "alice", valueobjects.NewMapID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("removed concurrently", func(t *testing.T) {
		client := new(mockDBClient)
		repo := NewMindMapRepository(client, testTable, nil)
		m := fixtures.NewMindMapBuilder().WithUserID("alice").MustBuild()
		client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{Item: storedItem(t, m)}, nil)
		client.On("TransactWriteItems", ctx, mock.Anything).Return(nil, canceledAt(txMapItem, 2))

		err := repo.Delete(ctx, "alice", m.ID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}
