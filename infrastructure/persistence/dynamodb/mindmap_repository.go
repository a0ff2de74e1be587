package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/infrastructure/persistence"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

const (
	entityMindMap = "MINDMAP"
	entityMapName = "MINDMAP_NAME"

	mapSKPrefix  = "MAP#"
	nameSKPrefix = "MAPNAME#"

	// positions inside the save transaction, used to read cancellation reasons
	txMapItem  = 0
	txNameItem = 1
)

// DBClient is the subset of the DynamoDB API the repository uses
type DBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// MindMapRepository stores maps in a single DynamoDB table. Each map is one
// item under the owner's partition; a second item per map reserves its name
// so names stay unique per user.
type MindMapRepository struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

var _ ports.MindMapRepository = (*MindMapRepository)(nil)

// NewMindMapRepository creates a new MindMapRepository
func NewMindMapRepository(client DBClient, tableName string, logger *zap.Logger) *MindMapRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MindMapRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// mapItem represents the DynamoDB item structure for a map
type mapItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	MapID      string `dynamodbav:"MapID"`
	UserID     string `dynamodbav:"UserID"`
	Name       string `dynamodbav:"Name"`
	Data       string `dynamodbav:"Data"`
	NodeCount  int    `dynamodbav:"NodeCount"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	Version    int    `dynamodbav:"Version"`
}

// nameItem reserves a map name for one user
type nameItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	MapID      string `dynamodbav:"MapID"`
}

// summaryItem is the projection read by ListByUser
type summaryItem struct {
	MapID     string `dynamodbav:"MapID"`
	Name      string `dynamodbav:"Name"`
	NodeCount int    `dynamodbav:"NodeCount"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

func userPK(userID string) string { return "USER#" + userID }

func mapSK(mapID string) string { return mapSKPrefix + mapID }

func nameSK(name string) string { return nameSKPrefix + name }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func toItem(rec persistence.Record) mapItem {
	return mapItem{
		PK:         userPK(rec.UserID),
		SK:         mapSK(rec.ID),
		EntityType: entityMindMap,
		MapID:      rec.ID,
		UserID:     rec.UserID,
		Name:       rec.Name,
		Data:       string(rec.Data),
		NodeCount:  rec.NodeCount,
		CreatedAt:  formatTime(rec.CreatedAt),
		UpdatedAt:  formatTime(rec.UpdatedAt),
		Version:    rec.Version,
	}
}

func (it mapItem) toRecord() (persistence.Record, error) {
	created, err := parseTime(it.CreatedAt)
	if err != nil {
		return persistence.Record{}, fmt.Errorf("invalid CreatedAt on map %s: %w", it.MapID, err)
	}
	updated, err := parseTime(it.UpdatedAt)
	if err != nil {
		return persistence.Record{}, fmt.Errorf("invalid UpdatedAt on map %s: %w", it.MapID, err)
	}
	return persistence.Record{
		ID:        it.MapID,
		UserID:    it.UserID,
		Name:      it.Name,
		Data:      []byte(it.Data),
		NodeCount: it.NodeCount,
		CreatedAt: created,
		UpdatedAt: updated,
		Version:   it.Version,
	}, nil
}

// Save persists a map and its name reservation in one transaction
func (r *MindMapRepository) Save(ctx context.Context, m *aggregates.MindMap) error {
	rec, err := persistence.ToRecord(m)
	if err != nil {
		return err
	}

	existing, err := r.load(ctx, rec.UserID, rec.ID)
	if err != nil {
		return err
	}
	switch {
	case existing == nil && rec.Version != 1:
		return pkgerrors.NewNotFoundError("mindmap")
	case existing != nil:
		rec.CreatedAt, err = parseTime(existing.CreatedAt)
		if err != nil {
			return pkgerrors.NewDatabaseError("save", err)
		}
	}

	items, err := r.saveTransaction(rec, existing)
	if err != nil {
		return pkgerrors.NewDatabaseError("save", err)
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		r.logger.Warn("Failed to save map to DynamoDB",
			zap.String("mapID", rec.ID),
			zap.String("userID", rec.UserID),
			zap.Error(err),
		)
		return translateSaveError(rec, err)
	}

	r.logger.Debug("Saved map to DynamoDB",
		zap.String("mapID", rec.ID),
		zap.String("userID", rec.UserID),
		zap.Int("version", rec.Version),
	)
	return nil
}

func (r *MindMapRepository) saveTransaction(rec persistence.Record, existing *mapItem) ([]types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal map: %w", err)
	}

	var mapCond expression.ConditionBuilder
	if existing == nil {
		mapCond = expression.Name("PK").AttributeNotExists()
	} else {
		mapCond = expression.Name("Version").Equal(expression.Value(rec.Version - 1))
	}
	mapExpr, err := expression.NewBuilder().WithCondition(mapCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	nameAV, err := attributevalue.MarshalMap(nameItem{
		PK:         userPK(rec.UserID),
		SK:         nameSK(rec.Name),
		EntityType: entityMapName,
		MapID:      rec.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal name reservation: %w", err)
	}
	nameCond := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("MapID").Equal(expression.Value(rec.ID)))
	nameExpr, err := expression.NewBuilder().WithCondition(nameCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items := []types.TransactWriteItem{
		txMapItem: {Put: &types.Put{
			TableName:                 aws.String(r.tableName),
			Item:                      av,
			ConditionExpression:       mapExpr.Condition(),
			ExpressionAttributeNames:  mapExpr.Names(),
			ExpressionAttributeValues: mapExpr.Values(),
		}},
		txNameItem: {Put: &types.Put{
			TableName:                 aws.String(r.tableName),
			Item:                      nameAV,
			ConditionExpression:       nameExpr.Condition(),
			ExpressionAttributeNames:  nameExpr.Names(),
			ExpressionAttributeValues: nameExpr.Values(),
		}},
	}

	if existing != nil && existing.Name != rec.Name {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key:       keyOf(userPK(rec.UserID), nameSK(existing.Name)),
		}})
	}
	return items, nil
}

// GetByID retrieves one of the user's maps
func (r *MindMapRepository) GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error) {
	item, err := r.load(ctx, userID, id.String())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, pkgerrors.NewNotFoundError("mindmap")
	}
	rec, err := item.toRecord()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get", err)
	}
	return rec.ToMindMap()
}

func (r *MindMapRepository) load(ctx context.Context, userID, mapID string) (*mapItem, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            keyOf(userPK(userID), mapSK(mapID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, translateError("get", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item mapItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("get", fmt.Errorf("failed to unmarshal map: %w", err))
	}
	return &item, nil
}

// ListByUser returns the user's map summaries, most recently updated first
func (r *MindMapRepository) ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith(mapSKPrefix))
	proj := expression.NamesList(
		expression.Name("MapID"),
		expression.Name("Name"),
		expression.Name("NodeCount"),
		expression.Name("UpdatedAt"),
	)
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithProjection(proj).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	summaries := make([]aggregates.MindMapSummary, 0)
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, translateError("list", err)
		}

		var page []summaryItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, pkgerrors.NewDatabaseError("list", err)
		}
		for _, it := range page {
			updated, err := parseTime(it.UpdatedAt)
			if err != nil {
				r.logger.Warn("Skipping map with unreadable timestamp", zap.String("mapID", it.MapID))
				continue
			}
			summaries = append(summaries, aggregates.MindMapSummary{
				ID:        it.MapID,
				Name:      it.Name,
				NodeCount: it.NodeCount,
				UpdatedAt: updated,
			})
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	persistence.SortSummaries(summaries)
	return summaries, nil
}

// Delete removes a map and releases its name
func (r *MindMapRepository) Delete(ctx context.Context, userID string, id valueobjects.MapID) error {
	item, err := r.load(ctx, userID, id.String())
	if err != nil {
		return err
	}
	if item == nil {
		return pkgerrors.NewNotFoundError("mindmap")
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return pkgerrors.NewDatabaseError("delete", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:                aws.String(r.tableName),
				Key:                      keyOf(userPK(userID), mapSK(id.String())),
				ConditionExpression:      cond.Condition(),
				ExpressionAttributeNames: cond.Names(),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       keyOf(userPK(userID), nameSK(item.Name)),
			}},
		},
	})
	if err != nil {
		if failedAt(err, txMapItem) {
			return pkgerrors.NewNotFoundError("mindmap")
		}
		return translateError("delete", err)
	}
	return nil
}

func translateSaveError(rec persistence.Record, err error) error {
	switch {
	case failedAt(err, txMapItem):
		return pkgerrors.NewConflictError(
			fmt.Sprintf("map %s was modified concurrently", rec.ID))
	case failedAt(err, txNameItem):
		return pkgerrors.NewConflictError(
			fmt.Sprintf("a map named %q already exists", rec.Name))
	}
	return translateError("save", err)
}

// failedAt reports whether a cancelled transaction failed its condition
// check on the item at index.
func failedAt(err error, index int) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) || index >= len(canceled.CancellationReasons) {
		return false
	}
	return aws.ToString(canceled.CancellationReasons[index].Code) == "ConditionalCheckFailed"
}

func translateError(operation string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ProvisionedThroughputExceededException", "RequestLimitExceeded":
			return pkgerrors.NewUnavailableError("dynamodb").WithCause(err)
		case "ConditionalCheckFailedException":
			return pkgerrors.NewConflictError(apiErr.ErrorMessage()).WithCause(err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return pkgerrors.NewDatabaseError(operation, err)
}
