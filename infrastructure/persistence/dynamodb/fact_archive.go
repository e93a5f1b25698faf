// Package dynamodb provides a FactArchive replica of the history ledger
// in DynamoDB. The archive serves global audit queries; the transactional
// store remains the source of truth.
package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/domain/history"
)

const classIndexName = "GSI2"

// FactArchive implements ports.FactArchive over a single DynamoDB table.
// Key layout:
//
//	PK   = FACTS#<entity_id>
//	SK   = FACT#<timestamp>#<seq>
//	GSI2 = CLASS#<entity_class> / FACT#<timestamp>#<seq>
type FactArchive struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.FactArchive = (*FactArchive)(nil)

// FactRecord is the DynamoDB shape of one archived fact
type FactRecord struct {
	PK          string              `dynamodbav:"PK"`
	SK          string              `dynamodbav:"SK"`
	Seq         int64               `dynamodbav:"Seq"`
	EntityID    string              `dynamodbav:"EntityID"`
	EntityClass string              `dynamodbav:"EntityClass"`
	Version     int                 `dynamodbav:"Version"`
	Timestamp   string              `dynamodbav:"Timestamp"`
	EventType   string              `dynamodbav:"EventType"`
	ActorID     string              `dynamodbav:"ActorID"`
	SessionID   string              `dynamodbav:"SessionID"`
	Fields      map[string]string   `dynamodbav:"Fields,omitempty"`
	AddedLinks  map[string][]string `dynamodbav:"AddedLinks,omitempty"`
	Removed     map[string][]string `dynamodbav:"RemovedLinks,omitempty"`

	GSI2PK string `dynamodbav:"GSI2PK"`
	GSI2SK string `dynamodbav:"GSI2SK"`
}

// NewFactArchive creates a fact archive over the given table
func NewFactArchive(client *dynamodb.Client, tableName string, logger *zap.Logger) *FactArchive {
	return &FactArchive{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Archive writes committed facts to the table in batches of 25, the
// BatchWriteItem limit
func (a *FactArchive) Archive(ctx context.Context, facts []*history.Fact) error {
	if len(facts) == 0 {
		return nil
	}

	writes := make([]types.WriteRequest, 0, len(facts))
	for _, f := range facts {
		item, err := attributevalue.MarshalMap(factToRecord(f))
		if err != nil {
			return fmt.Errorf("marshal fact record: %w", err)
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writes); i += 25 {
		end := i + 25
		if end > len(writes) {
			end = len(writes)
		}
		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				a.tableName: writes[i:end],
			},
		}
		result, err := a.client.BatchWriteItem(ctx, input)
		if err != nil {
			return fmt.Errorf("write fact batch: %w", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return fmt.Errorf("failed to archive %d facts", len(result.UnprocessedItems[a.tableName]))
		}
	}

	a.logger.Debug("facts archived", zap.Int("count", len(facts)))
	return nil
}

// FactsForEntity returns an entity's archived facts oldest first
func (a *FactArchive) FactsForEntity(ctx context.Context, entityID string) ([]*history.Fact, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(a.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "FACTS#" + entityID},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var facts []*history.Fact
	for {
		result, err := a.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query entity facts: %w", err)
		}
		for _, item := range result.Items {
			var record FactRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("unmarshal fact record: %w", err)
			}
			f, err := recordToFact(record)
			if err != nil {
				return nil, err
			}
			facts = append(facts, f)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sortFacts(facts)
	return facts, nil
}

// FactsForClass returns the most recent archived facts of one entity
// class, oldest first within the returned window
func (a *FactArchive) FactsForClass(ctx context.Context, class string, limit int) ([]*history.Fact, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(a.tableName),
		IndexName:              aws.String(classIndexName),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "CLASS#" + class},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := a.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query class facts: %w", err)
	}

	facts := make([]*history.Fact, 0, len(result.Items))
	for _, item := range result.Items {
		var record FactRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("unmarshal fact record: %w", err)
		}
		f, err := recordToFact(record)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}

	sortFacts(facts)
	return facts, nil
}

func factToRecord(f *history.Fact) *FactRecord {
	ts := f.Event.Timestamp.UTC().Format(time.RFC3339Nano)
	sk := fmt.Sprintf("FACT#%s#%012d", ts, f.Seq)
	return &FactRecord{
		PK:          "FACTS#" + f.Event.EntityID,
		SK:          sk,
		Seq:         f.Seq,
		EntityID:    f.Event.EntityID,
		EntityClass: f.Event.EntityClass,
		Version:     f.Event.Version,
		Timestamp:   ts,
		EventType:   string(f.Event.Type),
		ActorID:     f.Event.ActorID,
		SessionID:   f.Event.SessionID,
		Fields:      f.Payload.FieldChanges,
		AddedLinks:  f.Payload.AddedLinks,
		Removed:     f.Payload.RemovedLinks,
		GSI2PK:      "CLASS#" + f.Event.EntityClass,
		GSI2SK:      sk,
	}
}

func recordToFact(r FactRecord) (*history.Fact, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse fact timestamp: %w", err)
	}
	payload := history.NewDiffPayload()
	for k, v := range r.Fields {
		payload.FieldChanges[k] = v
	}
	for role, peers := range r.AddedLinks {
		payload.AddedLinks[role] = append([]string(nil), peers...)
	}
	for role, peers := range r.Removed {
		payload.RemovedLinks[role] = append([]string(nil), peers...)
	}
	return &history.Fact{
		Seq: r.Seq,
		Event: history.Event{
			EntityID:    r.EntityID,
			EntityClass: r.EntityClass,
			Version:     r.Version,
			Timestamp:   ts,
			Type:        history.EventType(r.EventType),
			ActorID:     r.ActorID,
			SessionID:   r.SessionID,
		},
		Payload: payload,
	}, nil
}

func sortFacts(facts []*history.Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if !facts[i].Event.Timestamp.Equal(facts[j].Event.Timestamp) {
			return facts[i].Event.Timestamp.Before(facts[j].Event.Timestamp)
		}
		return facts[i].Seq < facts[j].Seq
	})
}
