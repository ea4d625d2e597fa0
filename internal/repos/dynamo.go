package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"public-safety-incident-system/internal/incident"
)

const incidentSortKeyPrefix = "INCIDENT#"

// DynamoRepository stores one item per incident under (PK=tenant, SK=id) with
// the full snapshot serialized into a Payload attribute. Writes are
// unconditional PutItem calls: no optimistic locking, last writer wins.
type DynamoRepository struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoRepository(client *dynamodb.Client, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

func (r *DynamoRepository) SupportsOptimisticLock() bool { return false }

// Tenant keys are lowercased so lookups match the case-insensitive tenant
// contract; the true-case tenant id survives inside the payload.
type dynamoIncidentRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Status     string `dynamodbav:"Status"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	Payload    string `dynamodbav:"Payload"`
}

func (r *DynamoRepository) Save(ctx context.Context, inc *incident.Incident) error {
	snapshot := inc.ToSnapshot()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal incident snapshot: %w", err)
	}

	record := dynamoIncidentRecord{
		PK:         tenantKey(snapshot.TenantID),
		SK:         incidentSortKeyPrefix + snapshot.IncidentID.String(),
		EntityType: "Incident",
		Status:     string(snapshot.Status),
		CreatedAt:  snapshot.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
		Payload:    string(payload),
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal incident item: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("%w: put incident item: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *DynamoRepository) Get(ctx context.Context, tenantID string, incidentID uuid.UUID) (*incident.Incident, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: tenantKey(tenantID)},
			"SK": &types.AttributeValueMemberS{Value: incidentSortKeyPrefix + incidentID.String()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get incident item: %v", ErrUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	snapshot, ok := decodeDynamoItem(out.Item)
	if !ok {
		return nil, nil
	}
	return incident.FromSnapshot(snapshot), nil
}

func (r *DynamoRepository) List(ctx context.Context, tenantID string, filter ListFilter) ([]*incident.Incident, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: tenantKey(tenantID)},
			":sk": &types.AttributeValueMemberS{Value: incidentSortKeyPrefix},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query incidents: %v", ErrUnavailable, err)
	}

	matched := make([]*incident.Incident, 0, len(out.Items))
	for _, item := range out.Items {
		snapshot, ok := decodeDynamoItem(item)
		if !ok {
			continue
		}
		if !matchesFilter(snapshot, filter) {
			continue
		}
		matched = append(matched, incident.FromSnapshot(snapshot))
	}
	sortByCreatedAtDesc(matched)
	return matched, nil
}

func decodeDynamoItem(item map[string]types.AttributeValue) (incident.Snapshot, bool) {
	var record dynamoIncidentRecord
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return incident.Snapshot{}, false
	}
	if record.Payload == "" {
		return incident.Snapshot{}, false
	}
	var snapshot incident.Snapshot
	if err := json.Unmarshal([]byte(record.Payload), &snapshot); err != nil {
		return incident.Snapshot{}, false
	}
	return snapshot, true
}

func tenantKey(tenantID string) string {
	return strings.ToLower(strings.TrimSpace(tenantID))
}
