package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"scholarship-agent/internal/domain"
)

const (
	pkMeta      = "CATALOG"
	skMeta      = "META#"
	skPrefixRec = "REC#"
	batchSize   = 25
)

// batchBackoff is the wait before the first retry of unprocessed items. It
// doubles on every further attempt.
var batchBackoff = 50 * time.Millisecond

// dynamodbAPI is the minimal DynamoDB interface required by Table.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// TableReader loads a catalog version from an external table.
type TableReader interface {
	LoadVersion(ctx context.Context, version string) (*Catalog, error)
}

// Table stores catalog versions in a DynamoDB table. Each version is a
// partition (PK=CATALOG#<version>) of REC# items in declaration order; the
// META# item of the CATALOG partition names the active version.
type Table struct {
	api       dynamodbAPI
	tableName string
}

// NewTable creates a DynamoDB-backed catalog source.
func NewTable(api dynamodbAPI, tableName string) (*Table, error) {
	if api == nil {
		return nil, errors.New("catalog: dynamodb api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("catalog: table name must not be empty")
	}
	return &Table{api: api, tableName: tableName}, nil
}

func versionPK(version string) string {
	return "CATALOG#" + version
}

func recordSK(seq int) string {
	return fmt.Sprintf("%s%05d", skPrefixRec, seq)
}

// LoadVersion reads every record of version. An empty version resolves the
// active version from the META# item first.
func (t *Table) LoadVersion(ctx context.Context, version string) (*Catalog, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		active, err := t.ActiveVersion(ctx)
		if err != nil {
			return nil, err
		}
		version = active
	}

	var (
		records []domain.ScholarshipRecord
		startAt map[string]types.AttributeValue
	)
	for {
		out, err := t.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(t.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: versionPK(version)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixRec},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: startAt,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog: LoadVersion query: %w", err)
		}
		for _, item := range out.Items {
			r, err := itemToRecord(item)
			if err != nil {
				return nil, fmt.Errorf("catalog: LoadVersion unmarshal: %w", err)
			}
			records = append(records, r)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startAt = out.LastEvaluatedKey
	}
	return New(version, records)
}

// ActiveVersion returns the version named by the META# item.
func (t *Table) ActiveVersion(ctx context.Context) (string, error) {
	out, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkMeta},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("catalog: ActiveVersion get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", errors.New("catalog: ActiveVersion: no active version recorded")
	}
	v, err := strAttr(out.Item, "activeVersion")
	if err != nil {
		return "", fmt.Errorf("catalog: ActiveVersion: %w", err)
	}
	return v, nil
}

// Publish writes every record of c under its version and, when activate is
// set, points the META# item at it. Versions are written whole and never
// edited in place.
func (t *Table) Publish(ctx context.Context, c *Catalog, activate bool) error {
	records := c.ListAll()
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		reqs := make([]types.WriteRequest, 0, end-start)
		for i := start; i < end; i++ {
			reqs = append(reqs, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: recordItem(c.Version(), i, records[i])},
			})
		}
		if err := t.writeBatch(ctx, reqs); err != nil {
			return err
		}
	}
	if !activate {
		return nil
	}
	_, err := t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.tableName),
		Item: map[string]types.AttributeValue{
			"PK":            &types.AttributeValueMemberS{Value: pkMeta},
			"SK":            &types.AttributeValueMemberS{Value: skMeta},
			"activeVersion": &types.AttributeValueMemberS{Value: c.Version()},
		},
	})
	if err != nil {
		return fmt.Errorf("catalog: Publish activate: %w", err)
	}
	return nil
}

func (t *Table) writeBatch(ctx context.Context, reqs []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{t.tableName: reqs}
	for attempt := 0; len(pending[t.tableName]) > 0; attempt++ {
		if attempt >= 5 {
			return fmt.Errorf("catalog: Publish: %d items left unprocessed", len(pending[t.tableName]))
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("catalog: Publish retry: %w", ctx.Err())
			case <-time.After(batchBackoff << (attempt - 1)):
			}
		}
		out, err := t.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("catalog: Publish batch write: %w", err)
		}
		pending = out.UnprocessedItems
		if pending == nil {
			return nil
		}
	}
	return nil
}

func recordItem(version string, seq int, r domain.ScholarshipRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":              &types.AttributeValueMemberS{Value: versionPK(version)},
		"SK":              &types.AttributeValueMemberS{Value: recordSK(seq)},
		"id":              &types.AttributeValueMemberS{Value: r.ID},
		"name":            &types.AttributeValueMemberS{Value: r.Name},
		"category":        listValue(r.Categories),
		"courses":         listValue(r.Courses),
		"incomeLimit":     &types.AttributeValueMemberN{Value: strconv.FormatInt(r.IncomeLimit, 10)},
		"benefit":         &types.AttributeValueMemberS{Value: r.Benefit},
		"description":     &types.AttributeValueMemberS{Value: r.Description},
		"tags":            listValue(r.Tags),
		"documents":       listValue(r.Documents),
		"deadline":        &types.AttributeValueMemberS{Value: r.Deadline},
		"applicationLink": &types.AttributeValueMemberS{Value: r.ApplicationLink},
	}
}

// itemToRecord converts a DynamoDB attribute map to a ScholarshipRecord.
func itemToRecord(item map[string]types.AttributeValue) (domain.ScholarshipRecord, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.ScholarshipRecord{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.ScholarshipRecord{}, err
	}
	categories, err := listAttr(item, "category")
	if err != nil {
		return domain.ScholarshipRecord{}, err
	}
	income, err := int64Attr(item, "incomeLimit")
	if err != nil {
		return domain.ScholarshipRecord{}, err
	}
	courses, _ := listAttr(item, "courses") // optional
	tags, _ := listAttr(item, "tags")
	documents, _ := listAttr(item, "documents")
	benefit, _ := strAttr(item, "benefit")
	description, _ := strAttr(item, "description")
	deadline, _ := strAttr(item, "deadline")
	link, _ := strAttr(item, "applicationLink")

	return domain.ScholarshipRecord{
		ID:              id,
		Name:            name,
		Categories:      categories,
		Courses:         courses,
		IncomeLimit:     income,
		Benefit:         benefit,
		Description:     description,
		Tags:            tags,
		Documents:       documents,
		Deadline:        deadline,
		ApplicationLink: link,
	}, nil
}

func listValue(values []string) *types.AttributeValueMemberL {
	out := make([]types.AttributeValue, 0, len(values))
	for _, v := range values {
		out = append(out, &types.AttributeValueMemberS{Value: v})
	}
	return &types.AttributeValueMemberL{Value: out}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("catalog: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("catalog: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("catalog: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("catalog: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("catalog: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func listAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return nil, fmt.Errorf("catalog: missing attribute %q", key)
	}
	switch l := v.(type) {
	case *types.AttributeValueMemberL:
		out := make([]string, 0, len(l.Value))
		for i, e := range l.Value {
			s, ok := e.(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("catalog: attribute %q[%d] is not a string", key, i)
			}
			out = append(out, s.Value)
		}
		return out, nil
	case *types.AttributeValueMemberSS:
		return l.Value, nil
	default:
		return nil, fmt.Errorf("catalog: attribute %q is not a list", key)
	}
}
