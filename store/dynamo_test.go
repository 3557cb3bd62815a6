package store_test

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rapidmidiex/rmxscore/store"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items in a map and understands the two condition
// expressions the store uses.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	items map[string]map[string]*dynamodb.AttributeValue
	order []string
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]*dynamodb.AttributeValue)}
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[aws.StringValue(in.Key["PK"].S)]}, nil
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	pk := aws.StringValue(in.Item["PK"].S)
	_, exists := f.items[pk]
	failed := awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
	switch aws.StringValue(in.ConditionExpression) {
	case "attribute_exists(PK)":
		if !exists {
			return nil, failed
		}
	case "attribute_not_exists(PK)":
		if exists {
			return nil, failed
		}
	}
	if !exists {
		f.order = append(f.order, pk)
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

// ScanPagesWithContext returns one item per page.
func (f *fakeDynamo) ScanPagesWithContext(_ aws.Context, in *dynamodb.ScanInput, fn func(*dynamodb.ScanOutput, bool) bool, _ ...request.Option) error {
	for i, pk := range f.order {
		page := &dynamodb.ScanOutput{Items: []map[string]*dynamodb.AttributeValue{f.items[pk]}}
		if !fn(page, i == len(f.order)-1) {
			break
		}
	}
	return nil
}

func TestDynamo(t *testing.T) {
	db := newFakeDynamo()
	testStore(t, store.NewDynamo(db, "rmx-scores"))

	t.Run("items are keyed by PK", func(t *testing.T) {
		require.Len(t, db.items, 2)
		for pk, it := range db.items {
			require.Equal(t, pk, aws.StringValue(it["PK"].S))
			require.NotNil(t, it["Notes"])
		}
	})
}
