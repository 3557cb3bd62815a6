package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rapidmidiex/rmxscore/score"
)

// Dynamo stores one item per document in a DynamoDB table keyed by "PK".
type Dynamo struct {
	db    dynamodbiface.DynamoDBAPI
	table string
	now   func() time.Time
}

type (
	item struct {
		PK            string     `dynamodbav:"PK"`
		Title         string     `dynamodbav:"Title"`
		TimeSignature int        `dynamodbav:"TimeSignature"`
		Tempo         int        `dynamodbav:"Tempo"`
		Notes         []noteItem `dynamodbav:"Notes"`
		// Unix nanoseconds, orders List.
		Created int64 `dynamodbav:"Created"`
	}

	noteItem struct {
		Pitch    string `dynamodbav:"Pitch"`
		Duration string `dynamodbav:"Duration"`
	}
)

func NewDynamo(db dynamodbiface.DynamoDBAPI, table string) *Dynamo {
	return &Dynamo{db: db, table: table, now: time.Now}
}

// DialDynamo connects to the table at endpoint. An empty endpoint uses the
// AWS default for region.
func DialDynamo(endpoint, region, table string) (*Dynamo, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamodb session: %w", err)
	}
	return NewDynamo(dynamodb.New(sess), table), nil
}

func (d *Dynamo) Create(ctx context.Context, doc score.Document) (score.Document, error) {
	doc = doc.Normalize()
	doc.ID = NewID()
	it := toItem(doc)
	it.Created = d.now().UnixNano()
	if err := d.put(ctx, it, "attribute_not_exists(PK)"); err != nil {
		return score.Document{}, fmt.Errorf("create: %w", err)
	}
	return doc, nil
}

func (d *Dynamo) Get(ctx context.Context, id string) (score.Document, error) {
	it, err := d.get(ctx, id)
	if err != nil {
		return score.Document{}, fmt.Errorf("get %q: %w", id, err)
	}
	return it.document()
}

func (d *Dynamo) Update(ctx context.Context, id string, p Patch) (score.Document, error) {
	it, err := d.get(ctx, id)
	if err != nil {
		return score.Document{}, fmt.Errorf("update %q: %w", id, err)
	}
	doc, err := it.document()
	if err != nil {
		return score.Document{}, err
	}
	doc = p.Apply(doc)

	next := toItem(doc)
	next.Created = it.Created
	if err := d.put(ctx, next, "attribute_exists(PK)"); err != nil {
		return score.Document{}, fmt.Errorf("update %q: %w", id, err)
	}
	return doc, nil
}

func (d *Dynamo) List(ctx context.Context) ([]score.Document, error) {
	var (
		items []item
		err   error
	)
	input := &dynamodb.ScanInput{TableName: aws.String(d.table)}
	scanErr := d.db.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, last bool) bool {
		var batch []item
		if err = dynamodbattribute.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return false
		}
		items = append(items, batch...)
		return true
	})
	if scanErr != nil {
		return nil, fmt.Errorf("list: %w", scanErr)
	}
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Created != items[j].Created {
			return items[i].Created < items[j].Created
		}
		return items[i].PK < items[j].PK
	})
	docs := make([]score.Document, 0, len(items))
	for _, it := range items {
		doc, err := it.document()
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (d *Dynamo) get(ctx context.Context, id string) (item, error) {
	out, err := d.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(id)},
		},
	})
	if err != nil {
		return item{}, err
	}
	if len(out.Item) == 0 {
		return item{}, ErrNotFound
	}
	var it item
	if err := dynamodbattribute.UnmarshalMap(out.Item, &it); err != nil {
		return item{}, err
	}
	return it, nil
}

func (d *Dynamo) put(ctx context.Context, it item, condition string) error {
	av, err := dynamodbattribute.MarshalMap(it)
	if err != nil {
		return err
	}
	_, err = d.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                av,
		ConditionExpression: aws.String(condition),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
		return ErrNotFound
	}
	return err
}

func toItem(doc score.Document) item {
	it := item{
		PK:            doc.ID,
		Title:         doc.Title,
		TimeSignature: int(doc.TimeSignature),
		Tempo:         doc.Tempo,
		Notes:         make([]noteItem, len(doc.Notes)),
	}
	for i, n := range doc.Notes {
		it.Notes[i] = noteItem{Pitch: n.Pitch.String(), Duration: n.Duration.String()}
	}
	return it
}

func (it item) document() (score.Document, error) {
	doc := score.Document{
		ID:            it.PK,
		Title:         it.Title,
		TimeSignature: score.TimeSignature(it.TimeSignature),
		Tempo:         it.Tempo,
		Notes:         make([]score.Note, len(it.Notes)),
	}
	for i, n := range it.Notes {
		p, err := score.ParsePitch(n.Pitch)
		if err != nil {
			return score.Document{}, fmt.Errorf("item %s note %d: %w", it.PK, i, err)
		}
		dur, err := score.ParseDuration(n.Duration)
		if err != nil {
			return score.Document{}, fmt.Errorf("item %s note %d: %w", it.PK, i, err)
		}
		doc.Notes[i] = score.NewNote(p, dur)
	}
	return doc.Normalize(), nil
}
