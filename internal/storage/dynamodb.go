package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/patch"
)

const dynamoCounters = "counters"

// DynamoDBStorage implements Storage interface using AWS DynamoDB. Each
// entity has its own table named with the configured prefix.
type DynamoDBStorage struct {
	client *dynamodb.DynamoDB
	prefix string
}

type dynamoTable struct {
	name    string
	key     string
	keyType string // "N" or "S"
}

var dynamoTables = []dynamoTable{
	{name: tableApplications, key: "id", keyType: dynamodb.ScalarAttributeTypeN},
	{name: tableLogs, key: "id", keyType: dynamodb.ScalarAttributeTypeN},
	{name: tableIntegrations, key: "id", keyType: dynamodb.ScalarAttributeTypeN},
	{name: tableStatusData, key: "name", keyType: dynamodb.ScalarAttributeTypeS},
	{name: tableJobBoardData, key: "name", keyType: dynamodb.ScalarAttributeTypeS},
	{name: tableUsers, key: "email", keyType: dynamodb.ScalarAttributeTypeS},
	{name: dynamoCounters, key: "name", keyType: dynamodb.ScalarAttributeTypeS},
}

// NewDynamoDBStorage creates a new DynamoDB storage instance
func NewDynamoDBStorage(cfg config.StorageConfig) (*DynamoDBStorage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	d := &DynamoDBStorage{
		client: dynamodb.New(sess),
		prefix: cfg.TablePrefix,
	}

	for _, t := range dynamoTables {
		if err := d.ensureTable(t); err != nil {
			return nil, fmt.Errorf("failed to ensure table %s exists: %w", d.prefix+t.name, err)
		}
	}
	return d, nil
}

func (d *DynamoDBStorage) table(name string) *string {
	return aws.String(d.prefix + name)
}

// ensureTable creates a table if it doesn't exist
func (d *DynamoDBStorage) ensureTable(t dynamoTable) error {
	_, err := d.client.DescribeTable(&dynamodb.DescribeTableInput{TableName: d.table(t.name)})
	if err == nil {
		return nil
	}

	_, err = d.client.CreateTable(&dynamodb.CreateTableInput{
		TableName: d.table(t.name),
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String(t.key), KeyType: aws.String(dynamodb.KeyTypeHash)},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String(t.key), AttributeType: aws.String(t.keyType)},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return d.client.WaitUntilTableExists(&dynamodb.DescribeTableInput{TableName: d.table(t.name)})
}

func dynamoErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStore, err)
}

func isConditionFailed(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

func numberKey(id int64) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{"id": {N: aws.String(strconv.FormatInt(id, 10))}}
}

// nextID atomically increments the counter item for a table.
func (d *DynamoDBStorage) nextID(ctx context.Context, name string) (int64, error) {
	out, err := d.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:        d.table(dynamoCounters),
		Key:              map[string]*dynamodb.AttributeValue{"name": {S: aws.String(name)}},
		UpdateExpression: aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":one": {N: aws.String("1")},
		},
		ReturnValues: aws.String(dynamodb.ReturnValueUpdatedNew),
	})
	if err != nil {
		return 0, dynamoErr("failed to allocate id for "+name, err)
	}
	seq, ok := out.Attributes["seq"]
	if !ok || seq.N == nil {
		return 0, fmt.Errorf("%w: counter %s returned no value", models.ErrStore, name)
	}
	id, err := strconv.ParseInt(*seq.N, 10, 64)
	if err != nil {
		return 0, dynamoErr("failed to parse counter", err)
	}
	return id, nil
}

// scanAll reads every item of a table into out, following pagination.
func (d *DynamoDBStorage) scanAll(ctx context.Context, name string, out any) error {
	var items []map[string]*dynamodb.AttributeValue
	err := d.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{TableName: d.table(name)},
		func(page *dynamodb.ScanOutput, _ bool) bool {
			items = append(items, page.Items...)
			return true
		})
	if err != nil {
		return dynamoErr("failed to scan "+name, err)
	}
	if err := dynamodbattribute.UnmarshalListOfMaps(items, out); err != nil {
		return dynamoErr("failed to unmarshal "+name, err)
	}
	return nil
}

// ListApplications scans the table and returns up to limit records, newest
// date first.
func (d *DynamoDBStorage) ListApplications(ctx context.Context, limit int) ([]models.Application, error) {
	apps := []models.Application{}
	if err := d.scanAll(ctx, tableApplications, &apps); err != nil {
		return nil, err
	}
	sortApplicationsNewestFirst(apps)
	if limit > 0 && len(apps) > limit {
		apps = apps[:limit]
	}
	return apps, nil
}

func sortApplicationsNewestFirst(apps []models.Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].Date != apps[j].Date {
			return apps[i].Date > apps[j].Date
		}
		return apps[i].ID > apps[j].ID
	})
}

// CreateApplication stores a record under a freshly allocated id.
func (d *DynamoDBStorage) CreateApplication(ctx context.Context, app models.NewApplication) (*models.Application, error) {
	id, err := d.nextID(ctx, tableApplications)
	if err != nil {
		return nil, err
	}

	created := models.Application{
		ID:         id,
		Company:    app.Company,
		Position:   app.Position,
		Source:     app.Source,
		Date:       app.Date,
		Status:     app.Status,
		Automation: app.Automation,
		Salary:     app.Salary,
		Location:   app.Location,
		Notes:      app.Notes,
	}
	item, err := dynamodbattribute.MarshalMap(created)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal application: %w", err)
	}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           d.table(tableApplications),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return nil, dynamoErr("failed to store application", err)
	}
	return &created, nil
}

// dynamoUpdate is the expression form of a patch.
type dynamoUpdate struct {
	expression string
	names      map[string]*string
	values     map[string]*dynamodb.AttributeValue
}

// buildDynamoUpdate translates a patch into a SET expression. Attribute
// names go through placeholders since several columns are reserved words.
func buildDynamoUpdate(p patch.Patch) (*dynamoUpdate, error) {
	changes := p.Changes()
	if len(changes) == 0 {
		return nil, models.ErrNoFieldsProvided
	}

	u := &dynamoUpdate{
		names:  make(map[string]*string, len(changes)),
		values: make(map[string]*dynamodb.AttributeValue, len(changes)),
	}
	sets := make([]string, 0, len(changes))
	for i, c := range changes {
		name := "#f" + strconv.Itoa(i)
		value := ":v" + strconv.Itoa(i)

		av, err := dynamodbattribute.Marshal(c.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", c.Field.Column(), err)
		}
		u.names[name] = aws.String(c.Field.Column())
		u.values[value] = av
		sets = append(sets, name+" = "+value)
	}

	u.expression = "SET " + strings.Join(sets, ", ")
	return u, nil
}

// UpdateApplication writes only the fields present in p. The condition
// keeps UpdateItem from creating a record for an unknown id.
func (d *DynamoDBStorage) UpdateApplication(ctx context.Context, id int64, p patch.Patch) (*models.Application, error) {
	u, err := buildDynamoUpdate(p)
	if err != nil {
		return nil, err
	}

	out, err := d.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 d.table(tableApplications),
		Key:                       numberKey(id),
		UpdateExpression:          aws.String(u.expression),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  u.names,
		ExpressionAttributeValues: u.values,
		ReturnValues:              aws.String(dynamodb.ReturnValueAllNew),
	})
	if isConditionFailed(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, dynamoErr(fmt.Sprintf("failed to update application %d", id), err)
	}

	var updated models.Application
	if err := dynamodbattribute.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal application: %w", err)
	}
	return &updated, nil
}

// DeleteApplication removes the record permanently.
func (d *DynamoDBStorage) DeleteApplication(ctx context.Context, id int64) error {
	_, err := d.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:           d.table(tableApplications),
		Key:                 numberKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if isConditionFailed(err) {
		return notFound(id)
	}
	if err != nil {
		return dynamoErr(fmt.Sprintf("failed to delete application %d", id), err)
	}
	return nil
}

// AppendLog stores an automation log entry.
func (d *DynamoDBStorage) AppendLog(ctx context.Context, entry models.AutomationLog) (*models.AutomationLog, error) {
	id, err := d.nextID(ctx, tableLogs)
	if err != nil {
		return nil, err
	}
	entry.ID = id
	entry.Date = entry.Date.UTC()

	item, err := dynamodbattribute.MarshalMap(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal automation log: %w", err)
	}
	if _, err := d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: d.table(tableLogs),
		Item:      item,
	}); err != nil {
		return nil, dynamoErr("failed to append automation log", err)
	}
	return &entry, nil
}

// ListLogs returns up to limit log entries, newest first.
func (d *DynamoDBStorage) ListLogs(ctx context.Context, limit int) ([]models.AutomationLog, error) {
	logs := []models.AutomationLog{}
	if err := d.scanAll(ctx, tableLogs, &logs); err != nil {
		return nil, err
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.After(logs[j].Date)
		}
		return logs[i].ID > logs[j].ID
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// ListIntegrations returns every configured integration ordered by id.
func (d *DynamoDBStorage) ListIntegrations(ctx context.Context) ([]models.Integration, error) {
	out := []models.Integration{}
	if err := d.scanAll(ctx, tableIntegrations, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListStatusData returns the precomputed status table.
func (d *DynamoDBStorage) ListStatusData(ctx context.Context) ([]models.StatusDatum, error) {
	out := []models.StatusDatum{}
	if err := d.scanAll(ctx, tableStatusData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListJobBoardData returns the precomputed job board table.
func (d *DynamoDBStorage) ListJobBoardData(ctx context.Context) ([]models.JobBoardDatum, error) {
	out := []models.JobBoardDatum{}
	if err := d.scanAll(ctx, tableJobBoardData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser stores a user keyed by email; an existing email fails the
// condition and is reported as a conflict.
func (d *DynamoDBStorage) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	id, err := d.nextID(ctx, tableUsers)
	if err != nil {
		return nil, err
	}

	u := models.User{ID: id, Email: email, Name: name, PasswordHash: passwordHash}
	item, err := dynamodbattribute.MarshalMap(u)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           d.table(tableUsers),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if isConditionFailed(err) {
		return nil, duplicateEmail(email)
	}
	if err != nil {
		return nil, dynamoErr("failed to create user", err)
	}
	return &u, nil
}

// GetUserByEmail returns nil, nil when no user has the email.
func (d *DynamoDBStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: d.table(tableUsers),
		Key:       map[string]*dynamodb.AttributeValue{"email": {S: aws.String(email)}},
	})
	if err != nil {
		return nil, dynamoErr("failed to get user", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var u models.User
	if err := dynamodbattribute.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &u, nil
}

// Ping checks that the applications table is reachable.
func (d *DynamoDBStorage) Ping(ctx context.Context) error {
	_, err := d.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{TableName: d.table(tableApplications)})
	if err != nil {
		return dynamoErr("dynamodb ping failed", err)
	}
	return nil
}

// Close closes the DynamoDB connection
func (d *DynamoDBStorage) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}
