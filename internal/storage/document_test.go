package storage

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/patch"
)

func TestBuildDynamoUpdate(t *testing.T) {
	var p patch.Patch
	require.NoError(t, p.Set(patch.Notes, nil))
	require.NoError(t, p.Set(patch.Status, "Offer"))
	require.NoError(t, p.Set(patch.Salary, 90000.0))

	u, err := buildDynamoUpdate(p)
	require.NoError(t, err)

	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", u.expression)
	assert.Equal(t, "status", aws.StringValue(u.names["#f0"]))
	assert.Equal(t, "salary", aws.StringValue(u.names["#f1"]))
	assert.Equal(t, "notes", aws.StringValue(u.names["#f2"]))

	assert.Equal(t, "Offer", aws.StringValue(u.values[":v0"].S))
	assert.Equal(t, "90000", aws.StringValue(u.values[":v1"].N))
	assert.True(t, aws.BoolValue(u.values[":v2"].NULL))
}

func TestBuildDynamoUpdate_NoFields(t *testing.T) {
	_, err := buildDynamoUpdate(patch.Patch{})
	assert.ErrorIs(t, err, models.ErrNoFieldsProvided)
}

func TestMongoSetDocument(t *testing.T) {
	var p patch.Patch
	require.NoError(t, p.Set(patch.Location, "Berlin"))
	require.NoError(t, p.Set(patch.Company, "Initech"))

	set, err := mongoSetDocument(p)
	require.NoError(t, err)

	assert.Equal(t, bson.D{
		{Key: "company", Value: "Initech"},
		{Key: "location", Value: "Berlin"},
	}, set)

	_, err = mongoSetDocument(patch.Patch{})
	assert.ErrorIs(t, err, models.ErrNoFieldsProvided)
}

func TestSortApplicationsNewestFirst(t *testing.T) {
	apps := []models.Application{
		{ID: 1, Date: "2025-01-01"},
		{ID: 2, Date: ""},
		{ID: 3, Date: "2025-02-01"},
		{ID: 4, Date: "2025-01-01"},
	}

	sortApplicationsNewestFirst(apps)

	ids := make([]int64, len(apps))
	for i, a := range apps {
		ids[i] = a.ID
	}
	assert.Equal(t, []int64{3, 4, 1, 2}, ids)
}

func TestClassifyPostgres(t *testing.T) {
	conflict := classifyPostgres(&pq.Error{Code: "23505", Message: "duplicate key"})
	assert.True(t, errors.Is(conflict, models.ErrConflict))

	invalid := classifyPostgres(&pq.Error{Code: "22007", Message: "invalid input syntax for type date"})
	assert.True(t, errors.Is(invalid, models.ErrValidation))

	assert.Nil(t, classifyPostgres(&pq.Error{Code: "42P01"}))
	assert.Nil(t, classifyPostgres(errors.New("connection refused")))
}
