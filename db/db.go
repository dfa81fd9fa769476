// Package db archives final score reports in DynamoDB.
package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jsphweid/fretcoach/model"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// BatchGetItem accepts at most this many keys per call.
const maxBatch = 100

var ErrTooManyKeys = errors.New("db: too many keys for one batch")

type Archive struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func New(client dynamodbiface.DynamoDBAPI, table string) *Archive {
	return &Archive{client: client, table: table}
}

// Dial connects to DynamoDB. An empty endpoint uses the regular AWS
// endpoint for region; set it to e.g. http://localhost:8000 for
// DynamoDB Local.
func Dial(table, region, endpoint string) (*Archive, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("db: could not create a DynamoDB session: %w", err)
	}
	return New(dynamodb.New(sess), table), nil
}

func (a *Archive) SaveReport(ctx context.Context, r model.ScoreReport) error {
	if r.SessionID == "" {
		return errors.New("db: report has no session id")
	}
	_, err := a.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.table),
		Item:      toItem(r),
	})
	if err != nil {
		return fmt.Errorf("db: saving %s: %w", r.SessionID, err)
	}
	return nil
}

// GetReport returns false when there is no report for id.
func (a *Archive) GetReport(ctx context.Context, id string) (model.ScoreReport, bool, error) {
	out, err := a.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(a.table),
		Key:       key(id),
	})
	if err != nil {
		return model.ScoreReport{}, false, fmt.Errorf("db: reading %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return model.ScoreReport{}, false, nil
	}
	return fromItem(out.Item), true, nil
}

func (a *Archive) GetReports(ctx context.Context, ids []string) (map[string]model.ScoreReport, error) {
	if len(ids) > maxBatch {
		return nil, ErrTooManyKeys
	}

	res := make(map[string]model.ScoreReport)
	if len(ids) == 0 {
		return res, nil
	}

	var keys []map[string]*dynamodb.AttributeValue
	for _, id := range ids {
		keys = append(keys, key(id))
	}
	out, err := a.client.BatchGetItemWithContext(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]*dynamodb.KeysAndAttributes{
			a.table: {Keys: keys},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("db: batch read: %w", err)
	}

	for _, v := range out.Responses[a.table] {
		r := fromItem(v)
		res[r.SessionID] = r
	}
	return res, nil
}

func key(id string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{"PK": {S: aws.String(id)}}
}

func intAttr(v int) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{N: aws.String(strconv.Itoa(v))}
}

func floatAttr(v float64) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{N: aws.String(strconv.FormatFloat(v, 'f', -1, 64))}
}

func toItem(r model.ScoreReport) map[string]*dynamodb.AttributeValue {
	item := key(r.SessionID)
	item["Title"] = &dynamodb.AttributeValue{S: aws.String(r.Title)}
	item["Grade"] = &dynamodb.AttributeValue{S: aws.String(r.Grade)}
	item["StartedAt"] = &dynamodb.AttributeValue{S: aws.String(r.StartedAt.UTC().Format(time.RFC3339Nano))}
	item["AccuracyPercent"] = floatAttr(r.AccuracyPercent)
	item["Correct"] = intAttr(r.Correct)
	item["Incorrect"] = intAttr(r.Incorrect)
	item["Missed"] = intAttr(r.Missed)
	item["Stray"] = intAttr(r.Stray)
	item["TotalNotes"] = intAttr(r.TotalNotes)
	item["MaxStreak"] = intAttr(r.MaxStreak)
	item["AverageTimingErrorMs"] = floatAttr(r.AverageTimingErrorMs)
	item["TimingPenalty"] = floatAttr(r.TimingPenalty)
	item["FinalScore"] = floatAttr(r.FinalScore)
	item["SpeedFactor"] = floatAttr(r.SpeedFactor)
	item["DurationMs"] = floatAttr(r.DurationMs)
	return item
}

// missing or malformed attributes read as zero values
func fromItem(v map[string]*dynamodb.AttributeValue) model.ScoreReport {
	str := func(name string) string {
		if a := v[name]; a != nil && a.S != nil {
			return *a.S
		}
		return ""
	}
	float := func(name string) float64 {
		if a := v[name]; a != nil && a.N != nil {
			f, _ := strconv.ParseFloat(*a.N, 64)
			return f
		}
		return 0
	}
	integer := func(name string) int {
		return int(float(name))
	}

	var r model.ScoreReport
	r.SessionID = str("PK")
	r.Title = str("Title")
	r.Grade = str("Grade")
	if t, err := time.Parse(time.RFC3339Nano, str("StartedAt")); err == nil {
		r.StartedAt = t
	}
	r.AccuracyPercent = float("AccuracyPercent")
	r.Correct = integer("Correct")
	r.Incorrect = integer("Incorrect")
	r.Missed = integer("Missed")
	r.Stray = integer("Stray")
	r.TotalNotes = integer("TotalNotes")
	r.MaxStreak = integer("MaxStreak")
	r.AverageTimingErrorMs = float("AverageTimingErrorMs")
	r.TimingPenalty = float("TimingPenalty")
	r.FinalScore = float("FinalScore")
	r.SpeedFactor = float("SpeedFactor")
	r.DurationMs = float("DurationMs")
	return r
}
