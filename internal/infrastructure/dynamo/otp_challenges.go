package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/legal-directory-api/internal/domain"
)

// OtpChallengeRepo stores issued OTP challenges.
// PK: mobile_number, SK: challenge_id (ULID).
type OtpChallengeRepo struct {
	client    API
	tableName string
	timeout   time.Duration
}

func NewOtpChallengeRepo(client API, tableName string, timeout time.Duration) *OtpChallengeRepo {
	return &OtpChallengeRepo{client: client, tableName: tableName, timeout: timeout}
}

func (r *OtpChallengeRepo) Put(ctx context.Context, c *domain.OtpChallenge) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp challenge: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// LatestValid returns the newest unconsumed, unexpired challenge for mobile.
// The filter runs after the key condition, so pages are walked until a match.
func (r *OtpChallengeRepo) LatestValid(ctx context.Context, mobile string, now time.Time) (*domain.OtpChallenge, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	p := dynamodb.NewQueryPaginator(r.client, latestValidInput(r.tableName, mobile, now))
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(out.Items) == 0 {
			continue
		}
		var c domain.OtpChallenge
		if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
			return nil, err
		}
		return &c, nil
	}
	return nil, fmt.Errorf("otp challenge not found: %w", domain.ErrNotFound)
}

// Consume flips used to true only if the row is still unconsumed and unexpired.
// A lost race surfaces as ErrConflict.
func (r *OtpChallengeRepo) Consume(ctx context.Context, c *domain.OtpChallenge, now time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	in, err := consumeInput(r.tableName, c, now)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, in)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("otp challenge already consumed: %w", domain.ErrConflict)
	}
	return err
}

func latestValidInput(table, mobile string, now time.Time) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("#m = :m"),
		FilterExpression:       aws.String("#u = :false AND #e > :now"),
		ExpressionAttributeNames: map[string]string{
			"#m": fieldMobileNumber,
			"#u": fieldUsed,
			"#e": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":     &types.AttributeValueMemberS{Value: mobile},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":now":   &types.AttributeValueMemberN{Value: fmt.Sprint(now.Unix())},
		},
		ScanIndexForward: aws.Bool(false),
	}
}

func consumeInput(table string, c *domain.OtpChallenge, now time.Time) (*dynamodb.UpdateItemInput, error) {
	verifiedAt, err := attributevalue.Marshal(now.UTC())
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 compositeKey(fieldMobileNumber, c.MobileNumber, fieldChallengeID, c.ChallengeID),
		UpdateExpression:    aws.String("SET #u = :true, #v = :at"),
		ConditionExpression: aws.String("#u = :false AND #e > :now"),
		ExpressionAttributeNames: map[string]string{
			"#u": fieldUsed,
			"#v": fieldVerifiedAt,
			"#e": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":at":    verifiedAt,
			":now":   &types.AttributeValueMemberN{Value: fmt.Sprint(now.Unix())},
		},
	}, nil
}
