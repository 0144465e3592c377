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
	"go.uber.org/zap"
)

// RefreshSessionRepo provides typed DynamoDB operations for the refresh_tokens table.
// PK: token_hash, GSI: mobile_number-index.
type RefreshSessionRepo struct {
	client    API
	tableName string
	timeout   time.Duration
	log       *zap.Logger
}

func NewRefreshSessionRepo(client API, tableName string, timeout time.Duration, log *zap.Logger) *RefreshSessionRepo {
	return &RefreshSessionRepo{client: client, tableName: tableName, timeout: timeout, log: log}
}

func (r *RefreshSessionRepo) Put(ctx context.Context, s *domain.RefreshSession) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal refresh session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#h)"),
		ExpressionAttributeNames: map[string]string{
			"#h": fieldTokenHash,
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("refresh session exists: %w", domain.ErrConflict)
	}
	return err
}

// GetByHash returns the session stored under tokenHash regardless of state.
func (r *RefreshSessionRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshSession, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldTokenHash, tokenHash),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("refresh session not found: %w", domain.ErrNotFound)
	}
	var s domain.RefreshSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Touch records a successful refresh. The write is conditional on the session
// still being valid, so a concurrent revoke wins.
func (r *RefreshSessionRepo) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	in, err := touchInput(r.tableName, tokenHash, at)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, in)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("refresh session no longer valid: %w", domain.ErrConflict)
	}
	return err
}

// Revoke marks the session revoked. Revoking twice, or revoking a hash that
// was never stored, is not an error.
func (r *RefreshSessionRepo) Revoke(ctx context.Context, tokenHash string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	ue, err := buildUpdateExpr(map[string]interface{}{fieldRevoked: true})
	if err != nil {
		return err
	}
	ue.Names["#h"] = fieldTokenHash
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldTokenHash, tokenHash),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#h)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}

// RevokeAllForMobile revokes every session of mobile found via the GSI.
// It keeps going after a failed item and returns the first error.
func (r *RefreshSessionRepo) RevokeAllForMobile(ctx context.Context, mobile string) error {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexMobileNumber),
		KeyConditionExpression: aws.String("#m = :m"),
		FilterExpression:       aws.String("#r = :false"),
		ExpressionAttributeNames: map[string]string{
			"#m": fieldMobileNumber,
			"#r": fieldRevoked,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":     &types.AttributeValueMemberS{Value: mobile},
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	var firstErr error
	for p.HasMorePages() {
		qctx, cancel := withTimeout(ctx, r.timeout)
		out, err := p.NextPage(qctx)
		cancel()
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			hashAttr, ok := item[fieldTokenHash].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Revoke(ctx, hashAttr.Value); err != nil {
				r.log.Warn("failed to revoke refresh session", zap.String("mobile_number", mobile), zap.Error(err))
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

func touchInput(table, tokenHash string, at time.Time) (*dynamodb.UpdateItemInput, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldLastUsedAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	ue.Names["#r"] = fieldRevoked
	ue.Names["#e"] = fieldExpiresAt
	ue.Values[":false"] = &types.AttributeValueMemberBOOL{Value: false}
	ue.Values[":now"] = &types.AttributeValueMemberN{Value: fmt.Sprint(at.Unix())}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       strKey(fieldTokenHash, tokenHash),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#r = :false AND #e > :now"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}, nil
}
