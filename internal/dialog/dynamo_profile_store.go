package dialog

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// profileItem is the DynamoDB shape of a user profile.
type profileItem struct {
	UserID    string `dynamodbav:"userId"`
	Name      string `dynamodbav:"name,omitempty"`
	Greeted   bool   `dynamodbav:"greeted,omitempty"`
	UpdatedAt string `dynamodbav:"updatedAt,omitempty"`
}

// DynamoProfileStore persists user profiles to DynamoDB, keyed by user id.
type DynamoProfileStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ ProfileStore = (*DynamoProfileStore)(nil)

// NewDynamoProfileStore builds a profile store backed by the provided
// DynamoDB client.
func NewDynamoProfileStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoProfileStore {
	if client == nil {
		panic("dialog: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("dialog: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoProfileStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (s *DynamoProfileStore) LoadProfile(ctx context.Context, userID string) (*UserProfile, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dialog: failed to load profile: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dialog: failed to unmarshal profile: %w", err)
	}
	return &UserProfile{
		UserID:  item.UserID,
		Name:    item.Name,
		Greeted: item.Greeted,
	}, nil
}

func (s *DynamoProfileStore) SaveProfile(ctx context.Context, profile *UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("dialog: profile requires a user id")
	}

	item, err := attributevalue.MarshalMap(profileItem{
		UserID:    profile.UserID,
		Name:      profile.Name,
		Greeted:   profile.Greeted,
		UpdatedAt: profile.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("dialog: failed to marshal profile: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dialog: failed to persist profile: %w", err)
	}
	return nil
}
