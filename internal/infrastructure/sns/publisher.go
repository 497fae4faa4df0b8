package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/otp-gateway/internal/config"
	"github.com/otp-gateway/internal/domain"
)

// EventSignedIn is published once per established session.
const EventSignedIn = "user.signed_in"

// PublishAPI is the subset of the SNS client used by Publisher.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SignInEvent is the JSON message body published on sign-in.
type SignInEvent struct {
	Event     string    `json:"event"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// Publisher sends sign-in events to an SNS topic.
type Publisher struct {
	client   PublishAPI
	topicARN string
}

func NewPublisher(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	if cfg.SNSSignInTopicARN == "" {
		return nil, fmt.Errorf("SNS_SIGNIN_TOPIC_ARN is not set")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	opts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return newPublisher(sns.NewFromConfig(awsCfg, opts...), cfg.SNSSignInTopicARN), nil
}

func newPublisher(client PublishAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

func (p *Publisher) PublishSignIn(ctx context.Context, s *domain.Session) error {
	body, err := json.Marshal(SignInEvent{
		Event:     EventSignedIn,
		UserID:    s.UserID,
		Email:     s.Email,
		SessionID: s.SessionID,
		At:        s.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal sign-in event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(EventSignedIn)},
		},
	})
	return err
}
