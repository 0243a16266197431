package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MessageSender enqueues a single message body.
type MessageSender interface {
	SendMessage(ctx context.Context, body string, attributes map[string]string) error
}

// SQSSender writes to one queue.
type SQSSender struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSSender(cfg sdkaws.Config, queueURL string) *SQSSender {
	return &SQSSender{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

// SendMessage sends body with optional string attributes.
func (s *SQSSender) SendMessage(ctx context.Context, body string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(s.queueURL),
		MessageBody: sdkaws.String(body),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
	}

	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", s.queueURL, err)
	}
	return nil
}
