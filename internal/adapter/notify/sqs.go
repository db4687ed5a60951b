package notify

import (
	"context"
	"fmt"

	"group-savings-engine/internal/domain/event"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the part of *sqs.Client the sink needs.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends events to a queue for downstream notification workers.
type SQSPublisher struct {
	Client   SQSAPI
	QueueURL string
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{Client: client, QueueURL: queueURL}
}

var _ event.Sink = (*SQSPublisher)(nil)

func (p *SQSPublisher) Notify(ctx context.Context, e event.Event) error {
	body, err := encode(e)
	if err != nil {
		return err
	}

	_, err = p.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type":     {DataType: aws.String("String"), StringValue: aws.String(string(e.Type))},
			"group_id": {DataType: aws.String("String"), StringValue: aws.String(e.GroupID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send event to SQS: %w", err)
	}
	return nil
}
