package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

// SQSAPI is the subset of the SQS client used for publishing.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSPublisher struct {
	log      *logger.Logger
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(ctx context.Context, cfg Config, log *logger.Logger) (*SQSPublisher, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, fmt.Errorf("missing SQS_QUEUE_URL")
	}
	var opts []func(*config.LoadOptions) error
	if r := strings.TrimSpace(cfg.AWSRegion); r != "" {
		opts = append(opts, config.WithRegion(r))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := strings.TrimSpace(cfg.AWSEndpoint)
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewSQSPublisherWithClient(client, cfg.SQSQueueURL, log), nil
}

func NewSQSPublisherWithClient(client SQSAPI, queueURL string, log *logger.Logger) *SQSPublisher {
	return &SQSPublisher{
		log:      log.With("service", "SQSEventPublisher"),
		client:   client,
		queueURL: strings.TrimSpace(queueURL),
	}
}

func (p *SQSPublisher) Publish(ctx context.Context, ev Event) error {
	ev = normalize(ev)
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(raw)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(ev.Type)},
			"study_id":   {DataType: aws.String("String"), StringValue: aws.String(ev.StudyID.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send %s: %w", ev.Type, err)
	}
	return nil
}

func (p *SQSPublisher) Close() error { return nil }
