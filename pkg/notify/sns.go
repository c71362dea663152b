package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/pkg/errors"
)

// MaxSubjectLength is the SNS limit on message subjects.
const MaxSubjectLength = 100

var subjects = map[string]string{
	EventStarted:   "Resume Processing Started",
	EventCompleted: "Resume Processing Completed",
	EventError:     "Resume Processing Error",
	EventDuplicate: "Duplicate Resume Detected",
}

// SNSAPI is the part of the SNS client the publisher uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error)
}

// SNSPublisher sends events to an SNS topic.
type SNSPublisher struct {
	client   SNSAPI
	topicARN string
	logger   *slog.Logger
}

// NewSNSPublisher creates a publisher for topicARN.
func NewSNSPublisher(client SNSAPI, topicARN string, logger *slog.Logger) (p *SNSPublisher) {
	if logger == nil {
		logger = slog.Default()
	}
	p = &SNSPublisher{
		client:   client,
		topicARN: topicARN,
		logger:   logger,
	}
	return p
}

// Send publishes one event as a JSON message with event_type and file_key attributes.
func (p *SNSPublisher) Send(ctx context.Context, event Event) (err error) {
	var body []byte
	body, err = json.Marshal(event)
	if err != nil {
		err = errors.Wrap(err, "failed to encode event")
		return err
	}

	var out *sns.PublishOutput
	out, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String(SubjectFor(event.EventType)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(orUnknown(event.EventType)),
			},
			"file_key": {
				DataType:    aws.String("String"),
				StringValue: aws.String(orUnknown(event.FileKey)),
			},
		},
	})
	if err != nil {
		err = errors.Wrapf(err, "SNS publish to %s failed", p.topicARN)
		return err
	}

	p.logger.Debug("SNS publish successful", "message_id", aws.ToString(out.MessageId), "event_type", event.EventType)
	return err
}

// Check confirms the topic is reachable.
func (p *SNSPublisher) Check(ctx context.Context) (err error) {
	_, err = p.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
		TopicArn: aws.String(p.topicARN),
	})
	if err != nil {
		err = errors.Wrapf(err, "SNS topic %s is not reachable", p.topicARN)
		return err
	}
	return err
}

// SubjectFor returns the message subject for an event type, cut to MaxSubjectLength.
func SubjectFor(eventType string) (subject string) {
	subject, ok := subjects[eventType]
	if !ok {
		subject = "Resume Processing " + eventType
	}
	if len(subject) > MaxSubjectLength {
		subject = subject[:MaxSubjectLength]
	}
	return subject
}

func orUnknown(s string) (v string) {
	v = s
	if v == "" {
		v = "unknown"
	}
	return v
}
