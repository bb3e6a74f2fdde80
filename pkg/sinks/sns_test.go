package sinks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSSinkNotifySuccess(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{
		id:       "topic",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:::alerts",
		client:   client,
		log:      noopLogger{},
	}

	err := sink.Notify(context.Background(), Alert{TargetID: "t1", State: StateRecovered})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::alerts" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["target_id"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != "t1" {
		t.Fatalf("target_id attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if client.input.Message == nil || !strings.Contains(aws.ToString(client.input.Message), `"target_id":"t1"`) {
		t.Fatalf("Message missing target_id: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSSinkNotifyError(t *testing.T) {
	client := &fakeSNSClient{err: errors.New("boom")}
	sink := &snsSink{
		id:       "topic",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:::alerts",
		client:   client,
		log:      noopLogger{},
	}

	if err := sink.Notify(context.Background(), Alert{TargetID: "t1"}); err == nil {
		t.Fatalf("expected error from Notify")
	}
}
