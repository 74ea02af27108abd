package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789/catalog-events"

// mockSQSClient is a mock implementation of the SQS client for testing.
type mockSQSClient struct {
	sendMessageFunc func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func (m *mockSQSClient) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, params, optFns...)
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestPublisher_PublishProductMessage(t *testing.T) {
	t.Run("successful message publish", func(t *testing.T) {
		// given
		ctx := context.Background()
		image := "/uploads/1-abc.png"

		var sent ProductMessage
		mockClient := &mockSQSClient{
			sendMessageFunc: func(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				assert.Equal(t, testQueueURL, *params.QueueUrl)
				assert.Equal(t, ActionUpdated, aws.ToString(params.MessageAttributes["action"].StringValue))
				require.NoError(t, json.Unmarshal([]byte(aws.ToString(params.MessageBody)), &sent))
				return &sqs.SendMessageOutput{
					MessageId: aws.String("test-message-id"),
				}, nil
			},
		}
		publisher := NewPublisher(mockClient, testQueueURL)

		msg := ProductMessage{
			Action:    ActionUpdated,
			ProductID: "123",
			Name:      "Phone X",
			Price:     150000,
			Category:  "smartphone",
			Image:     &image,
		}

		// when
		err := publisher.PublishProductMessage(ctx, msg)

		// then
		require.NoError(t, err)
		assert.Equal(t, msg.ProductID, sent.ProductID)
		assert.Equal(t, msg.Category, sent.Category)
		require.NotNil(t, sent.Image)
		assert.Equal(t, image, *sent.Image)
	})

	t.Run("null image is kept explicit", func(t *testing.T) {
		// given
		var body string
		mockClient := &mockSQSClient{
			sendMessageFunc: func(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				body = aws.ToString(params.MessageBody)
				return &sqs.SendMessageOutput{}, nil
			},
		}
		publisher := NewPublisher(mockClient, testQueueURL)

		// when
		err := publisher.PublishProductMessage(context.Background(), ProductMessage{Action: ActionCreated, ProductID: "1"})

		// then
		require.NoError(t, err)
		assert.Contains(t, body, `"image":null`)
	})

	t.Run("error sending message", func(t *testing.T) {
		// given
		expectedErr := errors.New("failed to send message")
		mockClient := &mockSQSClient{
			sendMessageFunc: func(_ context.Context, _ *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				return nil, expectedErr
			},
		}
		publisher := NewPublisher(mockClient, testQueueURL)

		// when
		err := publisher.PublishProductMessage(context.Background(), ProductMessage{Action: ActionDeleted, ProductID: "123"})

		// then
		require.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to send message to SQS")
	})
}

func TestNewPublisher(t *testing.T) {
	// when
	publisher := NewPublisher(&mockSQSClient{}, testQueueURL)

	// then
	require.NotNil(t, publisher)
	assert.Equal(t, testQueueURL, publisher.queueURL)
}
