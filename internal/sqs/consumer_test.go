package sqs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSQSConsumerClient is a mock implementation of the SQS client for consumer testing.
type mockSQSConsumerClient struct {
	receiveMessageFunc func(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	deleteMessageFunc  func(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func (m *mockSQSConsumerClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if m.receiveMessageFunc != nil {
		return m.receiveMessageFunc(ctx, params, optFns...)
	}
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{}}, nil
}

func (m *mockSQSConsumerClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if m.deleteMessageFunc != nil {
		return m.deleteMessageFunc(ctx, params, optFns...)
	}
	return &sqs.DeleteMessageOutput{}, nil
}

const createdBody = `{"action":"created","product_id":"123","name":"Phone X","price":150000,"category":"smartphone","image":null}`

func TestConsumer_processMessage(t *testing.T) {
	t.Run("decodes message and calls handler", func(t *testing.T) {
		// given
		var got ProductMessage
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, func(_ context.Context, msg ProductMessage) error {
			got = msg
			return nil
		})

		message := types.Message{
			Body:          aws.String(createdBody),
			ReceiptHandle: aws.String("test-receipt-handle"),
		}

		// when
		err := consumer.processMessage(context.Background(), message)

		// then
		require.NoError(t, err)
		assert.Equal(t, ActionCreated, got.Action)
		assert.Equal(t, "smartphone", got.Category)
		assert.Nil(t, got.Image)
	})

	t.Run("default handler logs", func(t *testing.T) {
		// given
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, nil)

		// when
		err := consumer.processMessage(context.Background(), types.Message{Body: aws.String(createdBody)})

		// then
		require.NoError(t, err)
	})

	t.Run("nil message body", func(t *testing.T) {
		// given
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, nil)

		// when
		err := consumer.processMessage(context.Background(), types.Message{ReceiptHandle: aws.String("test-receipt-handle")})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "message body is nil")
	})

	t.Run("invalid JSON message body", func(t *testing.T) {
		// given
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, nil)

		// when
		err := consumer.processMessage(context.Background(), types.Message{Body: aws.String(`{"invalid json`)})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal message")
	})

	t.Run("handler failure", func(t *testing.T) {
		// given
		handlerErr := errors.New("downstream unavailable")
		consumer := NewConsumer(&mockSQSConsumerClient{}, testQueueURL, func(context.Context, ProductMessage) error {
			return handlerErr
		})

		// when
		err := consumer.processMessage(context.Background(), types.Message{Body: aws.String(createdBody)})

		// then
		require.ErrorIs(t, err, handlerErr)
	})
}

func TestConsumer_deleteMessage(t *testing.T) {
	t.Run("successful message deletion", func(t *testing.T) {
		// given
		mockClient := &mockSQSConsumerClient{
			deleteMessageFunc: func(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
				assert.Equal(t, testQueueURL, *params.QueueUrl)
				assert.Equal(t, "test-receipt-handle", aws.ToString(params.ReceiptHandle))
				return &sqs.DeleteMessageOutput{}, nil
			},
		}
		consumer := NewConsumer(mockClient, testQueueURL, nil)

		// when
		err := consumer.deleteMessage(context.Background(), types.Message{ReceiptHandle: aws.String("test-receipt-handle")})

		// then
		require.NoError(t, err)
	})

	t.Run("error deleting message", func(t *testing.T) {
		// given
		mockClient := &mockSQSConsumerClient{
			deleteMessageFunc: func(_ context.Context, _ *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
				return nil, errors.New("failed to delete")
			},
		}
		consumer := NewConsumer(mockClient, testQueueURL, nil)

		// when
		err := consumer.deleteMessage(context.Background(), types.Message{ReceiptHandle: aws.String("test-receipt-handle")})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete message")
	})
}

func TestConsumer_receiveMessages(t *testing.T) {
	t.Run("processed messages are deleted", func(t *testing.T) {
		// given
		var deleted []string
		mockClient := &mockSQSConsumerClient{
			receiveMessageFunc: func(_ context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
				assert.Equal(t, testQueueURL, *params.QueueUrl)
				assert.Equal(t, int32(10), params.MaxNumberOfMessages)
				assert.Equal(t, int32(20), params.WaitTimeSeconds)
				return &sqs.ReceiveMessageOutput{
					Messages: []types.Message{
						{Body: aws.String(createdBody), ReceiptHandle: aws.String("ok")},
						{Body: aws.String(`{"invalid json`), ReceiptHandle: aws.String("bad")},
					},
				}, nil
			},
			deleteMessageFunc: func(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
				deleted = append(deleted, aws.ToString(params.ReceiptHandle))
				return &sqs.DeleteMessageOutput{}, nil
			},
		}
		consumer := NewConsumer(mockClient, testQueueURL, nil)

		// when
		err := consumer.receiveMessages(context.Background())

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"ok"}, deleted)
	})

	t.Run("handles receive message error", func(t *testing.T) {
		// given
		mockClient := &mockSQSConsumerClient{
			receiveMessageFunc: func(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
				return nil, errors.New("failed to receive")
			},
		}
		consumer := NewConsumer(mockClient, testQueueURL, nil)

		// when
		err := consumer.receiveMessages(context.Background())

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to receive messages")
	})
}

func TestConsumer_Start(t *testing.T) {
	// given
	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan ProductMessage, 1)

	mockClient := &mockSQSConsumerClient{
		receiveMessageFunc: func(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
			return &sqs.ReceiveMessageOutput{
				Messages: []types.Message{{Body: aws.String(createdBody), ReceiptHandle: aws.String("h")}},
			}, nil
		},
	}
	consumer := NewConsumer(mockClient, testQueueURL, func(_ context.Context, msg ProductMessage) error {
		select {
		case handled <- msg:
		default:
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	// when
	msg := <-handled
	cancel()

	// then
	assert.Equal(t, "123", msg.ProductID)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
}
