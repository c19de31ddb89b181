package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
)

type fakeSNS struct {
	mu       sync.Mutex
	inputs   []*sns.PublishInput
	failures int
	sent     chan struct{}
}

func newFakeSNS() *fakeSNS {
	return &fakeSNS{sent: make(chan struct{}, 16)}
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("throttled")
	}
	f.inputs = append(f.inputs, params)
	f.mu.Unlock()
	f.sent <- struct{}{}
	return &sns.PublishOutput{MessageId: aws.String("m")}, nil
}

func (f *fakeSNS) snapshot() []*sns.PublishInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sns.PublishInput(nil), f.inputs...)
}

func waitSent(t *testing.T, f *fakeSNS, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case <-f.sent:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i+1)
		}
	}
}

func unlockUpdate(userID string, total int, thresholds ...int) domain.RewardUpdate {
	return domain.RewardUpdate{
		State:         domain.RewardState{UserID: userID, TotalCoins: total},
		NewlyUnlocked: thresholds,
	}
}

func TestNotifierSendsOneMessagePerUnlock(t *testing.T) {
	t.Parallel()

	client := newFakeSNS()
	notifier := NewNotifier(client, Config{TopicARN: "arn:aws:sns:ap-southeast-1:1:unlocks"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- notifier.Run(ctx) }()

	notifier.Publish(ctx, unlockUpdate("user-1", 520, 100, 500))
	waitSent(t, client, 2)

	inputs := client.snapshot()
	if len(inputs) != 2 {
		t.Fatalf("messages = %d, want 2", len(inputs))
	}
	first := inputs[0]
	if aws.ToString(first.TopicArn) != "arn:aws:sns:ap-southeast-1:1:unlocks" {
		t.Fatalf("topic = %q", aws.ToString(first.TopicArn))
	}
	if got := aws.ToString(first.MessageAttributes[AttributeUserID].StringValue); got != "user-1" {
		t.Fatalf("user attribute = %q", got)
	}
	if got := aws.ToString(first.MessageAttributes[AttributeThreshold].StringValue); got != "100" {
		t.Fatalf("threshold attribute = %q", got)
	}
	if got := aws.ToString(first.Message); got != "Achievement unlocked: First Steps (100 coins)" {
		t.Fatalf("message = %q", got)
	}
	if notifier.Sent() != 2 {
		t.Fatalf("sent = %d, want 2", notifier.Sent())
	}

	notifier.Close()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestNotifierIgnoresUpdatesWithoutUnlocks(t *testing.T) {
	t.Parallel()

	client := newFakeSNS()
	notifier := NewNotifier(client, Config{TopicARN: "arn"})
	notifier.Publish(context.Background(), unlockUpdate("user-1", 40))
	notifier.Close()
	if err := notifier.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(client.snapshot()); got != 0 {
		t.Fatalf("messages = %d, want 0", got)
	}
}

func TestNotifierRetriesFailedSends(t *testing.T) {
	t.Parallel()

	client := newFakeSNS()
	client.failures = 1
	notifier := NewNotifier(client, Config{TopicARN: "arn", MaxAttempts: 3})
	notifier.Publish(context.Background(), unlockUpdate("user-1", 100, 100))
	notifier.Close()
	if err := notifier.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(client.snapshot()); got != 1 {
		t.Fatalf("messages = %d, want 1", got)
	}
}

func TestNotifierDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	notifier := NewNotifier(newFakeSNS(), Config{TopicARN: "arn", QueueSize: 1})
	notifier.Publish(context.Background(), unlockUpdate("user-1", 100, 100))
	notifier.Publish(context.Background(), unlockUpdate("user-1", 500, 500))
	if got := notifier.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}

	notifier.Close()
	notifier.Publish(context.Background(), unlockUpdate("user-1", 1000, 1000))
	if got := notifier.Dropped(); got != 2 {
		t.Fatalf("dropped after close = %d, want 2", got)
	}
}

func TestNotifierLocalizesMessages(t *testing.T) {
	t.Parallel()

	notifier := NewNotifier(newFakeSNS(), Config{TopicARN: "arn", Locale: "id-ID"})
	input := notifier.message("user-1", 100)
	if aws.ToString(input.Message) == "Achievement unlocked: First Steps (100 coins)" {
		t.Fatalf("expected localized message, got %q", aws.ToString(input.Message))
	}
}
