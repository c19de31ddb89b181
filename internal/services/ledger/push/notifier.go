// Package push forwards achievement unlocks to an SNS topic.
package push

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/cenkalti/backoff/v5"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
	"github.com/louisbranch/kalori/internal/services/ledger/render"
)

const (
	defaultQueueSize   = 64
	defaultMaxAttempts = 3
	defaultRegion      = "us-east-1"
)

// Message attribute names set on every published notification.
const (
	AttributeUserID    = "user_id"
	AttributeThreshold = "threshold"
)

// API is the SNS surface the notifier uses.
type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Config configures unlock notifications.
type Config struct {
	TopicARN    string
	Region      string
	Locale      string
	QueueSize   int
	MaxAttempts int
}

// Notifier is a domain.Publisher that sends one SNS message per newly
// unlocked achievement. Publish enqueues; Run performs the sends.
type Notifier struct {
	client      API
	topicARN    string
	localizer   render.Localizer
	maxAttempts uint

	queue    chan domain.RewardUpdate
	stop     chan struct{}
	stopOnce sync.Once
	dropped  atomic.Uint64
	sent     atomic.Uint64
}

// New loads the default AWS configuration and builds a notifier for cfg.
func New(ctx context.Context, cfg Config) (*Notifier, error) {
	if strings.TrimSpace(cfg.TopicARN) == "" {
		return nil, errors.New("sns topic arn is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewNotifier(sns.NewFromConfig(awsCfg), cfg), nil
}

// NewNotifier builds a notifier over an existing SNS client.
func NewNotifier(client API, cfg Config) *Notifier {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Notifier{
		client:      client,
		topicARN:    strings.TrimSpace(cfg.TopicARN),
		localizer:   render.For(cfg.Locale),
		maxAttempts: uint(maxAttempts),
		queue:       make(chan domain.RewardUpdate, queueSize),
		stop:        make(chan struct{}),
	}
}

// Publish implements domain.Publisher. Updates without unlocks are ignored
// and a full queue drops the update.
func (n *Notifier) Publish(_ context.Context, update domain.RewardUpdate) {
	if n == nil || len(update.NewlyUnlocked) == 0 {
		return
	}
	select {
	case <-n.stop:
		n.dropped.Add(1)
		return
	default:
	}
	select {
	case n.queue <- update:
	default:
		n.dropped.Add(1)
		log.Printf("push queue full, dropping unlock: user=%s thresholds=%v", update.State.UserID, update.NewlyUnlocked)
	}
}

// Run sends queued notifications until ctx is done or Close is called. After
// Close it drains what is already queued.
func (n *Notifier) Run(ctx context.Context) error {
	if n == nil || n.client == nil {
		return errors.New("sns client is not configured")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.stop:
			n.drain(ctx)
			return nil
		case update := <-n.queue:
			n.send(ctx, update)
		}
	}
}

// Close stops accepting updates.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.stopOnce.Do(func() { close(n.stop) })
}

// Dropped reports how many updates were discarded.
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}

// Sent reports how many messages SNS accepted.
func (n *Notifier) Sent() uint64 {
	return n.sent.Load()
}

func (n *Notifier) drain(ctx context.Context) {
	for {
		select {
		case update := <-n.queue:
			n.send(ctx, update)
		default:
			return
		}
	}
}

func (n *Notifier) send(ctx context.Context, update domain.RewardUpdate) {
	for _, threshold := range update.NewlyUnlocked {
		input := n.message(update.State.UserID, threshold)
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = 100 * time.Millisecond
		policy.MaxInterval = 2 * time.Second
		_, err := backoff.Retry(ctx, func() (*sns.PublishOutput, error) {
			return n.client.Publish(ctx, input)
		}, backoff.WithBackOff(policy), backoff.WithMaxTries(n.maxAttempts))
		if err != nil {
			log.Printf("push unlock failed: user=%s threshold=%d err=%v", update.State.UserID, threshold, err)
			continue
		}
		n.sent.Add(1)
	}
}

func (n *Notifier) message(userID string, threshold int) *sns.PublishInput {
	return &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(n.localizer.AchievementTitle(threshold)),
		Message:  aws.String(n.localizer.AchievementUnlocked(threshold)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			AttributeUserID: {
				DataType:    aws.String("String"),
				StringValue: aws.String(userID),
			},
			AttributeThreshold: {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(threshold)),
			},
		},
	}
}
