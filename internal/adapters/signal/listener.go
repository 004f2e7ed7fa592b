package signal

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Listener polls signal-cli-rest-api for inbound messages and hands
// each envelope to the handler. Envelopes from different senders are
// processed concurrently; ordering is only guaranteed within one
// message.
type Listener struct {
	client       *Client
	handler      *MessageHandler
	pollInterval time.Duration
	logger       *zap.Logger
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewListener creates a new message listener
func NewListener(client *Client, handler *MessageHandler, pollInterval time.Duration, logger *zap.Logger) *Listener {
	return &Listener{
		client:       client,
		handler:      handler,
		pollInterval: pollInterval,
		logger:       logger,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the receive loop
func (l *Listener) Start() error {
	l.logger.Info("Signal listener starting")
	go l.run()
	return nil
}

// Stop shuts the receive loop down
func (l *Listener) Stop() error {
	close(l.stopCh)
	<-l.doneCh
	return nil
}

func (l *Listener) run() {
	defer close(l.doneCh)

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		envelopes, err := l.client.Receive(context.Background())
		if err != nil {
			l.logger.Error("Failed to receive messages", zap.Error(err))
			select {
			case <-time.After(l.pollInterval):
			case <-l.stopCh:
				return
			}
			continue
		}

		for _, env := range envelopes {
			go l.handler.Handle(context.Background(), env)
		}

		select {
		case <-time.After(l.pollInterval):
		case <-l.stopCh:
			return
		}
	}
}
