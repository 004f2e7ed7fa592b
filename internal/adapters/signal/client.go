package signal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client talks to a signal-cli-rest-api instance over HTTP. It covers
// the three calls the bot needs: send text, send text with an image
// attachment, and receive pending envelopes.
type Client struct {
	serviceURL  string
	phoneNumber string
	httpClient  *http.Client
	logger      *zap.Logger
}

// Envelope is one inbound message
type Envelope struct {
	SourceUUID   string
	SourceNumber string
	Message      string
	GroupID      string
	Reaction     *Reaction
}

// Reaction is an emoji reaction to an earlier message
type Reaction struct {
	Emoji               string
	TargetAuthor        string
	TargetSentTimestamp int64
	IsRemove            bool
}

// ReplyTo returns the recipient to use when replying: the group for
// group messages, otherwise the sender
func (e Envelope) ReplyTo() string {
	if e.GroupID != "" {
		return "group." + e.GroupID
	}
	return e.SourceNumber
}

// NewClient creates a new signal-cli-rest-api client
func NewClient(serviceURL, phoneNumber string, receiveTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		serviceURL:  serviceURL,
		phoneNumber: phoneNumber,
		// Receive long-polls, so the HTTP timeout must exceed it
		httpClient: &http.Client{Timeout: receiveTimeout + 15*time.Second},
		logger:     logger,
	}
}

type sendRequest struct {
	Message           string   `json:"message"`
	Number            string   `json:"number"`
	Recipients        []string `json:"recipients"`
	Base64Attachments []string `json:"base64_attachments,omitempty"`
}

// Send delivers a text message. Implements core.Notifier.
func (c *Client) Send(ctx context.Context, destination, text string) error {
	return c.send(ctx, destination, text, nil)
}

// SendWithAttachment delivers a text message with one image attachment
func (c *Client) SendWithAttachment(ctx context.Context, destination, text string, attachment []byte) error {
	encoded := base64.StdEncoding.EncodeToString(attachment)
	return c.send(ctx, destination, text, []string{encoded})
}

type deleteRequest struct {
	Recipient string `json:"recipient"`
	Timestamp int64  `json:"timestamp"`
}

// DeleteMessage remotely deletes a message the bot sent earlier,
// identified by its sent timestamp
func (c *Client) DeleteMessage(ctx context.Context, destination string, timestamp int64) error {
	body, err := json.Marshal(deleteRequest{
		Recipient: destination,
		Timestamp: timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode delete request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/messages/%s", c.serviceURL, url.PathEscape(c.phoneNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("delete rejected with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) send(ctx context.Context, destination, text string, attachments []string) error {
	body, err := json.Marshal(sendRequest{
		Message:           text,
		Number:            c.phoneNumber,
		Recipients:        []string{destination},
		Base64Attachments: attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/v2/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send rejected with status %d", resp.StatusCode)
	}
	return nil
}

// receivedMessage mirrors signal-cli-rest-api's receive payload
type receivedMessage struct {
	Envelope struct {
		SourceUUID   string `json:"sourceUuid"`
		SourceNumber string `json:"sourceNumber"`
		DataMessage  *struct {
			Message   string `json:"message"`
			GroupInfo *struct {
				GroupID string `json:"groupId"`
			} `json:"groupInfo"`
			Reaction *struct {
				Emoji               string `json:"emoji"`
				TargetAuthor        string `json:"targetAuthor"`
				TargetSentTimestamp int64  `json:"targetSentTimestamp"`
				IsRemove            bool   `json:"isRemove"`
			} `json:"reaction"`
		} `json:"dataMessage"`
	} `json:"envelope"`
}

// Receive long-polls for pending envelopes. Envelopes carrying neither
// a text body nor a reaction (receipts, typing indicators) are dropped
// here.
func (c *Client) Receive(ctx context.Context) ([]Envelope, error) {
	u := fmt.Sprintf("%s/v1/receive/%s", c.serviceURL, url.PathEscape(c.phoneNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build receive request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("receive rejected with status %d", resp.StatusCode)
	}

	var raw []receivedMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode receive response: %w", err)
	}

	var envelopes []Envelope
	for _, m := range raw {
		dm := m.Envelope.DataMessage
		if dm == nil || (dm.Message == "" && dm.Reaction == nil) {
			continue
		}
		env := Envelope{
			SourceUUID:   m.Envelope.SourceUUID,
			SourceNumber: m.Envelope.SourceNumber,
			Message:      dm.Message,
		}
		if dm.GroupInfo != nil {
			env.GroupID = dm.GroupInfo.GroupID
		}
		if dm.Reaction != nil {
			env.Reaction = &Reaction{
				Emoji:               dm.Reaction.Emoji,
				TargetAuthor:        dm.Reaction.TargetAuthor,
				TargetSentTimestamp: dm.Reaction.TargetSentTimestamp,
				IsRemove:            dm.Reaction.IsRemove,
			}
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, nil
}
