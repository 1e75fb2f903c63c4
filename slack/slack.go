package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"proteinagent"
	"proteinagent/feedback"
	"proteinagent/pipeline"

	"github.com/rotisserie/eris"
)

// Client posts plain-text messages to a Slack incoming webhook.
type Client struct {
	webhookURL string
	httpClient proteinagent.HTTPClient
}

func NewClient(webhookURL string, httpClient proteinagent.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return eris.Wrap(err, "failed to marshal slack payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "failed to build slack request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "failed to send slack webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return eris.Errorf("failed to post message: %s %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}

// Reviewer forwards poorly rated feedback and unresolved analyses to a review channel.
type Reviewer struct {
	client  proteinagent.SlackClient
	channel string
}

func NewReviewer(client proteinagent.SlackClient, channel string) *Reviewer {
	return &Reviewer{client: client, channel: channel}
}

// FeedbackReceived posts the feedback if it asks for review. It reports whether a
// message was sent.
func (r *Reviewer) FeedbackReceived(ctx context.Context, sub feedback.Submission, feedbackID string) (bool, error) {
	if !sub.NeedsReview() {
		return false, nil
	}
	return true, r.client.PostMessage(ctx, r.channel, feedback.ReviewMessage(sub, feedbackID))
}

// AnalysisCompleted posts analyses that left foods unmatched so the reference table
// can be extended. It reports whether a message was sent.
func (r *Reviewer) AnalysisCompleted(ctx context.Context, a pipeline.Analysis) (bool, error) {
	if !a.Success || len(a.UnmatchedFoods) == 0 {
		return false, nil
	}
	names := make([]string, 0, len(a.UnmatchedFoods))
	for _, u := range a.UnmatchedFoods {
		names = append(names, u.Observation.Name)
	}
	msg := fmt.Sprintf("Analysis %s left %d food(s) unmatched: %s", a.ID, len(names), strings.Join(names, ", "))
	return true, r.client.PostMessage(ctx, r.channel, msg)
}
