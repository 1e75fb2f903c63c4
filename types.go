package proteinagent

import (
	"context"
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SlackClient posts messages for human review of low-quality analyses.
type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}
