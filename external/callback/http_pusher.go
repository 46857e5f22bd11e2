package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/showheysas/tech0notta/internal/callback"
)

const errorBodyMaxBytes = 512

// HTTPPusher posts to the live session endpoints rooted at callbackURL,
// which is `<server>/api/live/segments/<session id>`.
type HTTPPusher struct {
	callbackURL string
	client      *http.Client
}

func NewHTTPPusher(callbackURL string, client *http.Client) callback.Pusher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPPusher{
		callbackURL: strings.TrimRight(callbackURL, "/"),
		client:      client,
	}
}

func (p *HTTPPusher) Init(ctx context.Context, meetingID, topic string) error {
	q := url.Values{}
	q.Set("meeting_id", meetingID)
	if topic != "" {
		q.Set("meeting_topic", topic)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.callbackURL+"/init?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return p.do(req)
}

func (p *HTTPPusher) Push(ctx context.Context, seg callback.Segment) error {
	b, err := json.Marshal(seg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.callbackURL+"/push", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req)
}

func (p *HTTPPusher) do(req *http.Request) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxBytes))
		return fmt.Errorf("%s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
