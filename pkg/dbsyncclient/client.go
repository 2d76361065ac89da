// Package dbsyncclient implements the "dbsync" protocol of spec.md §6: a
// typed, JSON-over-HTTP client to the per-cloud dbsync endpoint exposing
// users/projects/roles/assignments/revoke_events as backend records
// rather than identity-API DTOs (spec.md §4.1).
//
// Grounded on the teacher's pkg/alerting/heartbeat/cronitor.go: a small
// hand-rolled HTTPClient interface (not a generated SDK) plus sentinel
// errors translated from HTTP status codes, since the dbsync surface is
// a bespoke bilateral protocol with no existing OpenAPI client in the
// pack.
package dbsyncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
)

// HTTPDoer is the minimal interface dbsyncclient needs from an HTTP
// client, allowing tests to substitute a fake.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a typed RPC client to one cloud's dbsync endpoint (spec.md
// §4.1). One Client is constructed per cloud (master, and one per
// subcloud) and reused across sync threads for that cloud.
type Client struct {
	baseURL *url.URL
	http    HTTPDoer
	session *Session
}

// NewClient builds a Client against baseURL, authenticating via session.
func NewClient(baseURL string, session *Session, doer HTTPDoer) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("dbsyncclient: parse base url: %w", err)
	}
	if doer == nil {
		doer = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}
	return &Client{baseURL: u, http: doer, session: session}, nil
}

// InvalidateSession drops this client's cached bearer token, used after a
// users.update on the bootstrap "admin" account whose password may have
// just changed under us (spec.md §4.4 users.update).
func (c *Client) InvalidateSession() {
	if c.session != nil {
		c.session.Invalidate()
	}
}

// do issues one dbsync call and classifies the result per spec.md §4.1/§7.
// body (if non-nil) is JSON-marshaled as the request body; out (if
// non-nil) receives the JSON-decoded response body.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return syncerrors.New(op, syncerrors.KindInternal, err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := *c.baseURL
	u.Path = u.Path + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return syncerrors.New(op, syncerrors.KindInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session != nil {
		token, err := c.session.Token(ctx)
		if err != nil {
			return syncerrors.New(op, syncerrors.KindUnauthorized, err)
		}
		req.Header.Set("X-Auth-Token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// connect timeout / connection failure (spec.md §4.1).
		return syncerrors.New(op, syncerrors.KindUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncerrors.New(op, syncerrors.KindUnreachable, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if out == nil {
			return nil
		}
		if len(respBody) == 0 {
			// 2xx with empty body where a record was expected
			// (spec.md §4.1).
			return syncerrors.New(op, syncerrors.KindEmptyResponse, nil)
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return syncerrors.New(op, syncerrors.KindInternal, err)
		}
		return nil
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return syncerrors.New(op, syncerrors.KindNotFound, nil)
	case http.StatusUnauthorized:
		return syncerrors.New(op, syncerrors.KindUnauthorized, nil)
	case http.StatusBadRequest:
		return syncerrors.New(op, syncerrors.KindBadRequest, fmt.Errorf("%s", respBody))
	case http.StatusConflict:
		return syncerrors.New(op, syncerrors.KindConflict, nil)
	default:
		return syncerrors.New(op, syncerrors.KindInternal, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody))
	}
}
