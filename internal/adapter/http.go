package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-organizer/internal/config"
	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/session"
)

// HTTPRemoteStore is the REST implementation of [RemoteStore] and, through
// listener.go, of [SnapshotSource].
type HTTPRemoteStore struct {
	client  *resty.Client
	baseURL string
	session session.Source
	logger  *logger.Logger

	listenBackoff    time.Duration
	listenBackoffMax time.Duration
}

// NewHTTPRemoteStore constructs an HTTP/REST client for the remote document
// store. It normalises and validates the base URL from cfg.BaseURL and
// configures the underlying client with the resolved base URL and request
// timeout. The bearer token is read from sess per request, so a session
// change is picked up without rebuilding the adapter.
//
// Returns an error if cfg.BaseURL is empty or cannot be parsed as a valid
// URL.
func NewHTTPRemoteStore(cfg config.Remote, sess session.Source, log *logger.Logger) (*HTTPRemoteStore, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote store address: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout)

	return &HTTPRemoteStore{
		client:           client,
		baseURL:          baseURL,
		session:          sess,
		logger:           log,
		listenBackoff:    listenInitialBackoff,
		listenBackoffMax: listenMaxBackoff,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// PutDocument implements [RemoteStore]. It PUTs the payload to
// PUT /users/{userId}/{collection}/{id}.
func (h *HTTPRemoteStore) PutDocument(ctx context.Context, userID, collection, id string, payload json.RawMessage) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody([]byte(payload)).
		Put(documentPath(userID, collection, id))
	if err != nil {
		return fmt.Errorf("%w: put document request: %w", ErrRemoteUnavailable, err)
	}

	return mapHTTPError(resp)
}

// DeleteDocument implements [RemoteStore]. It sends
// DELETE /users/{userId}/{collection}/{id}; a 404 from the remote is
// treated as success since the desired state already holds.
func (h *HTTPRemoteStore) DeleteDocument(ctx context.Context, userID, collection, id string) error {
	resp, err := h.authedRequest(ctx).
		Delete(documentPath(userID, collection, id))
	if err != nil {
		return fmt.Errorf("%w: delete document request: %w", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() == 404 {
		return nil
	}

	return mapHTTPError(resp)
}

type batchRequest struct {
	Documents map[string]json.RawMessage `json:"documents"`
}

type batchResponse struct {
	Failed map[string]string `json:"failed,omitempty"`
}

// PutBatch implements [RemoteStore]. It POSTs every document in one request
// to POST /users/{userId}/{collection}/batch and returns the per-document
// failures the remote reports.
func (h *HTTPRemoteStore) PutBatch(ctx context.Context, userID, collection string, docs map[string]json.RawMessage) (map[string]string, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(batchRequest{Documents: docs}).
		Post(collectionPath(userID, collection) + "/batch")
	if err != nil {
		return nil, fmt.Errorf("%w: batch request: %w", ErrRemoteUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var br batchResponse
	if len(resp.Body()) > 0 {
		if err = json.Unmarshal(resp.Body(), &br); err != nil {
			return nil, fmt.Errorf("decode batch response: %w", err)
		}
	}

	return br.Failed, nil
}

// PutSettings implements [RemoteStore]. It PATCHes the user document root
// PATCH /users/{userId} with the settings blob under a "settings" field,
// replacing the previous blob wholesale.
func (h *HTTPRemoteStore) PutSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	body := map[string]json.RawMessage{"settings": settings}

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Patch("/users/" + url.PathEscape(userID))
	if err != nil {
		return fmt.Errorf("%w: put settings request: %w", ErrRemoteUnavailable, err)
	}

	return mapHTTPError(resp)
}

func (h *HTTPRemoteStore) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if sess, ok := h.session.Current(); ok && sess.Token != "" {
		req.SetHeader("Authorization", "Bearer "+sess.Token)
	}
	return req
}

func documentPath(userID, collection, id string) string {
	return collectionPath(userID, collection) + "/" + url.PathEscape(id)
}

func collectionPath(userID, collection string) string {
	return "/users/" + url.PathEscape(userID) + "/" + url.PathEscape(collection)
}
