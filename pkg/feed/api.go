package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/teslashibe/go-focus/internal/httpc"
	"github.com/teslashibe/go-focus/pkg/registry"
	"github.com/teslashibe/go-focus/pkg/session"
)

// API starts and stops sessions on a focus server.
type API struct {
	Base string
	HTTP *http.Client
}

// NewAPI returns an API client for the server at base using the shared
// HTTP client.
func NewAPI(base string) *API {
	return &API{Base: strings.TrimRight(base, "/"), HTTP: httpc.Client}
}

type startResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type stopResponse struct {
	Status  string          `json:"status"`
	Result  session.Summary `json:"result"`
	Message string          `json:"message"`
}

// Start creates a session and returns its id.
func (a *API) Start(ctx context.Context, req registry.StartRequest) (string, error) {
	var out startResponse
	if err := a.post(ctx, "/api/sessions", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Stop ends session id and returns the final summary.
func (a *API) Stop(ctx context.Context, id string) (session.Summary, error) {
	var out stopResponse
	if err := a.post(ctx, "/api/sessions/"+id+"/stop", nil, &out); err != nil {
		return session.Summary{}, err
	}
	return out.Result, nil
}

func (a *API) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("feed: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("feed: POST %s: %s: %s", path, resp.Status, e.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
