package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lxc/incus/v6/shared/api"
)

func doQuery(ctx context.Context, do func(req *http.Request) (*http.Response, error), method string, path string, inData any, etag string) (*api.Response, string, error) {
	var body io.Reader

	// Encode the provided data
	if inData != nil {
		buf := bytes.Buffer{}

		err := json.NewEncoder(&buf).Encode(inData)
		if err != nil {
			return nil, "", err
		}

		body = bytes.NewReader(buf.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return nil, "", err
	}

	if inData != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Set the ETag
	if etag != "" {
		req.Header.Set("If-Match", etag)
	}

	// Send the request
	resp, err := do(req)
	if err != nil {
		return nil, "", err
	}

	defer func() { _ = resp.Body.Close() }()

	// Decode the response
	decoder := json.NewDecoder(resp.Body)
	response := api.Response{}

	err = decoder.Decode(&response)
	if err != nil {
		// Check the return value for a cleaner error
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, "", fmt.Errorf("failed to fetch %s: %s", path, resp.Status)
		}

		return nil, "", err
	}

	// Handle errors
	if response.Type == api.ErrorResponse {
		return &response, "", api.StatusErrorf(resp.StatusCode, "%v", response.Error)
	}

	return &response, resp.Header.Get("ETag"), nil
}
