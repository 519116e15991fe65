package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// client is the thin HTTP wrapper every subcommand shares: base URL, a
// cached bearer token read from disk, and a JSON request/response helper.
type client struct {
	baseURL   string
	tokenPath string
	http      http.Client
}

func (c *client) token() string {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}

func (c *client) saveToken(token string) error {
	return os.WriteFile(c.tokenPath, []byte(token), 0o600)
}

// apiError mirrors the {"detail": "..."} body every handler writes on
// failure.
type apiError struct {
	Detail string `json:"detail"`
}

func (c *client) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpClient := c.http
	if httpClient.Timeout == 0 {
		httpClient.Timeout = 30 * time.Second
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Detail == "" {
			apiErr.Detail = string(data)
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Detail)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// stream issues a GET and copies the raw response body to w as it arrives,
// used by `export` to mirror the server's chunked CSV streaming instead of
// buffering the whole file in memory.
func (c *client) stream(path string, w io.Writer) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &apiErr)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, apiErr.Detail)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
