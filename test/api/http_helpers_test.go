package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/nightswipe/api/internal/modules/auth"

	"github.com/stretchr/testify/require"
)

type responseAssertion func(*http.Response)

func expectStatus(t *testing.T, expected int) responseAssertion {
	return func(resp *http.Response) {
		require.Equal(t, expected, resp.StatusCode)
	}
}

func sendRequest[TReq any, TResp any](
	c *http.Client,
	url string,
	method string,
	userID string,
	req TReq,
	opts ...responseAssertion,
) (TResp, error) {
	var resp TResp

	payload, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return resp, err
	}

	if userID != "" {
		verifier := auth.NewTokenVerifier(fixture.jwtSecret)
		token, err := verifier.IssueToken(userID, time.Hour)
		if err != nil {
			return resp, err
		}

		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.Do(httpReq)
	if err != nil {
		return resp, err
	}

	for _, opt := range opts {
		opt(httpResp)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	responsePayload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return resp, err
	}

	if len(responsePayload) > 0 {
		if err := json.Unmarshal(responsePayload, &resp); err != nil {
			return resp, err
		}
	}

	return resp, err
}
