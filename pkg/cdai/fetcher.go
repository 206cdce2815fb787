// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// httpFetcher is the production HTTPFetcher, grounded on
// cmd/dashfetcher/app/fetcher.go's downloadToFile: a context-scoped request
// against a shared client, body read fully before the connection is
// released back to the pool.
type httpFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher around client. A nil client uses
// http.DefaultClient.
func NewHTTPFetcher(client *http.Client) HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{client: client}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 400 {
		return body, resp.StatusCode, fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}
