package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mbathio/find-and-returned/internal/domain"
	"github.com/mbathio/find-and-returned/internal/observability"
)

type refreshResult struct {
	token string
	err   error
}

// freshToken returns a usable access token, refreshing it at most once
// across all concurrent callers.
//
// Rules, in order:
//   - a token already in storage (refreshed concurrently by another
//     caller) is returned as-is without any network call;
//   - while a refresh is in flight, callers park on a channel and
//     receive that refresh's outcome;
//   - otherwise this caller becomes the leader, re-reads storage so it
//     never replays a refresh token a previous leader already rotated,
//     and issues exactly one refresh request;
//   - without a refresh token the session is unrecoverable.
func (c *Client) freshToken(ctx context.Context) (string, error) {
	if tok := c.store.AccessToken(); tok != "" {
		observability.TokenRefreshTotal.WithLabelValues(observability.RefreshOutcomeShortCircuit).Inc()
		return tok, nil
	}

	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		observability.TokenRefreshWaiters.Inc()
		select {
		case <-ctx.Done():
			return "", transportError(ctx.Err())
		case res := <-ch:
			return res.token, res.err
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	// Storage must be read again under leadership. Between the
	// short-circuit check and here a previous leader may have finished:
	// its refresh already persisted a fresh token pair, and replaying
	// the consumed refresh token against a rotating server would get a
	// 401 and tear down the session it just established.
	if tok := c.store.AccessToken(); tok != "" {
		observability.TokenRefreshTotal.WithLabelValues(observability.RefreshOutcomeShortCircuit).Inc()
		c.finishRefresh(refreshResult{token: tok})
		return tok, nil
	}

	refreshToken := c.store.RefreshToken()
	if refreshToken == "" {
		observability.TokenRefreshTotal.WithLabelValues(observability.RefreshOutcomeFailure).Inc()
		c.clearAuthAndRedirect()
		c.finishRefresh(refreshResult{err: domain.ErrNoRefreshToken})
		return "", domain.ErrNoRefreshToken
	}

	token, err := c.refreshOnce(ctx, refreshToken)
	if err != nil {
		observability.TokenRefreshTotal.WithLabelValues(observability.RefreshOutcomeFailure).Inc()
		// The whole round is fatal: wipe the session before any
		// waiter observes the failure.
		c.clearAuthAndRedirect()
	} else {
		observability.TokenRefreshTotal.WithLabelValues(observability.RefreshOutcomeSuccess).Inc()
	}

	c.finishRefresh(refreshResult{token: token, err: err})
	return token, err
}

// finishRefresh releases leadership and hands res to every caller that
// parked while this leader held it.
func (c *Client) finishRefresh(res refreshResult) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- res
	}
}

// refreshOnce performs the single network call to the refresh endpoint.
// It deliberately bypasses the request pipeline so a 401 from the
// refresh endpoint itself can never recurse into another refresh.
func (c *Client) refreshOnce(ctx context.Context, refreshToken string) (string, error) {
	log := observability.FromContext(ctx)
	log.Debug("refreshing access token")

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("auth/refresh"), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp.StatusCode, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	var auth domain.AuthResponse
	if err := json.Unmarshal(env.Data, &auth); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if auth.AccessToken == "" {
		return "", domain.ErrInvalidRefresh
	}

	if err := c.store.SetTokens(auth.AccessToken, auth.RefreshToken); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	if auth.TokenType != "" {
		c.setScheme(auth.TokenType)
	}

	log.Debug("access token refreshed", slog.String("scheme", c.scheme()))
	return auth.AccessToken, nil
}
