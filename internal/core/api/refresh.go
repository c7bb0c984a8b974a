package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lunaalba-client/internal/shared/httpclient"
	"lunaalba-client/internal/shared/metrics"
)

const refreshEndpoint = "/auth/refresh"

// refreshResult is the backend's token payload; the backend may wrap it in a
// { success, data } envelope or return it bare.
type refreshResult struct {
	AccessToken  string `json:"accessToken"`
	ExpiresIn    int    `json:"expiresIn"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type refreshEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	refreshResult
}

// refreshSession runs the 401-triggered refresh protocol. Concurrent 401s
// coalesce into a single in-flight refresh; every waiter observes the same
// terminal result. Exactly one attempt per flight, so worst-case
// amplification stays at original + one refresh + one replay.
func (c *Client) refreshSession(ctx context.Context) error {
	_, err, shared := c.refreshGroup.Do(refreshEndpoint, func() (any, error) {
		return nil, c.doRefresh(ctx)
	})
	if shared {
		c.log.Debug("joined in-flight token refresh")
	}
	return err
}

func (c *Client) doRefresh(ctx context.Context) error {
	m := metrics.GetAPIClient()

	// The refresh token travels in the body when we hold one; otherwise the
	// request still goes out empty so a cookie-borne refresh can succeed.
	var bodyReader io.Reader
	if stored := c.session.RefreshToken(ctx); stored != "" {
		payload, err := json.Marshal(map[string]string{"refreshToken": stored})
		if err != nil {
			m.Refreshes.WithLabelValues("failure").Inc()
			return err
		}
		bodyReader = bytes.NewReader(payload)
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, c.baseURL+refreshEndpoint, bodyReader)
	if err != nil {
		m.Refreshes.WithLabelValues("failure").Inc()
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	httpclient.ApplyDefaultHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		m.Refreshes.WithLabelValues("failure").Inc()
		c.log.Warn("token refresh request failed", "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		m.Refreshes.WithLabelValues("failure").Inc()
		c.log.Warn("token refresh rejected", "status", resp.StatusCode)
		return fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		m.Refreshes.WithLabelValues("failure").Inc()
		return err
	}

	var env refreshEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.Refreshes.WithLabelValues("failure").Inc()
		return fmt.Errorf("refresh response malformed: %w", err)
	}
	result := env.refreshResult
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			m.Refreshes.WithLabelValues("failure").Inc()
			return fmt.Errorf("refresh response malformed: %w", err)
		}
	}
	if result.AccessToken == "" {
		m.Refreshes.WithLabelValues("failure").Inc()
		return fmt.Errorf("refresh response missing access token")
	}

	c.session.SetAccessToken(result.AccessToken, result.ExpiresIn)
	// Rotation: a returned refresh token fully replaces the old one.
	if result.RefreshToken != "" {
		c.session.SetRefreshToken(ctx, result.RefreshToken)
	}

	m.Refreshes.WithLabelValues("success").Inc()
	c.log.Info("access token refreshed", "expires_in", result.ExpiresIn, "rotated", result.RefreshToken != "")
	return nil
}
