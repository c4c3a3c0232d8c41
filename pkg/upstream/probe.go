package upstream

import (
	"context"
	"io"
	"net/http"
)

// ProbeStatus is the outcome of a connectivity probe.
type ProbeStatus string

const (
	// ProbeConnected means the base host answered 200.
	ProbeConnected ProbeStatus = "connected"

	// ProbeDisconnected means the base host answered with another status.
	ProbeDisconnected ProbeStatus = "disconnected"

	// ProbeError means the probe did not get a response at all.
	ProbeError ProbeStatus = "error"
)

// Probe issues a lightweight GET against the base host with the probe timeout.
func (c *Client) Probe(ctx context.Context) ProbeStatus {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return ProbeError
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Upstream probe failed")
		return ProbeError
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode == http.StatusOK {
		return ProbeConnected
	}

	c.logger.Warn().Int("status", resp.StatusCode).Msg("Upstream probe returned non-200")
	return ProbeDisconnected
}
