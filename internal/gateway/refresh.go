package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// refresh renews the access token that was rejected. Concurrent callers share
// one refresh call; a caller whose stale token was already replaced skips it.
func (g *Gateway) refresh(ctx context.Context, stale string) error {
	// The shared call must outlive any single caller's cancellation
	ch := g.refreshes.DoChan(refreshKey, func() (any, error) {
		if current := g.sessions.AccessToken(); current != "" && current != stale {
			g.logger.Debug().Msg("Access token already refreshed by another request")
			return nil, nil
		}
		return nil, g.doRefresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (g *Gateway) doRefresh(ctx context.Context) error {
	refreshToken := g.sessions.RefreshToken()
	if refreshToken == "" {
		return &RefreshError{Err: ErrNoRefreshToken}
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return &RefreshError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	// Never eligible for its own refresh cycle
	resp, err := g.send(ctx, http.MethodPost, RefreshPath, payload, "", firstAttempt().retry())
	if err != nil {
		return &RefreshError{Err: err}
	}

	if !resp.OK() {
		refreshErr := &RefreshError{
			StatusCode: resp.StatusCode,
			Err:        &StatusError{StatusCode: resp.StatusCode, Body: resp.Body},
		}
		if g.logoutOnRefreshRejected && refreshErr.Rejected() {
			g.logger.Warn().Int("status", resp.StatusCode).Msg("Refresh token rejected, ending session")
			if err := g.sessions.Logout(); err != nil {
				g.logger.Error().Err(err).Msg("Failed to clear session after rejected refresh")
			}
		}
		return refreshErr
	}

	var out refreshResponse
	if err := resp.Decode(&out); err != nil {
		return &RefreshError{StatusCode: resp.StatusCode, Err: err}
	}
	if out.Token == "" {
		return &RefreshError{StatusCode: resp.StatusCode, Err: ErrEmptyRefreshBody}
	}

	if err := g.sessions.UpdateTokens(out.Token, out.RefreshToken); err != nil {
		return &RefreshError{StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
