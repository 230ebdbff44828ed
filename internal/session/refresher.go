package session

import (
	"context"
	"time"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// refreshFraction of the access token lifetime after which the silent
// refresh fires, leaving headroom before server-side expiry.
const refreshFraction = 0.8

type refresher struct {
	stop chan struct{}
	done chan struct{}
}

// scheduleRefresh starts the silent token refresher when a usable
// lifetime hint exists. Without a hint no refresher runs — expiry is
// then discovered via a failed call, which the auth-failure path
// recovers from.
func (m *RemoteManager) scheduleRefresh(expiresIn int, accessToken string) {
	wait := refreshInterval(expiresIn, accessToken)
	if wait <= 0 {
		m.logger.Debug("refresher: no token lifetime hint, relying on 401 recovery")
		return
	}

	m.mu.Lock()
	m.stopRefresherLocked()
	r := &refresher{stop: make(chan struct{}), done: make(chan struct{})}
	m.refresher = r
	m.mu.Unlock()

	go m.refreshLoop(r, wait)
}

func (m *RemoteManager) refreshLoop(r *refresher, wait time.Duration) {
	defer close(r.done)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-timer.C:
			refreshToken := m.vault.RefreshToken()
			if refreshToken == "" {
				return
			}

			resp, err := m.api.Refresh(context.Background(), refreshToken)
			if err != nil {
				// Non-fatal: the next authenticated call hits the
				// 401 path and tears the session down cleanly.
				m.logger.Warn("silent refresh failed", zap.Error(err))
				return
			}

			if !m.commitRotatedTokens(r, resp) {
				// The session ended while the rotation was in flight.
				// Writing the pair now would resurrect it on the next
				// bootstrap.
				m.logger.Debug("silent refresh: session ended mid-rotation, dropping tokens")
				return
			}
			m.metrics.IncrSessionTransition("active", "refresh")
			m.logger.Debug("silent refresh: tokens rotated")

			next := refreshInterval(resp.ExpiresIn, resp.AccessToken)
			if next <= 0 {
				return
			}
			timer.Reset(next)
		}
	}
}

// commitRotatedTokens stores a rotated pair only if the session that
// started the rotation is still the live one: same refresher, still
// active. Teardown clears the vault under the same lock, so a logout or
// auth failure racing the rotation cannot be overwritten.
func (m *RemoteManager) commitRotatedTokens(r *refresher, resp *domain.LoginResponse) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refresher != r || m.phase != PhaseActive {
		return false
	}
	m.vault.SetTokens(resp.AccessToken, resp.RefreshToken)
	return true
}

// stopRefresherLocked stops any running refresher. Caller holds mu.
func (m *RemoteManager) stopRefresherLocked() {
	if m.refresher != nil {
		close(m.refresher.stop)
		m.refresher = nil
	}
}

// refreshInterval derives the refresh wait from the expiresIn field,
// falling back to the token's exp claim. The claim is read unverified
// purely as a scheduling hint — the token stays opaque for every
// authorization purpose and is never trusted locally.
func refreshInterval(expiresIn int, accessToken string) time.Duration {
	ttl := time.Duration(expiresIn) * time.Second
	if ttl <= 0 {
		ttl = tokenLifetimeHint(accessToken)
	}
	if ttl <= 0 {
		return 0
	}

	wait := time.Duration(float64(ttl) * refreshFraction)
	if wait < 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}

func tokenLifetimeHint(accessToken string) time.Duration {
	if accessToken == "" {
		return 0
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return time.Until(exp.Time)
}
