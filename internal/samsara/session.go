package samsara

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	requestTimeout      = 30 * time.Second
	dialTimeout         = 10 * time.Second
	tlsTimeout          = 10 * time.Second
	maxConns            = 100
	maxConnsPerHost     = 25
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
)

// Acquire opens a session scope: under the lock it creates the shared
// HTTP session if none is live and increments the reference count. The
// returned release function decrements the count and tears the session
// down when it was the last scope; it is safe to call more than once
// and from a deferred path.
func (c *Client) Acquire() (release func()) {
	c.sessionMu.Lock()
	if c.session == nil {
		c.session = c.newSession()
		c.log.Debug("session created")
	}
	c.refs++
	refs := c.refs
	c.sessionMu.Unlock()

	c.log.Debug("session scope acquired", zap.Int("refs", refs))

	var once sync.Once
	return func() {
		once.Do(func() {
			c.sessionMu.Lock()
			c.refs--
			if c.refs <= 0 {
				c.refs = 0
				c.closeSessionLocked()
			}
			refs := c.refs
			c.sessionMu.Unlock()
			c.log.Debug("session scope released", zap.Int("refs", refs))
		})
	}
}

// Close force-closes the session and zeroes the reference count,
// regardless of outstanding scopes. Meant for shutdown.
func (c *Client) Close() {
	c.sessionMu.Lock()
	if c.refs > 0 {
		c.log.Warn("closing session with active scopes", zap.Int("refs", c.refs))
	}
	c.refs = 0
	c.closeSessionLocked()
	c.sessionMu.Unlock()
}

// closeSessionLocked drops the session. Callers hold sessionMu.
func (c *Client) closeSessionLocked() {
	if c.session == nil {
		return
	}
	c.session.CloseIdleConnections()
	c.session = nil
	c.log.Debug("session closed")
}

// currentSession returns the live session, or nil when no scope holds one.
func (c *Client) currentSession() *http.Client {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.session
}

func (c *Client) newSession() *http.Client {
	transport := c.transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: tlsTimeout,
			MaxConnsPerHost:     maxConnsPerHost,
			MaxIdleConns:        maxConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     idleConnTimeout,
		}
	}
	return &http.Client{
		Timeout:   requestTimeout,
		Transport: transport,
	}
}
