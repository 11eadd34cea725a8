package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable means a call produced no usable response, regardless of the
// underlying cause: agent missing, spawn failure, framing error, or timeout.
var ErrUnavailable = errors.New("agent unavailable")

// DefaultReconnectDelay is used when the config leaves the delay unset.
// Deliberately a fixed delay, not a backoff: the agent is a single local
// process and either comes back quickly or not at all.
const DefaultReconnectDelay = 10 * time.Second

// Config describes how to reach the enforcement agent binary.
type Config struct {
	Path           string        // agent executable
	Args           []string      // extra arguments
	CallTimeout    time.Duration // per one-shot call; zero disables
	ReconnectDelay time.Duration // persistent-connection retry delay
}

// Channel manages at most one persistent agent process plus independent
// one-shot request/response calls. Connect is idempotent; a failed connect
// schedules a retry and never raises to the caller.
type Channel struct {
	mu      sync.Mutex
	cfg     Config
	logger  *zap.Logger
	conn    *agentConn
	retry   *time.Timer
	stopped bool
}

type agentConn struct {
	ioMu   sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// NewChannel creates a Channel. No process is started until Connect or Call.
func NewChannel(cfg Config, logger *zap.Logger) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Channel{cfg: cfg, logger: logger}
}

// Call performs a one-shot request: a fresh agent process is launched, one
// message exchanged, and the process released. Independent of the persistent
// connection. All failure modes collapse to ErrUnavailable.
func (c *Channel) Call(ctx context.Context, req Request) (Response, error) {
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.cfg.Path, c.cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var resp Response
	err = func() error {
		if err := WriteMessage(stdin, req); err != nil {
			return err
		}
		if err := ReadMessage(stdout, &resp); err != nil {
			return err
		}
		return nil
	}()

	// Closing stdin signals EOF so the agent exits cleanly.
	_ = stdin.Close()
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := cmd.Wait(); err != nil {
		c.logger.Debug("agent one-shot exit", zap.Error(err))
	}

	if resp.Status == "" {
		return Response{}, fmt.Errorf("%w: response missing status", ErrUnavailable)
	}
	return resp, nil
}

// Connect establishes the persistent connection if absent. Idempotent. On
// failure it logs, schedules a retry after the configured delay, and returns.
func (c *Channel) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = false
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.conn != nil {
		return
	}

	if err := c.dialLocked(); err != nil {
		c.logger.Warn("agent connect failed", zap.Error(err))
		c.scheduleReconnectLocked()
	}
}

// Disconnect tears down the persistent connection and cancels any pending
// reconnect. One-shot calls remain available.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		// EOF on stdin is the agent's clean shutdown signal.
		_ = conn.stdin.Close()
	}
}

// Connected reports whether the persistent connection is up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Push sends a request over the persistent connection and reads the agent's
// reply. Returns ErrUnavailable when the connection is down; a transport
// error tears the connection down and schedules a reconnect.
func (c *Channel) Push(req Request) (Response, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return Response{}, ErrUnavailable
	}

	conn.ioMu.Lock()
	defer conn.ioMu.Unlock()

	var resp Response
	if err := WriteMessage(conn.stdin, req); err != nil {
		c.dropConn(conn, err)
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := ReadMessage(conn.stdout, &resp); err != nil {
		c.dropConn(conn, err)
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// dialLocked starts the persistent agent process. Caller holds c.mu.
func (c *Channel) dialLocked() error {
	cmd := exec.Command(c.cfg.Path, c.cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	conn := &agentConn{cmd: cmd, stdin: stdin, stdout: stdout}
	c.conn = conn
	go c.reap(conn)

	c.logger.Info("agent connected", zap.Int("pid", cmd.Process.Pid))
	return nil
}

// reap waits for the persistent process to exit and schedules a reconnect if
// the loss was not requested via Disconnect.
func (c *Channel) reap(conn *agentConn) {
	_ = conn.cmd.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.conn = nil
	if !c.stopped {
		c.logger.Warn("agent connection lost")
		c.scheduleReconnectLocked()
	}
}

// dropConn discards a broken connection and arms the reconnect timer.
func (c *Channel) dropConn(conn *agentConn, cause error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	c.logger.Warn("agent push failed", zap.Error(cause))
	_ = conn.stdin.Close()
	_ = conn.cmd.Process.Kill()
}

// scheduleReconnectLocked arms the fixed-delay retry timer. Caller holds c.mu.
func (c *Channel) scheduleReconnectLocked() {
	if c.stopped || c.retry != nil {
		return
	}
	c.retry = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		c.retry = nil
		stopped := c.stopped
		c.mu.Unlock()
		if !stopped {
			c.Connect()
		}
	})
}
