/*
 * Copyright 2026 The Quotesync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cova-team/quotesync/pkg/errors"
	"github.com/cova-team/quotesync/server/logging"
)

var (
	// ErrTransportUnavailable is returned once the relay could not be
	// reached within the allowed reconnect attempts.
	ErrTransportUnavailable = errors.Unavailable("transport unavailable").WithCode("ErrTransportUnavailable")

	// ErrNotConnected is returned when sending while the connection is down.
	ErrNotConnected = errors.Unavailable("not connected").WithCode("ErrNotConnected")

	// ErrClosed is returned when using a closed transport.
	ErrClosed = errors.FailedPrecond("transport closed").WithCode("ErrClosed")
)

// ChannelURL returns the websocket URL of the channel on the relay.
func ChannelURL(relayURL, channel string) (string, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return "", fmt.Errorf("parse relay url %q: %w", relayURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("relay url %q: %w", relayURL, errors.InvalidArgument("unsupported scheme"))
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(channel)
	return u.String(), nil
}

type endReason int

const (
	dropped endReason = iota
	forced
	closing
)

// Transport owns the websocket connection to one channel of the relay. It
// reconnects with backoff and reports its status; it knows nothing about
// what the frames carry.
type Transport struct {
	url     string
	options *Options
	logger  logging.Logger

	mu       sync.Mutex
	status   Status
	err      error
	attempts int
	running  bool
	ctx      context.Context
	send     chan []byte

	nextHandlerID  int
	statusHandlers map[int]func(Status)
	onMessage      func([]byte)

	force     chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewTransport creates a transport for the given websocket URL.
func NewTransport(wsURL string, opts ...Option) *Transport {
	options := newOptions(opts...)
	return &Transport{
		url:            wsURL,
		options:        options,
		logger:         options.Logger,
		status:         Disconnected,
		statusHandlers: make(map[int]func(Status)),
		onMessage:      func([]byte) {},
		force:          make(chan struct{}, 1),
		closing:        make(chan struct{}),
	}
}

// URL returns the websocket URL of the transport.
func (t *Transport) URL() string {
	return t.url
}

// OnMessage sets the function called with every binary message, on the
// reading goroutine. It must be set before Start.
func (t *Transport) OnMessage(fn func([]byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onMessage = fn
}

// OnStatus registers the function called on every status change. It returns
// a function that unregisters it.
func (t *Transport) OnStatus(fn func(Status)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextHandlerID
	t.nextHandlerID++
	t.statusHandlers[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.statusHandlers, id)
	}
}

// Start connects to the relay in the background. The transport keeps
// reconnecting until ctx is done, Close is called, or it gives up.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == Closed {
		return ErrClosed
	}
	if t.running {
		return nil
	}

	t.ctx = ctx
	t.startLocked()
	return nil
}

func (t *Transport) startLocked() {
	t.running = true
	t.err = nil
	t.attempts = 0
	t.wg.Add(1)
	go t.run(t.ctx)
}

// Status returns the current status.
func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

// Connected returns whether the connection is up.
func (t *Transport) Connected() bool {
	return t.Status() == Connected
}

// Attempts returns the number of failed attempts since the last connection.
func (t *Transport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.attempts
}

// Err returns ErrTransportUnavailable once the transport gave up.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}

// Send queues the message for the relay. When the queue is full the
// connection is dropped and reestablished, so that peers resynchronize.
func (t *Transport) Send(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == Closed {
		return ErrClosed
	}
	if t.send == nil {
		return ErrNotConnected
	}

	select {
	case t.send <- msg:
		return nil
	default:
		t.logger.Warnf("send queue of %s is full, reconnecting", t.url)
		t.requestReconnect()
		return fmt.Errorf("send queue full: %w", ErrNotConnected)
	}
}

// ForceReconnect drops the connection and reconnects at once, with the
// attempts reset. A transport that gave up starts over.
func (t *Transport) ForceReconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == Closed {
		return ErrClosed
	}
	if t.ctx == nil {
		return ErrNotConnected
	}
	if !t.running {
		t.startLocked()
		return nil
	}
	t.requestReconnect()
	return nil
}

func (t *Transport) requestReconnect() {
	select {
	case t.force <- struct{}{}:
	default:
	}
}

// Close closes the connection after the queued messages are written.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closing)
	})
	t.wg.Wait()
	t.setStatus(Closed)
	return nil
}

func (t *Transport) run(ctx context.Context) {
	defer t.wg.Done()

	for {
		if t.isClosing(ctx) {
			t.finish(nil)
			return
		}

		t.setStatus(Connecting)
		conn, err := t.dial(ctx)
		if err == nil {
			t.mu.Lock()
			t.attempts = 0
			t.mu.Unlock()

			switch t.serve(ctx, conn) {
			case closing:
				t.finish(nil)
				return
			case forced:
				t.logger.Infof("reconnecting to %s", t.url)
				continue
			}
		} else {
			t.logger.Warnf("connect to %s: %v", t.url, err)
		}

		t.mu.Lock()
		attempt := t.attempts
		if attempt >= t.options.MaxReconnectAttempts {
			t.mu.Unlock()
			t.logger.Warnf("giving up on %s after %d attempts", t.url, attempt)
			t.finish(fmt.Errorf("%s: %w", t.url, ErrTransportUnavailable))
			return
		}
		t.attempts++
		t.mu.Unlock()

		delay := t.options.Backoff.Delay(attempt)
		t.setStatus(Disconnected)
		t.logger.Infof("reconnect to %s in %s (attempt %d/%d)",
			t.url, delay, attempt+1, t.options.MaxReconnectAttempts)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-t.force:
			timer.Stop()
			t.mu.Lock()
			t.attempts = 0
			t.mu.Unlock()
		case <-t.closing:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
		}
	}
}

// finish ends the run loop; a nil err means it was closed.
func (t *Transport) finish(err error) {
	t.mu.Lock()
	t.running = false
	t.err = err
	t.mu.Unlock()

	if err != nil {
		t.setStatus(Disconnected)
		return
	}
	t.setStatus(Closed)
}

func (t *Transport) isClosing(ctx context.Context) bool {
	select {
	case <-t.closing:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.options.ConnectTimeout)
	defer cancel()

	conn, resp, err := t.options.Dialer.DialContext(dialCtx, t.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// serve runs the pumps of the connection until it ends.
func (t *Transport) serve(ctx context.Context, conn *websocket.Conn) endReason {
	send := make(chan []byte, t.options.SendBufferSize)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	readerDone := make(chan error, 1)

	// a stale request must not drop the fresh connection
	select {
	case <-t.force:
	default:
	}

	t.mu.Lock()
	t.send = send
	onMessage := t.onMessage
	t.mu.Unlock()

	go func() {
		defer close(writerDone)
		t.writePump(conn, send, done)
	}()
	go func() {
		readerDone <- t.readPump(conn, onMessage)
	}()

	t.setStatus(Connected)

	reason := dropped
	select {
	case err := <-readerDone:
		t.logger.Infof("connection to %s lost: %v", t.url, err)
		readerDone <- err
	case <-t.force:
		reason = forced
	case <-t.closing:
		reason = closing
	case <-ctx.Done():
		reason = closing
	}

	t.mu.Lock()
	t.send = nil
	t.mu.Unlock()

	close(done)
	<-writerDone
	_ = conn.Close()
	<-readerDone
	return reason
}

func (t *Transport) readPump(conn *websocket.Conn, onMessage func([]byte)) error {
	conn.SetReadLimit(t.options.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(t.options.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.options.ReadTimeout))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(t.options.ReadTimeout))
		if msgType != websocket.BinaryMessage {
			continue
		}
		onMessage(data)
	}
}

func (t *Transport) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(t.options.PingInterval)
	defer ticker.Stop()

	write := func(msgType int, data []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(t.options.WriteTimeout))
		return conn.WriteMessage(msgType, data)
	}

	for {
		select {
		case msg := <-send:
			if err := write(websocket.BinaryMessage, msg); err != nil {
				t.logger.Debugf("write to %s: %v", t.url, err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-done:
			// flush what was queued before the connection was released
			for {
				select {
				case msg := <-send:
					if err := write(websocket.BinaryMessage, msg); err != nil {
						return
					}
				default:
					_ = write(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (t *Transport) setStatus(status Status) {
	t.mu.Lock()
	if t.status == status || t.status == Closed {
		t.mu.Unlock()
		return
	}
	t.status = status
	ids := make([]int, 0, len(t.statusHandlers))
	for id := range t.statusHandlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(Status), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, t.statusHandlers[id])
	}
	t.mu.Unlock()

	t.logger.Infof("%s: %s", t.url, status)
	for _, handler := range handlers {
		handler(status)
	}
}
