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

// Package client connects a replica of a document and its awareness to a
// channel of the relay. Peers exchange their states through the relay: a
// peer that connects sends its version vector, and the others answer with
// the changes it lacks.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cova-team/quotesync/api/converter"
	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/pkg/document"
	"github.com/cova-team/quotesync/pkg/document/change"
	"github.com/cova-team/quotesync/pkg/presence"
	"github.com/cova-team/quotesync/server/logging"
)

// Client is a participant of a channel: it ships the changes of its
// document and the local slot of its awareness, and applies those of the
// other participants.
type Client struct {
	transport *Transport
	doc       *document.Document
	awareness *presence.Awareness
	logger    logging.Logger

	resyncDelay time.Duration
	resyncMu    sync.Mutex
	resync      *time.Timer
	closed      bool

	unsubscribes []func()
}

// New creates a client of the given channel of the relay.
func New(
	relayURL, channel string,
	doc *document.Document,
	awareness *presence.Awareness,
	opts ...Option,
) (*Client, error) {
	wsURL, err := ChannelURL(relayURL, channel)
	if err != nil {
		return nil, err
	}

	transport := NewTransport(wsURL, opts...)
	c := &Client{
		transport:   transport,
		doc:         doc,
		awareness:   awareness,
		logger:      transport.logger,
		resyncDelay: transport.options.ResyncDelay,
	}

	transport.OnMessage(c.handleMessage)
	c.unsubscribes = append(c.unsubscribes,
		transport.OnStatus(c.handleStatus),
		doc.SubscribeLocalChanges(c.handleLocalChange),
		awareness.OnChange(c.handleAwarenessChange),
	)
	return c, nil
}

// Transport returns the transport of the client.
func (c *Client) Transport() *Transport {
	return c.transport
}

// ClientID returns the id of the client in the awareness.
func (c *Client) ClientID() uint64 {
	return c.awareness.ClientID()
}

// Start connects to the relay in the background.
func (c *Client) Start(ctx context.Context) error {
	return c.transport.Start(ctx)
}

// Status returns the status of the connection.
func (c *Client) Status() Status {
	return c.transport.Status()
}

// OnStatus registers the function called on every status change.
func (c *Client) OnStatus(fn func(Status)) func() {
	return c.transport.OnStatus(fn)
}

// Connected returns whether the connection is up.
func (c *Client) Connected() bool {
	return c.transport.Connected()
}

// Err returns ErrTransportUnavailable once the client gave up.
func (c *Client) Err() error {
	return c.transport.Err()
}

// ForceReconnect drops the connection and reconnects at once.
func (c *Client) ForceReconnect() error {
	return c.transport.ForceReconnect()
}

// Close clears the local slot so the others see the departure at once, then
// closes the connection.
func (c *Client) Close() error {
	if err := c.awareness.Clear(); err != nil {
		c.logger.Warnf("clear awareness: %v", err)
	}
	for _, unsubscribe := range c.unsubscribes {
		unsubscribe()
	}

	c.resyncMu.Lock()
	c.closed = true
	if c.resync != nil {
		c.resync.Stop()
		c.resync = nil
	}
	c.resyncMu.Unlock()

	return c.transport.Close()
}

func (c *Client) handleStatus(status Status) {
	switch status {
	case Connected:
		vv := converter.VersionVectorToBytes(c.doc.VersionVector())
		c.sendFrame(&converter.Frame{Type: converter.SyncStep1, Payload: vv, Reply: true})
		c.sendFrame(&converter.Frame{Type: converter.QueryAwareness})
		c.sendLocalAwareness()
	case Disconnected, Closed:
		c.awareness.RemoveRemotes()
	}
}

func (c *Client) handleLocalChange(ch *change.Change) {
	payload, err := converter.ChangesToBytes([]*change.Change{ch})
	if err != nil {
		c.logger.Errorf("encode change %s: %v", ch.Key(), err)
		return
	}
	c.sendFrame(&converter.Frame{Type: converter.Update, Payload: payload})
}

func (c *Client) handleAwarenessChange(ch presence.Change) {
	if !ch.Local {
		return
	}
	c.sendFrame(&converter.Frame{
		Type:    converter.Awareness,
		Payload: converter.AwarenessToBytes([]types.AwarenessEntry{ch.Entry}),
	})
}

func (c *Client) sendLocalAwareness() {
	entry, err := c.awareness.LocalEntry()
	if err != nil {
		c.logger.Warnf("encode awareness: %v", err)
		return
	}
	c.sendFrame(&converter.Frame{
		Type:    converter.Awareness,
		Payload: converter.AwarenessToBytes([]types.AwarenessEntry{entry}),
	})
}

// sendFrame sends the frame if connected. Frames sent while disconnected
// are not needed: the state is exchanged again on the next connection.
func (c *Client) sendFrame(f *converter.Frame) {
	f.ClientID = c.ClientID()
	if err := c.transport.Send(converter.FrameToBytes(f)); err != nil {
		c.logger.Debugf("skip %s frame: %v", f.Type, err)
		return
	}
	c.logger.Debugf("sent %s frame", f.Type)
}

func (c *Client) handleMessage(data []byte) {
	f, err := converter.BytesToFrame(data)
	if err != nil {
		c.logger.Warnf("drop frame: %v", err)
		return
	}
	if f.ClientID == c.ClientID() {
		return
	}
	c.logger.Debugf("received %s frame from %d", f.Type, f.ClientID)

	if err := c.handleFrame(f); err != nil {
		c.logger.Warnf("handle %s frame from %d: %v", f.Type, f.ClientID, err)
	}
}

func (c *Client) handleFrame(f *converter.Frame) error {
	switch f.Type {
	case converter.SyncStep1:
		vv, err := converter.BytesToVersionVector(f.Payload)
		if err != nil {
			return err
		}
		if changes := c.doc.ChangesSince(vv); len(changes) > 0 {
			payload, err := converter.ChangesToBytes(changes)
			if err != nil {
				return err
			}
			c.sendFrame(&converter.Frame{Type: converter.SyncStep2, Payload: payload})
		}
		if f.Reply {
			own := converter.VersionVectorToBytes(c.doc.VersionVector())
			c.sendFrame(&converter.Frame{Type: converter.SyncStep1, Payload: own})
		}
		return nil
	case converter.SyncStep2, converter.Update:
		changes, err := converter.BytesToChanges(f.Payload)
		if err != nil {
			return err
		}
		err = c.doc.ApplyChanges(changes...)
		if c.doc.PendingLen() > 0 {
			c.scheduleResync()
		}
		return err
	case converter.Awareness:
		entries, err := converter.BytesToAwareness(f.Payload)
		if err != nil {
			return err
		}
		return c.awareness.Apply(entries)
	case converter.QueryAwareness:
		c.sendLocalAwareness()
		return nil
	}
	return fmt.Errorf("frame type %s: %w", f.Type, converter.ErrInvalidFrame)
}

// scheduleResync arms a timer that, if changes are still pending when it
// fires, sends the version vector again so the peers resend what is missing.
// A frame lost on the way or a change that failed to apply would otherwise
// hold back every later change of its actor.
func (c *Client) scheduleResync() {
	if c.resyncDelay <= 0 {
		return
	}

	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()
	if c.closed || c.resync != nil {
		return
	}
	c.resync = time.AfterFunc(c.resyncDelay, c.fireResync)
}

func (c *Client) fireResync() {
	c.resyncMu.Lock()
	c.resync = nil
	closed := c.closed
	c.resyncMu.Unlock()
	if closed {
		return
	}

	pending := c.doc.PendingLen()
	if pending == 0 {
		return
	}
	c.logger.Infof("%d changes still pending, asking peers to resync", pending)
	vv := converter.VersionVectorToBytes(c.doc.VersionVector())
	c.sendFrame(&converter.Frame{Type: converter.SyncStep1, Payload: vv})
	c.scheduleResync()
}
