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

// Package collab is the collaboration session of one room. A Session owns
// the replica of the quotation, the presence of the participants, the
// connection to the relay and the leave policy, and hands the UI a State
// after every change. Changing rooms means closing the session and
// creating a new one.
package collab

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	gotime "time"

	"github.com/cova-team/quotesync/api/types"
	"github.com/cova-team/quotesync/client"
	"github.com/cova-team/quotesync/pkg/document/time"
	"github.com/cova-team/quotesync/pkg/errors"
	"github.com/cova-team/quotesync/pkg/fieldrouter"
	"github.com/cova-team/quotesync/pkg/identity"
	"github.com/cova-team/quotesync/pkg/lifecycle"
	"github.com/cova-team/quotesync/pkg/limit"
	"github.com/cova-team/quotesync/pkg/presence"
	"github.com/cova-team/quotesync/pkg/quotation"
	"github.com/cova-team/quotesync/pkg/roomcode"
	"github.com/cova-team/quotesync/server/logging"
)

// ErrSessionClosed is returned when starting a closed session.
var ErrSessionClosed = errors.FailedPrecond("session closed").WithCode("ErrSessionClosed")

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the config of the session.
func WithConfig(conf *Config) Option {
	return func(s *Session) { s.conf = conf }
}

// WithLogger sets the logger of the session.
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithIdentity sets the identity the participant starts with.
func WithIdentity(id identity.Identity) Option {
	return func(s *Session) { s.user = id }
}

// WithClock sets the clock used for heartbeats and timeouts.
func WithClock(now func() gotime.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithClientOptions appends options of the relay client, such as a dialer.
func WithClientOptions(opts ...client.Option) Option {
	return func(s *Session) { s.clientOpts = append(s.clientOpts, opts...) }
}

// Session is the collaboration session of one participant in one room.
type Session struct {
	conf       *Config
	roomCode   string
	logger     logging.Logger
	now        func() gotime.Time
	clientOpts []client.Option

	quotation *quotation.Quotation
	awareness *presence.Awareness
	client    *client.Client
	tracker   *fieldrouter.Tracker
	policy    *lifecycle.Policy

	cursorThrottle *limit.Throttler

	mu           sync.Mutex
	user         identity.Identity
	visible      bool
	participants []presence.Participant
	cursors      map[uint64]presence.RemoteCursor
	view         *types.Snapshot
	started      bool
	closed       bool
	cancel       context.CancelFunc

	handlersMu    sync.Mutex
	nextHandlerID int
	handlers      map[int]func(State)

	unsubscribes []func()
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// New creates the session of the given room. The participant gets a random
// identity unless WithIdentity is given.
func New(roomCode string, opts ...Option) (*Session, error) {
	code, err := roomcode.Normalize(roomCode)
	if err != nil {
		return nil, err
	}

	s := &Session{
		conf:     NewConfig(),
		roomCode: code,
		now:      gotime.Now,
		visible:  true,
		cursors:  make(map[uint64]presence.RemoteCursor),
		handlers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.conf.Validate(); err != nil {
		return nil, err
	}
	if s.logger == nil {
		s.logger = logging.New("collab", logging.NewField("room", code))
	}
	if s.user.ID == "" {
		s.user = identity.Generate()
	}

	q, err := quotation.New(code, time.NewActorID(),
		quotation.WithEditor(func() string { return s.CurrentUser().ID }),
		quotation.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.quotation = q
	s.view = q.Snapshot()
	s.awareness = presence.New(rand.Uint64())

	clientOpts := append([]client.Option{client.WithLogger(s.logger)}, s.conf.clientOptions()...)
	c, err := client.New(
		s.conf.RelayURL,
		roomcode.Channel(s.conf.ChannelPrefix, code),
		q.Document(),
		s.awareness,
		append(clientOpts, s.clientOpts...)...,
	)
	if err != nil {
		return nil, err
	}
	s.client = c

	s.tracker = fieldrouter.NewTracker(s.conf.EditReleaseDelay)
	s.tracker.OnRelease(func(fieldrouter.Field) {
		s.refreshView(false)
		s.notify()
	})
	s.policy = lifecycle.NewPolicy(&sessionPresence{s: s})
	s.cursorThrottle = limit.New(s.conf.CursorThrottle)

	s.unsubscribes = append(s.unsubscribes,
		q.Observe(quotation.Path(), s.handleDocument),
		s.awareness.OnChange(s.handleAwareness),
		c.OnStatus(s.handleStatus),
	)
	return s, nil
}

// Start publishes the identity, connects to the relay and starts the
// heartbeat and presence loops. The loops stop on Close.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	user := s.user
	s.mu.Unlock()

	if err := s.awareness.SetUser(user); err != nil {
		return err
	}
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	s.wg.Add(2)
	go s.loop(loopCtx, s.conf.HeartbeatInterval, func() {
		if err := s.sendHeartbeat(); err != nil {
			s.logger.Warnf("send heartbeat: %v", err)
		}
	})
	go s.loop(loopCtx, s.conf.PresenceCheckInterval, func() {
		s.refreshParticipants()
		s.notify()
	})
	return nil
}

// Close stops the loops, clears the local presence and closes the
// connection.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.wg.Wait()

		for _, unsubscribe := range s.unsubscribes {
			unsubscribe()
		}
		s.tracker.Stop()
		s.cursorThrottle.Stop()
		err = s.client.Close()
	})
	return err
}

func (s *Session) loop(ctx context.Context, interval gotime.Duration, fn func()) {
	defer s.wg.Done()

	ticker := gotime.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// RoomCode returns the code of the room.
func (s *Session) RoomCode() string {
	return s.roomCode
}

// ShareURL returns the link that opens the room.
func (s *Session) ShareURL() string {
	return roomcode.ShareURL(s.conf.BaseURL, s.roomCode)
}

// ClientID returns the id of the participant in the presence.
func (s *Session) ClientID() uint64 {
	return s.awareness.ClientID()
}

// Quotation returns the replica of the quotation.
func (s *Session) Quotation() *quotation.Quotation {
	return s.quotation
}

// Snapshot returns the plain-object projection of the quotation.
func (s *Session) Snapshot() *types.Snapshot {
	return s.quotation.Snapshot()
}

// Status returns the status of the connection.
func (s *Session) Status() client.Status {
	return s.client.Status()
}

// Connected returns whether the connection to the relay is up.
func (s *Session) Connected() bool {
	return s.client.Connected()
}

// ForceReconnect drops the connection and reconnects at once.
func (s *Session) ForceReconnect() error {
	return s.client.ForceReconnect()
}

// CurrentUser returns the identity of the participant.
func (s *Session) CurrentUser() identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user
}

// UpdateUserName renames the participant. Names outside the allowed length
// are rejected with identity.ErrInvalidName.
func (s *Session) UpdateUserName(name string) error {
	s.mu.Lock()
	updated, err := identity.SetCustomName(s.user, name)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.user = updated
	s.mu.Unlock()

	return s.awareness.SetUser(updated)
}

// RegenerateName gives the participant a new random name.
func (s *Session) RegenerateName() error {
	s.mu.Lock()
	s.user = identity.Regenerate(s.user)
	updated := s.user
	s.mu.Unlock()

	return s.awareness.SetUser(updated)
}

// IsLastParticipant returns whether nobody else is in the room now.
func (s *Session) IsLastParticipant() bool {
	participants, _ := presence.ComputeActiveParticipants(
		s.awareness.States(), s.awareness.ClientID(), s.now(), s.conf.ConnectionTimeout,
	)
	return presence.IsLastParticipant(participants)
}

func (s *Session) sendHeartbeat() error {
	if s.policy.IsLeaving() {
		return nil
	}

	s.mu.Lock()
	visible := s.visible
	s.mu.Unlock()

	return s.awareness.SetHeartbeat(presence.Heartbeat{
		Timestamp: s.now().UnixMilli(),
		IsActive:  visible,
	})
}

func (s *Session) handleStatus(status client.Status) {
	if status == client.Connected && !s.policy.IsLeaving() {
		if err := s.awareness.SetUser(s.CurrentUser()); err != nil {
			s.logger.Warnf("publish user: %v", err)
		}
		if err := s.sendHeartbeat(); err != nil {
			s.logger.Warnf("send heartbeat: %v", err)
		}
	}
	if status == client.Disconnected && s.client.Err() != nil {
		s.logger.Warnf("relay unavailable: %v", s.client.Err())
	}

	s.refreshParticipants()
	s.notify()
}

func (s *Session) handleAwareness(presence.Change) {
	s.refreshParticipants()
	s.notify()
}

func (s *Session) handleDocument(e quotation.Event) {
	s.refreshView(!e.Local)
	s.notify()
}

func (s *Session) refreshParticipants() {
	participants, cursors := presence.ComputeActiveParticipants(
		s.awareness.States(), s.awareness.ClientID(), s.now(), s.conf.ConnectionTimeout,
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = participants
	s.cursors = cursors
}

// refreshView rebuilds the view of the quotation. With keepEdited, the
// field being edited keeps its value in the current view.
func (s *Session) refreshView(keepEdited bool) {
	next := s.quotation.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if keepEdited && s.view != nil {
		next.QuotationItems = fieldrouter.MergeRemote(
			s.tracker, s.view.QuotationItems, next.QuotationItems, types.QuotationItemFromFields,
		)
		next.PaymentTerms = fieldrouter.MergeRemote(
			s.tracker, s.view.PaymentTerms, next.PaymentTerms, types.PaymentTermFromFields,
		)
	}
	s.view = next
}

// sessionPresence is the presence of the participant as the leave policy
// sees it.
type sessionPresence struct {
	s *Session
}

func (p *sessionPresence) IsLastParticipant() bool {
	return p.s.IsLastParticipant()
}

func (p *sessionPresence) ClearPresence() error {
	return p.s.awareness.Clear()
}

func (p *sessionPresence) SendHeartbeat() error {
	return p.s.sendHeartbeat()
}

// Subscribe registers the function called with the new state after every
// change. It returns the function that unregisters it.
func (s *Session) Subscribe(fn func(State)) func() {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()

	id := s.nextHandlerID
	s.nextHandlerID++
	s.handlers[id] = fn
	return func() {
		s.handlersMu.Lock()
		defer s.handlersMu.Unlock()
		delete(s.handlers, id)
	}
}

func (s *Session) notify() {
	s.handlersMu.Lock()
	ids := make([]int, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(State), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.handlers[id])
	}
	s.handlersMu.Unlock()

	if len(handlers) == 0 {
		return
	}
	state := s.State()
	for _, handler := range handlers {
		handler(state)
	}
}
