// Package storeactor implements the store actor (spec §4.3, C4): the
// single-threaded, message-driven owner of one store's backend, in
// either master or clone role.
//
// Grounded on pkg/store.Store (a single struct owning a
// backend, a sequence clock, and a background processing loop) and
// pkg/listener.Listener[T] (the generic single-channel run loop),
// generalized from a single `T` (a WAL entry) to a sum-typed
// actorMsg (request | forwarded write | applied command | direct | tick).
package storeactor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nimbuskv/broker/pkg/backend"
	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/bus"
	"github.com/nimbuskv/broker/pkg/command"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/events"
	"github.com/nimbuskv/broker/pkg/ids"
	"github.com/nimbuskv/broker/pkg/listener"
)

const defaultTickInterval = time.Second

type msgKind int

const (
	msgRequest msgKind = iota
	msgForwardedWrite // pre-commit write forwarded from a clone (master only)
	msgAppliedCommand // replicated command from the master (clone only)
	msgDirect         // snapshot_reply / put_unique_result / ack_clone addressed to this clone
	msgTick
)

type actorMsg struct {
	kind    msgKind
	request *Request
	command *command.Command
}

// pendingPutUnique tracks a clone-originated put_unique awaiting the
// master's put_unique_result reply.
type pendingPutUnique struct {
	reply chan brokererr.Expected[data.Value]
}

// Actor owns one store instance (spec §3 "Store identity":
// (endpoint_id, store_name)).
type Actor struct {
	storeName string
	role      Role
	self      ids.EntityID

	be  backend.Backend
	bus bus.Bus
	log *slog.Logger

	tickInterval time.Duration

	// master-only
	seq           *command.Sequencer
	masterInbound chan command.Command
	clonesMu      sync.Mutex
	clones        map[string]chan<- command.Command

	// clone-only
	master          ids.EntityID
	cloneState      *command.CloneState
	forwardToMaster chan<- command.Command
	directInbound   chan command.Command
	nextForwardID   uint64
	putUniqueMu     sync.Mutex
	putUniqueWait   map[uint64]pendingPutUnique

	main chan actorMsg
	ln   *listener.Listener[actorMsg]

	stopOnce sync.Once
}

// NewMaster constructs an Actor in the master role, owning be and
// publishing on bus's store-command topic.
func NewMaster(storeName string, be backend.Backend, msgBus bus.Bus, self ids.EntityID, tickInterval time.Duration, log *slog.Logger) *Actor {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Actor{
		storeName:     storeName,
		role:          RoleMaster,
		self:          self,
		be:            be,
		bus:           msgBus,
		log:           log,
		tickInterval:  tickInterval,
		seq:           command.NewSequencer(0),
		masterInbound: make(chan command.Command, 256),
		clones:        make(map[string]chan<- command.Command),
		main:          make(chan actorMsg, 256),
	}
}

// NewClone constructs an Actor in the clone role. forwardToMaster is
// where pre-commit writes and snapshot_request are sent — in-process
// this is typically the bound master's MasterInbound() channel, which
// stands in for the out-of-scope transport/peering layer.
func NewClone(storeName string, be backend.Backend, msgBus bus.Bus, self, master ids.EntityID, forwardToMaster chan<- command.Command, log *slog.Logger) *Actor {
	if log == nil {
		log = slog.Default()
	}
	return &Actor{
		storeName:       storeName,
		role:            RoleClone,
		self:            self,
		master:          master,
		be:              be,
		bus:             msgBus,
		log:             log,
		cloneState:      command.NewCloneState(1),
		forwardToMaster: forwardToMaster,
		directInbound:   make(chan command.Command, 16),
		putUniqueWait:   make(map[uint64]pendingPutUnique),
		main:            make(chan actorMsg, 256),
	}
}

// MasterInbound exposes the channel clones forward pre-commit writes
// and snapshot_request onto. Only meaningful for a master actor.
func (a *Actor) MasterInbound() chan<- command.Command {
	return a.masterInbound
}

// DirectInbound exposes the channel a master sends clone-addressed
// replies onto (snapshot_reply, put_unique_result, ack_clone). Only
// meaningful for a clone actor; the master learns this channel via
// RegisterClone at attach time.
func (a *Actor) DirectInbound() chan<- command.Command {
	return a.directInbound
}

// RegisterClone models the attach handshake of spec §3 "Lifecycles":
// the out-of-scope transport layer would normally carry a clone's
// attach request to its master; in-process, wiring code performs the
// equivalent by handing the master a direct line to the clone.
func (a *Actor) RegisterClone(cloneID string, inbox chan<- command.Command) {
	a.clonesMu.Lock()
	a.clones[cloneID] = inbox
	a.clonesMu.Unlock()

	select {
	case inbox <- command.Command{Sender: a.self, Type: command.TypeAckClone, Payload: command.Payload{CloneID: cloneID}}:
	default:
	}
}

func (a *Actor) sendDirectToClone(ctx context.Context, cloneID string, cmd command.Command) {
	a.clonesMu.Lock()
	inbox, ok := a.clones[cloneID]
	a.clonesMu.Unlock()
	if !ok {
		return
	}
	select {
	case inbox <- cmd:
	case <-ctx.Done():
	}
}

// CommandTopic is the bus topic the master broadcasts applied commands
// on and clones subscribe to.
func (a *Actor) CommandTopic() string {
	return "store_commands/" + a.storeName
}

// EventTopic is the topic mutation events are published to.
func (a *Actor) EventTopic() string {
	return events.Topic(a.storeName)
}

// Start begins the actor's message loop under ctx. Cancelling ctx
// stops the loop; Stop then drains the messages still queued and
// replies to queued requests with peer_unavailable (spec §5
// "Cancellation and timeouts").
func (a *Actor) Start(ctx context.Context) {
	a.ln = listener.New(a.main, a.handle, a.onStop)
	a.ln.Start(ctx)

	if a.role == RoleClone {
		go a.pumpCommandSubscription(ctx)
		go a.pumpDirect(ctx)
		a.requestSnapshot()
	} else {
		go a.pumpForwardedWrites(ctx)
		go a.pumpTicks(ctx)
	}
}

// Stop halts the actor's message loop and waits for drain to finish.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() {
		if a.ln != nil {
			a.ln.Stop()
		}
	})
}

func (a *Actor) pumpCommandSubscription(ctx context.Context) {
	ch := a.bus.Subscribe(ctx, a.CommandTopic())
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			cmd, ok := decodeCommandEvent(v)
			if !ok {
				continue
			}
			select {
			case a.main <- actorMsg{kind: msgAppliedCommand, command: &cmd}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *Actor) pumpForwardedWrites(ctx context.Context) {
	for {
		select {
		case cmd, ok := <-a.masterInbound:
			if !ok {
				return
			}
			select {
			case a.main <- actorMsg{kind: msgForwardedWrite, command: &cmd}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *Actor) pumpDirect(ctx context.Context) {
	for {
		select {
		case cmd, ok := <-a.directInbound:
			if !ok {
				return
			}
			select {
			case a.main <- actorMsg{kind: msgDirect, command: &cmd}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *Actor) pumpTicks(ctx context.Context) {
	ticker := time.NewTicker(a.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case a.main <- actorMsg{kind: msgTick}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues req for processing. It never blocks the caller past
// ctx's lifetime (spec §5 "Frontend↔actor": synchronous calls block the
// caller, never the actor).
func (a *Actor) Submit(ctx context.Context, req Request) {
	select {
	case a.main <- actorMsg{kind: msgRequest, request: &req}:
	case <-ctx.Done():
		req.reply(brokererr.Fail[data.Value](brokererr.New(brokererr.KindRequestTimeout)))
	}
}

// onStop runs once after the message loop has stopped, per
// listener.Listener's stopHandler contract. It drains whatever is left
// buffered in the inbound channel and replies to any pending requests
// with peer_unavailable rather than leaving callers hanging (spec §5
// "Shutdown drains in-flight inbound messages, replies to pending
// requests with an error"). The channel is deliberately never closed:
// feeder goroutines already stop sending once ctx is done, and closing
// here would race with any in-flight select on a.main.
func (a *Actor) onStop() {
	for {
		select {
		case msg := <-a.main:
			if msg.kind == msgRequest && msg.request != nil {
				msg.request.reply(brokererr.Fail[data.Value](brokererr.New(brokererr.KindPeerUnavailable)))
			}
		default:
			return
		}
	}
}
