// Package sse streams linkpeek commands and vault notifications to the host
// plugin as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event is one message on the stream. Data is marshalled as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types produced by the broker itself.
const (
	EventFileCreated = "vault.created"
	EventFileUpdated = "vault.updated"
	EventFileDeleted = "vault.deleted"
	EventLinksStale  = "links.stale"
)

const (
	clientBuffer = 64
	replayWindow = 128
)

// Filter selects event types by prefix; "view." matches every view command.
// An empty filter matches everything.
type Filter []string

func (f Filter) match(eventType string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range f {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}

type frame struct {
	seq       uint64
	eventType string
	raw       []byte
}

type client struct {
	ch     chan []byte
	filter Filter
}

type subscribeReq struct {
	c     *client
	after uint64
}

type fileEventReq struct {
	kind string
	path string
}

// Broker fans events out to connected plugin windows.
//
// A single loop goroutine owns the client set, the sequence counter, the
// replay ring and the stale-links throttle. Public methods talk to it over
// channels.
type Broker struct {
	staleMin  time.Duration
	keepalive time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	fileEventCh   chan fileEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one links.stale event per
// staleThrottle interval.
func NewBroker(staleThrottle time.Duration) *Broker {
	if staleThrottle <= 0 {
		staleThrottle = 2 * time.Second
	}

	b := &Broker{
		staleMin:      staleThrottle,
		keepalive:     15 * time.Second,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		fileEventCh:   make(chan fileEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// SetKeepalive changes the comment heartbeat interval of ServeHTTP.
// Must be called before the broker serves any request.
func (b *Broker) SetKeepalive(d time.Duration) {
	if d > 0 {
		b.keepalive = d
	}
}

func encode(seq uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*client)
	ring := make([]frame, 0, replayWindow)
	var lastStale time.Time
	var seq uint64

	broadcast := func(event Event) {
		raw, err := encode(seq+1, event)
		if err != nil {
			return
		}
		seq++
		if len(ring) == replayWindow {
			copy(ring, ring[1:])
			ring = ring[:replayWindow-1]
		}
		ring = append(ring, frame{seq: seq, eventType: event.Type, raw: raw})

		for _, c := range clients {
			if !c.filter.match(event.Type) {
				continue
			}
			select {
			case c.ch <- raw:
			default:
				// Slow window; it can catch up through Last-Event-ID.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.c.ch] = req.c
			if req.after == 0 {
				continue
			}
			for _, f := range ring {
				if f.seq <= req.after || !req.c.filter.match(f.eventType) {
					continue
				}
				select {
				case req.c.ch <- f.raw:
				default:
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.fileEventCh:
			data := map[string]string{"path": req.path}
			switch req.kind {
			case "created":
				broadcast(Event{Type: EventFileCreated, Data: data})
			case "updated":
				broadcast(Event{Type: EventFileUpdated, Data: data})
			case "deleted":
				broadcast(Event{Type: EventFileDeleted, Data: data})
			default:
				continue
			}

			// Resolved links may now point elsewhere.
			now := time.Now()
			if now.Sub(lastStale) >= b.staleMin {
				lastStale = now
				broadcast(Event{Type: EventLinksStale, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client receiving every event.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(0, nil)
}

// SubscribeFrom registers a client receiving events matching filter. Buffered
// events with an id greater than after are replayed first.
func (b *Broker) SubscribeFrom(after uint64, filter Filter) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{c: &client{ch: ch, filter: filter}, after: after}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishFileEvent publishes a vault change and a throttled links.stale event.
// kind is one of "created", "updated", "deleted".
func (b *Broker) PublishFileEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.fileEventCh <- fileEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// requestFilter reads ?types=view.,link.open into a Filter.
func requestFilter(r *http.Request) Filter {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	var f Filter
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			f = append(f, p)
		}
	}
	return f
}

// lastEventID honours the EventSource reconnect header, falling back to
// ?last_event_id for clients that cannot set headers.
func lastEventID(r *http.Request) uint64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeFrom(lastEventID(r), requestFilter(r))
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.keepalive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
