package corexy

import (
	"fmt"
	"strings"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
)

const (
	maxCommandBytes = 64
	stashCapacity   = 100
	queryTimeout    = 500 * time.Millisecond
)

// Port is the capability the protocol engine needs from a transport: write
// bytes, flush buffers, and eventually be closed. Kept minimal so tests can
// swap in a fakePort without a real device.
type Port interface {
	Write(b []byte) error
	Flush() error
	Close() error
}

// ReplyKind distinguishes the three response shapes a caller can observe.
type ReplyKind int

const (
	ReplySuccess ReplyKind = iota
	ReplyFailure
	ReplyTimeout
)

func (k ReplyKind) String() string {
	switch k {
	case ReplySuccess:
		return "success"
	case ReplyFailure:
		return "failure"
	case ReplyTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Reply is the value delivered back to a Write or Query caller.
type Reply struct {
	CorrelationID uuid.UUID
	Command       string
	Kind          ReplyKind
	Payload       []string
	Reason        string
}

type commandKind int

const (
	writeCmd commandKind = iota
	queryCmd
	flushCmd
)

type request struct {
	kind          commandKind
	data          string
	expectedLines int
	correlationID uuid.UUID
	reply         chan Reply
}

type pendingCommand struct {
	req           request
	normalizedCmd string
	buffer        string
	timer         *time.Timer
}

// ProtocolEngine is the single-outstanding-request state machine: Idle while
// pending == nil, Waiting otherwise, with a bounded FIFO stash for requests
// arriving while Waiting. All mutable state (pending, stash) is confined to
// the run() goroutine; every other method only ever sends on a channel.
type ProtocolEngine struct {
	port   Port
	logger kitlog.Logger

	requests chan request
	data     chan []byte
	timeouts chan uuid.UUID
	stop     chan struct{}
	wg       sync.WaitGroup

	pending *pendingCommand
	stash   []request
}

// NewProtocolEngine starts the engine's run loop against port, logging
// through logger.
func NewProtocolEngine(port Port, logger kitlog.Logger) *ProtocolEngine {
	e := &ProtocolEngine{
		port:     port,
		logger:   kitlog.With(logger, "component", "protocol_engine"),
		requests: make(chan request),
		data:     make(chan []byte, 64),
		timeouts: make(chan uuid.UUID, 8),
		stop:     make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// Stop terminates the engine's goroutine and waits for it to exit.
func (e *ProtocolEngine) Stop() {
	close(e.stop)
	e.wg.Wait()
}

// Write submits a fire-and-forget command. While Idle it returns once the
// engine has validated and written it, or rejected it. While a Query is
// outstanding the command is stashed, and Write returns only after it has
// been replayed from the stash (or at once with a "queue full" failure).
func (e *ProtocolEngine) Write(data string) Reply {
	reply := make(chan Reply, 1)
	e.requests <- request{kind: writeCmd, data: data, reply: reply}
	return <-reply
}

// Query submits a request expecting expectedLines CR-terminated response
// lines. The returned channel receives exactly one Reply (Success, Failure
// or Timeout).
func (e *ProtocolEngine) Query(data string, expectedLines int) <-chan Reply {
	reply := make(chan Reply, 1)
	e.requests <- request{
		kind:          queryCmd,
		data:          data,
		expectedLines: expectedLines,
		correlationID: uuid.New(),
		reply:         reply,
	}
	return reply
}

// Flush clears the port's I/O buffers. Valid in both Idle and Waiting.
func (e *ProtocolEngine) Flush() {
	e.requests <- request{kind: flushCmd}
}

// FeedData is the reader's entry point: it normalises CRLF to CR in the
// incoming bytes and hands them to the engine as a data event. Bytes
// arriving with no pending request are discarded.
func (e *ProtocolEngine) FeedData(b []byte) {
	normalized := strings.ReplaceAll(string(b), "\r\n", "\r")
	select {
	case e.data <- []byte(normalized):
	case <-e.stop:
	}
}

func (e *ProtocolEngine) run() {
	defer e.wg.Done()
	for {
		select {
		case req := <-e.requests:
			e.handleRequest(req)
		case b := <-e.data:
			e.handleData(b)
		case id := <-e.timeouts:
			e.handleTimeout(id)
		case <-e.stop:
			return
		}
	}
}

func (e *ProtocolEngine) reply(req request, r Reply) {
	if req.reply != nil {
		req.reply <- r
	}
}

func (e *ProtocolEngine) handleRequest(req request) {
	if req.kind == flushCmd {
		if err := e.port.Flush(); err != nil {
			e.logger.Log("level", "warn", "event", "flush_error", "err", err)
		}
		return
	}

	if e.pending != nil {
		if len(e.stash) >= stashCapacity {
			e.reply(req, Reply{CorrelationID: req.correlationID, Kind: ReplyFailure, Command: req.data, Reason: "queue full"})
			return
		}
		e.stash = append(e.stash, req)
		return
	}

	norm, err := validateCommand(req.data)
	if err != nil {
		e.reply(req, Reply{CorrelationID: req.correlationID, Kind: ReplyFailure, Command: req.data, Reason: err.Error()})
		return
	}

	if err := e.port.Write([]byte(norm)); err != nil {
		e.reply(req, Reply{CorrelationID: req.correlationID, Kind: ReplyFailure, Command: norm, Reason: err.Error()})
		return
	}

	if req.kind == writeCmd {
		e.logger.Log("level", "debug", "event", "write", "cmd", norm)
		e.reply(req, Reply{CorrelationID: req.correlationID, Kind: ReplySuccess, Command: norm})
		return
	}

	e.logger.Log("level", "debug", "event", "query", "cmd", norm, "correlation_id", req.correlationID)
	id := req.correlationID
	timer := time.AfterFunc(queryTimeout, func() {
		select {
		case e.timeouts <- id:
		case <-e.stop:
		}
	})
	e.pending = &pendingCommand{req: req, normalizedCmd: norm, timer: timer}
}

func (e *ProtocolEngine) handleData(b []byte) {
	if e.pending == nil {
		return
	}
	e.pending.buffer += string(b)
	fragments := strings.Split(e.pending.buffer, "\r")
	complete := fragments[:len(fragments)-1]
	if len(complete) < e.pending.req.expectedLines {
		return
	}
	payload := append([]string(nil), complete[:e.pending.req.expectedLines]...)
	e.pending.timer.Stop()
	e.logger.Log("level", "debug", "event", "response", "correlation_id", e.pending.req.correlationID, "lines", len(payload))
	e.reply(e.pending.req, Reply{
		CorrelationID: e.pending.req.correlationID,
		Kind:          ReplySuccess,
		Command:       e.pending.normalizedCmd,
		Payload:       payload,
	})
	e.pending = nil
	e.drainStash()
}

func (e *ProtocolEngine) handleTimeout(id uuid.UUID) {
	if e.pending == nil || e.pending.req.correlationID != id {
		// Stale timer: the request it belonged to already completed.
		return
	}
	e.logger.Log("level", "warn", "event", "timeout", "correlation_id", id, "cmd", e.pending.normalizedCmd)
	e.reply(e.pending.req, Reply{
		CorrelationID: id,
		Kind:          ReplyTimeout,
		Command:       e.pending.normalizedCmd,
		Payload:       []string{e.pending.buffer},
	})
	e.pending = nil
	e.drainStash()
}

// drainStash replays stashed requests in FIFO order until one of them puts
// the engine back into Waiting, or the stash empties.
func (e *ProtocolEngine) drainStash() {
	for len(e.stash) > 0 {
		req := e.stash[0]
		e.stash = e.stash[1:]
		e.handleRequest(req)
		if e.pending != nil {
			return
		}
	}
}

// validateCommand implements the outbound-command validation rule:
// uppercase, CR-terminate, reject oversize or non-printable payloads.
func validateCommand(raw string) (string, error) {
	upper := strings.ToUpper(raw)
	if !strings.HasSuffix(upper, "\r") {
		upper += "\r"
	}
	if len(upper) > maxCommandBytes {
		return "", fmt.Errorf("too long")
	}
	for i := 0; i < len(upper); i++ {
		b := upper[i]
		if b == '\r' && i == len(upper)-1 {
			continue
		}
		if b < 0x21 || b > 0x7E {
			return "", fmt.Errorf("non-ASCII-printable")
		}
	}
	return upper, nil
}
