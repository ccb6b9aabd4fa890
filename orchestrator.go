package corexy

import (
	"fmt"
	"sync"

	kitlog "github.com/go-kit/kit/log"
)

// OrchestratorState is the Orchestrator's lifecycle state.
type OrchestratorState int

const (
	StateIdle OrchestratorState = iota
	StateBusy
)

func (s OrchestratorState) String() string {
	if s == StateBusy {
		return "busy"
	}
	return "idle"
}

// Orchestrator is the single-writer state machine driving the dispatcher
// and owning the protocol engine's lifecycle.
type Orchestrator struct {
	mu    sync.Mutex
	state OrchestratorState

	options    DeviceOptions
	engine     *ProtocolEngine
	dispatcher *Dispatcher
	logger     kitlog.Logger

	wg sync.WaitGroup
}

// NewOrchestrator constructs the protocol engine and dispatcher over port,
// runs the startup command sequence, and returns an Idle Orchestrator ready
// to accept Draw calls. On any startup failure the protocol engine is
// stopped and an error returned: configuration/port errors are fatal at
// startup.
func NewOrchestrator(options DeviceOptions, port Port, logger kitlog.Logger, trace *Trace) (*Orchestrator, error) {
	model, err := LookupDeviceModel(options.Model)
	if err != nil {
		return nil, err
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	engine := NewProtocolEngine(port, logger)
	o := &Orchestrator{
		options:    options,
		engine:     engine,
		dispatcher: NewDispatcher(options, model, engine, logger, trace),
		logger:     kitlog.With(logger, "component", "orchestrator"),
	}

	if err := o.startup(); err != nil {
		engine.Stop()
		return nil, err
	}
	return o, nil
}

// startup sends the fixed startup command sequence derived from the
// device's servo-parameter mapping.
func (o *Orchestrator) startup() error {
	cmds := []string{
		fmt.Sprintf("SC,4,%d", o.options.ServoUpPosition()),
		fmt.Sprintf("SC,5,%d", o.options.ServoDownPosition()),
		fmt.Sprintf("SC,11,%d", o.options.PenUpSpeed*5),
		fmt.Sprintf("SC,12,%d", o.options.PenDownSpeed*5),
		"EM,1,1",
		"SP,1",
	}
	for _, c := range cmds {
		reply := o.engine.Write(c)
		if reply.Kind != ReplySuccess {
			return fmt.Errorf("corexy: startup command %q failed: %s", c, reply.Reason)
		}
	}
	o.logger.Log("level", "info", "event", "startup_complete")
	return nil
}

// Engine returns the orchestrator's protocol engine, so a caller can wire a
// reader (e.g. StartReader) to feed incoming port data into it.
func (o *Orchestrator) Engine() *ProtocolEngine {
	return o.engine
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Draw launches planning and dispatch of drawing in the background and
// transitions to Busy. While Busy, further Draw calls are rejected (logged,
// not queued).
func (o *Orchestrator) Draw(drawing Drawing) error {
	o.mu.Lock()
	if o.state == StateBusy {
		o.mu.Unlock()
		o.logger.Log("level", "warn", "event", "draw_rejected", "reason", "busy")
		return fmt.Errorf("corexy: orchestrator busy")
	}
	o.state = StateBusy
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		err := o.dispatcher.Dispatch(drawing)

		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()

		if err != nil {
			o.logger.Log("level", "error", "event", "dispatch_failed", "err", err)
		} else {
			o.logger.Log("level", "info", "event", "dispatch_complete")
		}
	}()
	return nil
}

// Shutdown waits for any in-flight draw to finish, sends the shutdown
// command sequence, and stops the protocol engine.
func (o *Orchestrator) Shutdown() error {
	o.wg.Wait()

	for _, c := range []string{"EM,0,0", "SP,0"} {
		reply := o.engine.Write(c)
		if reply.Kind != ReplySuccess {
			o.logger.Log("level", "warn", "event", "shutdown_command_failed", "cmd", c, "reason", reply.Reason)
		}
	}
	o.engine.Stop()
	o.logger.Log("level", "info", "event", "shutdown_complete")
	return nil
}
