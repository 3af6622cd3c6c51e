package extract

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/looplab/fsm"

	"github.com/jmylchreest/domcolour/internal/colour"
)

// Status is the externally visible extraction status.
type Status string

const (
	StatusStandby    Status = "Standby"
	StatusProcessing Status = "Processing"
	StatusReady      Status = "Ready"
	StatusFailed     Status = "Failed"
)

// Poller events.
const (
	eventTrigger    = "trigger"
	eventProcessing = "processing"
	eventComplete   = "complete"
	eventFail       = "fail"
)

// RampSink receives finished ramps. Resize is called with the number of
// colours that survived filtering so a dependent display can be sized to match.
type RampSink interface {
	WriteRamp(ramp *colour.Ramp) error
	Resize(width int) error
}

type discardSink struct{}

func (discardSink) WriteRamp(*colour.Ramp) error { return nil }
func (discardSink) Resize(int) error             { return nil }

// Poller drains a session mailbox once per tick and drives the status machine.
// It must only be used from the caller's goroutine.
type Poller struct {
	fsm     *fsm.FSM
	mailbox *Mailbox
	enabled bool
	bounds  colour.Bounds
	sink    RampSink
	logger  hclog.Logger

	ramp *colour.Ramp
	err  error
}

// NewPoller creates an idle poller that builds ramps within bounds and hands them to sink.
func NewPoller(bounds colour.Bounds, sink RampSink, logger hclog.Logger) *Poller {
	if sink == nil {
		sink = discardSink{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	p := &Poller{bounds: bounds, sink: sink, logger: logger}
	p.fsm = fsm.NewFSM(
		string(StatusStandby),
		fsm.Events{
			{Name: eventTrigger, Src: []string{string(StatusStandby), string(StatusReady), string(StatusFailed)}, Dst: string(StatusStandby)},
			{Name: eventProcessing, Src: []string{string(StatusStandby)}, Dst: string(StatusProcessing)},
			{Name: eventComplete, Src: []string{string(StatusProcessing)}, Dst: string(StatusReady)},
			{Name: eventFail, Src: []string{string(StatusProcessing)}, Dst: string(StatusFailed)},
		},
		fsm.Callbacks{
			"after_event": func(e *fsm.Event) {
				if e.Src != e.Dst {
					p.logger.Debug("status changed", "from", e.Src, "to", e.Dst, "event", e.Event)
				}
			},
		},
	)
	return p
}

// Status returns the current status.
func (p *Poller) Status() Status {
	return Status(p.fsm.Current())
}

// Polling reports whether the poller is waiting on a mailbox.
func (p *Poller) Polling() bool {
	return p.enabled
}

// Ramp returns the last ramp handed to the sink, or nil.
func (p *Poller) Ramp() *colour.Ramp {
	return p.ramp
}

// Err returns the failure of the last session, or nil.
func (p *Poller) Err() error {
	return p.err
}

// Arm starts watching mailbox for a new session.
func (p *Poller) Arm(mailbox *Mailbox) error {
	if p.enabled {
		return ErrBusy
	}
	if err := p.event(eventTrigger); err != nil {
		return err
	}
	p.mailbox = mailbox
	p.ramp = nil
	p.err = nil
	p.enabled = true
	return nil
}

// Poll performs one non-blocking step. An empty mailbox is a no-op; a failed
// session returns its error; any other receive or ordering problem is returned
// as well.
func (p *Poller) Poll() (Status, error) {
	if !p.enabled {
		return p.Status(), nil
	}

	msg, err := p.mailbox.TryReceive()
	if errors.Is(err, ErrEmpty) {
		return p.Status(), nil
	}
	if err != nil {
		return p.Status(), fmt.Errorf("failed to receive from mailbox: %w", err)
	}

	switch msg.Kind {
	case KindProcessing:
		if err := p.event(eventProcessing); err != nil {
			return p.Status(), err
		}

	case KindFailed:
		if err := p.event(eventFail); err != nil {
			return p.Status(), err
		}
		p.finish(msg.Err)
		return p.Status(), fmt.Errorf("extraction failed: %w", msg.Err)

	case KindResult:
		if !p.fsm.Can(eventComplete) {
			return p.Status(), fmt.Errorf("%w: result while %s", ErrOutOfOrder, p.Status())
		}
		if err := p.deliver(msg.Colours); err != nil {
			if ferr := p.event(eventFail); ferr != nil {
				return p.Status(), ferr
			}
			p.finish(err)
			return p.Status(), err
		}
		if err := p.event(eventComplete); err != nil {
			return p.Status(), err
		}
		p.finish(nil)

	default:
		return p.Status(), fmt.Errorf("%w: unknown message %s", ErrOutOfOrder, msg.Kind)
	}

	return p.Status(), nil
}

// deliver builds the ramp and hands it downstream. Empty input is logged and
// leaves the sink untouched.
func (p *Poller) deliver(colours []colour.LuminanceColour) error {
	ramp, err := colour.BuildRamp(colours, p.bounds)
	if errors.Is(err, colour.ErrEmptyInput) {
		p.logger.Warn("ramp not built, missing colours")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to build ramp: %w", err)
	}

	if err := p.sink.WriteRamp(ramp); err != nil {
		return fmt.Errorf("failed to write ramp: %w", err)
	}
	if err := p.sink.Resize(ramp.Len()); err != nil {
		return fmt.Errorf("failed to resize display: %w", err)
	}

	p.ramp = ramp
	p.logger.Debug("ramp delivered", "colours", len(colours), "within_bounds", ramp.Len())
	return nil
}

func (p *Poller) finish(err error) {
	p.err = err
	p.enabled = false
	p.mailbox = nil
}

// event fires name, treating a transition to the same state as success.
func (p *Poller) event(name string) error {
	err := p.fsm.Event(name)
	if _, ok := err.(fsm.NoTransitionError); err != nil && !ok {
		return fmt.Errorf("%w: %s while %s: %v", ErrOutOfOrder, name, p.Status(), err)
	}
	return nil
}
