// Package arq generates precomputed timelines for the Automatic Repeat reQuest
// protocols: Stop-and-Wait, Go-Back-N and Selective Repeat.
//
// Sender and receiver are interleaved deterministically in one function. Loss
// is injected by index: a frame or ACK number listed in the Config is lost on
// its first transmission only, so every run terminates.
package arq

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cstopics/cstopics/sim"
)

// MaxFrames bounds the length of a generated timeline.
const MaxFrames = 1000

// Event types.
const (
	EventSend       = "SEND"
	EventRetransmit = "RETRANSMIT"
	EventLoss       = "LOSS"
	EventReceive    = "RECEIVE"
	EventDeliver    = "DELIVER"
	EventBuffer     = "BUFFER"
	EventDiscard    = "DISCARD"
	EventAckSend    = "ACK_SEND"
	EventAckLoss    = "ACK_LOSS"
	EventAckReceive = "ACK_RECEIVE"
	EventTimeout    = "TIMEOUT"
	EventComplete   = "COMPLETE"
)

// Packet kinds.
const (
	KindData = "DATA"
	KindAck  = "ACK"
)

// Protocol names.
const (
	ProtocolStopAndWait     = "stop-and-wait"
	ProtocolGoBackN         = "go-back-n"
	ProtocolSelectiveRepeat = "selective-repeat"
)

// ErrConfig is returned for an invalid Config.
var ErrConfig = errors.New("invalid arq config")

// Config parameterizes one protocol run.
type Config struct {
	Frames     int   `json:"frames" yaml:"frames" toml:"frames"`
	WindowSize int   `json:"window_size" yaml:"window_size" toml:"window_size"`
	LostFrames []int `json:"lost_frames,omitempty" yaml:"lost_frames,omitempty" toml:"lost_frames"`
	LostAcks   []int `json:"lost_acks,omitempty" yaml:"lost_acks,omitempty" toml:"lost_acks"`
}

// Validate checks ranges. Stop-and-Wait ignores WindowSize.
func (c Config) Validate() error {
	if c.Frames < 1 || c.Frames > MaxFrames {
		return fmt.Errorf("%w: frames must be in [1, %d], got %d", ErrConfig, MaxFrames, c.Frames)
	}
	if c.WindowSize < 0 {
		return fmt.Errorf("%w: window_size must be non-negative, got %d", ErrConfig, c.WindowSize)
	}
	for _, f := range c.LostFrames {
		if f < 0 || f >= c.Frames {
			return fmt.Errorf("%w: lost frame %d outside [0, %d)", ErrConfig, f, c.Frames)
		}
	}
	for _, a := range c.LostAcks {
		if a < 0 || a >= c.Frames {
			return fmt.Errorf("%w: lost ack %d outside [0, %d)", ErrConfig, a, c.Frames)
		}
	}
	return nil
}

// Packet is the frame or acknowledgment an event is about.
type Packet struct {
	Kind string `json:"kind" yaml:"kind"`
	Seq  int    `json:"seq" yaml:"seq"`
	Lost bool   `json:"lost,omitempty" yaml:"lost,omitempty"`
}

// Event is one step of an ARQ timeline with a snapshot of both endpoints.
type Event struct {
	sim.Frame
	Base       int     `json:"base" yaml:"base"`
	NextSeqNum int     `json:"next_seq_num" yaml:"next_seq_num"`
	Expected   int     `json:"expected" yaml:"expected"`
	Buffered   []int   `json:"buffered,omitempty" yaml:"buffered,omitempty"`
	Delivered  int     `json:"delivered" yaml:"delivered"`
	Packet     *Packet `json:"packet,omitempty" yaml:"packet,omitempty"`
}

// Result is a finished timeline plus totals.
type Result struct {
	Protocol        string  `json:"protocol" yaml:"protocol"`
	WindowSize      int     `json:"window_size" yaml:"window_size"`
	Events          []Event `json:"events" yaml:"events"`
	Delivered       []int   `json:"delivered" yaml:"delivered"`
	Transmissions   int     `json:"transmissions" yaml:"transmissions"`
	Retransmissions int     `json:"retransmissions" yaml:"retransmissions"`
	Efficiency      float64 `json:"efficiency" yaml:"efficiency"` // frames / transmissions
}

// run holds the state shared by the three generators.
type run struct {
	protocol   string
	window     int
	clock      sim.Clock
	events     []Event
	lostData   map[int]bool
	lostAck    map[int]bool
	base, next int
	expected   int
	buffered   map[int]bool
	dropped    map[int]bool // frames lost in the current round
	delivered  []int
	sends      int
	resends    int
}

func newRun(protocol string, window int, cfg Config) *run {
	r := &run{
		protocol:  protocol,
		window:    window,
		lostData:  make(map[int]bool),
		lostAck:   make(map[int]bool),
		buffered:  make(map[int]bool),
		dropped:   make(map[int]bool),
		events:    make([]Event, 0, cfg.Frames*4),
		delivered: make([]int, 0, cfg.Frames),
	}
	for _, f := range cfg.LostFrames {
		r.lostData[f] = true
	}
	for _, a := range cfg.LostAcks {
		r.lostAck[a] = true
	}
	return r
}

func (r *run) emit(typ, desc string, pkt *Packet) {
	e := Event{
		Frame:      sim.Frame{Time: r.clock.Tick(), Type: typ, Description: desc},
		Base:       r.base,
		NextSeqNum: r.next,
		Expected:   r.expected,
		Delivered:  len(r.delivered),
		Packet:     pkt,
	}
	for seq := r.expected; seq < r.expected+r.window; seq++ {
		if r.buffered[seq] {
			e.Buffered = append(e.Buffered, seq)
		}
	}
	logrus.Debugf("[%s] t=%d %s: %s", r.protocol, e.Time, typ, desc)
	r.events = append(r.events, e)
}

// transmit emits SEND or RETRANSMIT and reports whether the frame is lost.
func (r *run) transmit(seq int, again bool) bool {
	if again {
		r.resends++
		r.emit(EventRetransmit, fmt.Sprintf("sender retransmits frame %d", seq), &Packet{Kind: KindData, Seq: seq})
	} else {
		r.sends++
		r.emit(EventSend, fmt.Sprintf("sender sends frame %d", seq), &Packet{Kind: KindData, Seq: seq})
	}
	return r.take(r.lostData, seq)
}

// take consumes a one-shot loss entry.
func (r *run) take(set map[int]bool, seq int) bool {
	if set[seq] {
		delete(set, seq)
		return true
	}
	return false
}

func (r *run) lostInFlight(seq int) {
	r.dropped[seq] = true
}

// inFlightLost reports, once, whether seq was lost in the current round.
func (r *run) inFlightLost(seq int) bool {
	return r.take(r.dropped, seq)
}

func (r *run) deliver(seq int) {
	r.delivered = append(r.delivered, seq)
	r.expected = seq + 1
	r.emit(EventDeliver, fmt.Sprintf("receiver delivers frame %d to the upper layer", seq), &Packet{Kind: KindData, Seq: seq})
}

// ack sends an acknowledgment and reports whether it reached the sender.
func (r *run) ack(seq int) bool {
	r.emit(EventAckSend, fmt.Sprintf("receiver sends ACK %d", seq), &Packet{Kind: KindAck, Seq: seq})
	if r.take(r.lostAck, seq) {
		r.emit(EventAckLoss, fmt.Sprintf("ACK %d is lost", seq), &Packet{Kind: KindAck, Seq: seq, Lost: true})
		return false
	}
	return true
}

func (r *run) result() Result {
	r.emit(EventComplete, fmt.Sprintf("all %d frames delivered", len(r.delivered)), nil)
	res := Result{
		Protocol:        r.protocol,
		WindowSize:      r.window,
		Events:          r.events,
		Delivered:       r.delivered,
		Transmissions:   r.sends + r.resends,
		Retransmissions: r.resends,
	}
	if res.Transmissions > 0 {
		res.Efficiency = float64(len(r.delivered)) / float64(res.Transmissions)
	}
	return res
}

// Run dispatches by protocol name.
func Run(protocol string, cfg Config) (Result, error) {
	switch protocol {
	case ProtocolStopAndWait:
		return StopAndWait(cfg)
	case ProtocolGoBackN:
		return GoBackN(cfg)
	case ProtocolSelectiveRepeat:
		return SelectiveRepeat(cfg)
	}
	return Result{}, fmt.Errorf("%w: unknown protocol %q", ErrConfig, protocol)
}
