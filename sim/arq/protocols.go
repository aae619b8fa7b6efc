package arq

import "fmt"

// StopAndWait sends one frame at a time and waits for its ACK.
func StopAndWait(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	r := newRun(ProtocolStopAndWait, 1, cfg)
	attempt := 0
	for seq := 0; seq < cfg.Frames; {
		r.base, r.next = seq, seq+1
		if r.transmit(seq, attempt > 0) {
			r.emit(EventLoss, fmt.Sprintf("frame %d (bit %d) is lost", seq, seq%2), &Packet{Kind: KindData, Seq: seq, Lost: true})
			r.emit(EventTimeout, fmt.Sprintf("timer for frame %d expires", seq), &Packet{Kind: KindData, Seq: seq})
			attempt++
			continue
		}
		r.emit(EventReceive, fmt.Sprintf("receiver gets frame %d (bit %d)", seq, seq%2), &Packet{Kind: KindData, Seq: seq})
		if seq == r.expected {
			r.deliver(seq)
		} else {
			r.emit(EventDiscard, fmt.Sprintf("frame %d is a duplicate; discard", seq), &Packet{Kind: KindData, Seq: seq})
		}
		if !r.ack(seq) {
			r.emit(EventTimeout, fmt.Sprintf("timer for frame %d expires", seq), &Packet{Kind: KindData, Seq: seq})
			attempt++
			continue
		}
		seq++
		r.base = seq
		attempt = 0
		r.emit(EventAckReceive, fmt.Sprintf("sender gets ACK %d; window slides to %d", seq-1, seq), &Packet{Kind: KindAck, Seq: seq - 1})
	}
	return r.result(), nil
}

// GoBackN keeps up to WindowSize frames outstanding. The receiver accepts only
// the next in-order frame and acknowledges cumulatively; on timeout the sender
// resends every outstanding frame.
func GoBackN(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if cfg.WindowSize < 1 {
		return Result{}, fmt.Errorf("%w: go-back-n needs window_size >= 1", ErrConfig)
	}
	r := newRun(ProtocolGoBackN, cfg.WindowSize, cfg)
	highest := 0 // one past the highest frame ever sent
	for r.base < cfg.Frames {
		roundStart := r.next
		for r.next < r.base+r.window && r.next < cfg.Frames {
			seq := r.next
			r.next++
			lost := r.transmit(seq, seq < highest)
			if lost {
				r.emit(EventLoss, fmt.Sprintf("frame %d is lost", seq), &Packet{Kind: KindData, Seq: seq, Lost: true})
				r.lostInFlight(seq)
			}
			if r.next > highest {
				highest = r.next
			}
		}

		for seq := roundStart; seq < r.next; seq++ {
			if r.inFlightLost(seq) {
				continue
			}
			r.emit(EventReceive, fmt.Sprintf("receiver gets frame %d (expecting %d)", seq, r.expected), &Packet{Kind: KindData, Seq: seq})
			ackNo := seq
			if seq == r.expected {
				r.deliver(seq)
			} else {
				r.emit(EventDiscard, fmt.Sprintf("frame %d is out of order; discard", seq), &Packet{Kind: KindData, Seq: seq})
				if r.expected == 0 {
					continue
				}
				ackNo = r.expected - 1
			}
			if !r.ack(ackNo) {
				continue
			}
			if ackNo+1 > r.base {
				r.base = ackNo + 1
			}
			r.emit(EventAckReceive, fmt.Sprintf("sender gets cumulative ACK %d; base = %d", ackNo, r.base), &Packet{Kind: KindAck, Seq: ackNo})
		}

		if r.base < r.next {
			r.emit(EventTimeout, fmt.Sprintf("timer for frame %d expires; go back to %d", r.base, r.base), &Packet{Kind: KindData, Seq: r.base})
			r.next = r.base
		}
	}
	return r.result(), nil
}

// SelectiveRepeat acknowledges frames individually, buffers out-of-order
// arrivals inside the receive window, and retransmits only frames whose
// timers expire.
func SelectiveRepeat(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if cfg.WindowSize < 1 {
		return Result{}, fmt.Errorf("%w: selective-repeat needs window_size >= 1", ErrConfig)
	}
	r := newRun(ProtocolSelectiveRepeat, cfg.WindowSize, cfg)
	acked := make([]bool, cfg.Frames)
	pending := make([]int, 0)
	for r.base < cfg.Frames {
		batch := make([]int, 0, r.window)
		again := make(map[int]bool)
		for _, seq := range pending {
			batch = append(batch, seq)
			again[seq] = true
		}
		pending = pending[:0]
		for r.next < r.base+r.window && r.next < cfg.Frames {
			batch = append(batch, r.next)
			r.next++
		}

		for _, seq := range batch {
			if r.transmit(seq, again[seq]) {
				r.emit(EventLoss, fmt.Sprintf("frame %d is lost", seq), &Packet{Kind: KindData, Seq: seq, Lost: true})
				r.lostInFlight(seq)
			}
		}

		for _, seq := range batch {
			if r.inFlightLost(seq) {
				continue
			}
			r.emit(EventReceive, fmt.Sprintf("receiver gets frame %d (expecting %d)", seq, r.expected), &Packet{Kind: KindData, Seq: seq})
			switch {
			case seq == r.expected:
				r.deliver(seq)
				for r.buffered[r.expected] {
					delete(r.buffered, r.expected)
					r.deliver(r.expected)
				}
			case seq > r.expected && !r.buffered[seq]:
				r.buffered[seq] = true
				r.emit(EventBuffer, fmt.Sprintf("frame %d is out of order; buffer it", seq), &Packet{Kind: KindData, Seq: seq})
			default:
				r.emit(EventDiscard, fmt.Sprintf("frame %d is a duplicate; discard and re-acknowledge", seq), &Packet{Kind: KindData, Seq: seq})
			}
			if !r.ack(seq) {
				continue
			}
			acked[seq] = true
			for r.base < cfg.Frames && acked[r.base] {
				r.base++
			}
			r.emit(EventAckReceive, fmt.Sprintf("sender gets ACK %d; base = %d", seq, r.base), &Packet{Kind: KindAck, Seq: seq})
		}

		for seq := r.base; seq < r.next; seq++ {
			if !acked[seq] {
				r.emit(EventTimeout, fmt.Sprintf("timer for frame %d expires", seq), &Packet{Kind: KindData, Seq: seq})
				pending = append(pending, seq)
			}
		}
	}
	return r.result(), nil
}
