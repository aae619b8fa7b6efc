package scenario

import (
	"fmt"
	"sort"

	"github.com/cstopics/cstopics/sim"
	"github.com/cstopics/cstopics/sim/arq"
	"github.com/cstopics/cstopics/sim/boolean"
	"github.com/cstopics/cstopics/sim/cyk"
	"github.com/cstopics/cstopics/sim/errctl"
	"github.com/cstopics/cstopics/sim/mac"
	"github.com/cstopics/cstopics/sim/normalize"
	"github.com/cstopics/cstopics/sim/numeric"
	"github.com/cstopics/cstopics/sim/rle"
	"github.com/cstopics/cstopics/sim/routing"
	"github.com/cstopics/cstopics/sim/rsa"
	"github.com/cstopics/cstopics/sim/scheduling"
	"github.com/cstopics/cstopics/sim/traffic"
	"github.com/cstopics/cstopics/sim/trace"
)

// Run kinds. Each is also the key of its parameter block.
const (
	KindConvert     = "convert"
	KindTwos        = "twos"
	KindSignMag     = "signmag"
	KindIEEE754     = "ieee754"
	KindCRC         = "crc"
	KindChecksum    = "checksum"
	KindHamming     = "hamming"
	KindRLE         = "rle"
	KindRSA         = "rsa"
	KindSimplify    = "simplify"
	KindCYK         = "cyk"
	KindNormalize   = "normalize"
	KindARQ         = "arq"
	KindCSMACD      = "csmacd"
	KindLeakyBucket = "leaky_bucket"
	KindTokenBucket = "token_bucket"
	KindDV          = "dv"
	KindSchedule    = "schedule"
)

// execution is what a kind produces before it is wrapped in an Outcome.
type execution struct {
	result   any
	steps    []string
	timeline []any
	frames   []sim.Frame
}

func computed(result any, steps []string) execution {
	return execution{result: result, steps: steps}
}

// timeline wraps a generator result. Its steps are the event descriptions.
func timeline[E sim.Event](result any, events []E) execution {
	frames := trace.Headers(events)
	out := execution{
		result:   result,
		steps:    make([]string, len(frames)),
		timeline: make([]any, len(events)),
		frames:   frames,
	}
	for i, f := range frames {
		out.steps[i] = fmt.Sprintf("t=%d %s: %s", f.Time, f.Type, f.Description)
		out.timeline[i] = events[i]
	}
	return out
}

type kind struct {
	summary  string
	timeline bool
	example  func() RunSpec
	validate func(*RunSpec) error
	run      func(*RunSpec, *sim.PartitionedRNG) (execution, error)
}

var registry = map[string]kind{
	KindConvert: {
		summary: "convert an integer between bases 2 to 36",
		example: func() RunSpec {
			return RunSpec{Convert: &ConvertParams{Value: "255", From: 10, To: 16}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			c, err := numeric.Convert(r.Convert.Value, r.Convert.From, r.Convert.To)
			return computed(c, c.Steps), err
		},
	},
	KindTwos: {
		summary: "two's complement encoding and decoding",
		example: func() RunSpec {
			return RunSpec{Twos: &IntegerParams{Value: -5, Bits: 8}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			return integer(r.Twos, numeric.TwosComplement, numeric.DecodeTwosComplement)
		},
	},
	KindSignMag: {
		summary: "signed magnitude encoding and decoding",
		example: func() RunSpec {
			return RunSpec{SignMag: &IntegerParams{Value: -5, Bits: 8}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			return integer(r.SignMag, numeric.SignedMagnitude, numeric.DecodeSignedMagnitude)
		},
	},
	KindIEEE754: {
		summary: "IEEE-754 single and double precision fields",
		example: func() RunSpec {
			return RunSpec{IEEE754: &IEEEParams{Value: -6.25, Precision: 32}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			var f numeric.Float
			var err error
			if r.IEEE754.Pattern != "" {
				f, err = numeric.DecodeIEEE754(r.IEEE754.Pattern)
			} else {
				f, err = numeric.IEEE754(r.IEEE754.Value, r.IEEE754.Precision)
			}
			return computed(f, f.Steps), err
		},
	},
	KindCRC: {
		summary: "cyclic redundancy check by polynomial long division",
		example: func() RunSpec {
			return RunSpec{CRC: &CRCParams{Data: "110101", Generator: "1011"}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			check := errctl.CRC
			if r.CRC.Check {
				check = errctl.CRCCheck
			}
			res, err := check(r.CRC.Data, r.CRC.Generator)
			return computed(res, res.Steps), err
		},
	},
	KindChecksum: {
		summary: "Internet checksum with end-around carry",
		example: func() RunSpec {
			return RunSpec{Checksum: &ChecksumParams{Words: "4500 0073 0000 4000 4011 c0a8 0001 c0a8 00c7"}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			words := errctl.ParseWords(r.Checksum.Words)
			bits := r.Checksum.WordBits
			if bits == 0 {
				bits = errctl.DefaultWordBits
			}
			var res errctl.ChecksumResult
			var err error
			if r.Checksum.Verify != "" {
				res, err = errctl.VerifyChecksum(words, r.Checksum.Verify, bits)
			} else {
				res, err = errctl.Checksum(words, bits)
			}
			return computed(res, res.Steps), err
		},
	},
	KindHamming: {
		summary: "Hamming code encoding and single-bit correction",
		example: func() RunSpec {
			return RunSpec{Hamming: &HammingParams{Data: "1011"}}
		},
		validate: func(r *RunSpec) error {
			if (r.Hamming.Data == "") == (r.Hamming.Received == "") {
				return fmt.Errorf("hamming needs exactly one of data or received")
			}
			return nil
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			if r.Hamming.Received != "" {
				c, err := errctl.HammingCorrect(r.Hamming.Received)
				return computed(c, c.Steps), err
			}
			c, err := errctl.HammingEncode(r.Hamming.Data)
			return computed(c, c.Steps), err
		},
	},
	KindRLE: {
		summary: "run-length encoding",
		example: func() RunSpec {
			return RunSpec{RLE: &RLEParams{Text: "AAABBC"}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			code := rle.Encode
			if r.RLE.Decode {
				code = rle.Decode
			}
			res, err := code(r.RLE.Text)
			return computed(res, res.Steps), err
		},
	},
	KindRSA: {
		summary: "RSA key generation, encryption and decryption",
		example: func() RunSpec {
			m := uint64(65)
			return RunSpec{RSA: &RSAParams{P: 61, Q: 53, E: 17, Message: &m}}
		},
		run: runRSA,
	},
	KindSimplify: {
		summary: "Quine-McCluskey minimization with an optional Karnaugh map",
		example: func() RunSpec {
			return RunSpec{Simplify: &SimplifyParams{Variables: 4, Minterms: []int{4, 8, 10, 11, 12, 15}, DontCares: []int{9, 14}, KMap: true}}
		},
		run: runSimplify,
	},
	KindCYK: {
		summary: "CYK membership test for a grammar in Chomsky normal form",
		example: func() RunSpec {
			return RunSpec{CYK: &CYKParams{
				Grammar: "S -> AB | BC\nA -> BA | a\nB -> CC | b\nC -> AB | a",
				Input:   "baaba",
			}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			res, err := cyk.ParseText(r.CYK.Grammar, r.CYK.Input)
			return computed(res, res.Steps), err
		},
	},
	KindNormalize: {
		summary: "candidate keys, normal form and minimal cover of a relation",
		example: func() RunSpec {
			return RunSpec{Normalize: &NormalizeParams{Schema: []string{"A", "B", "C", "D"}, FDs: "A,B -> C; C -> D"}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			fds, err := normalize.ParseFDs(r.Normalize.FDs)
			if err != nil {
				return execution{}, err
			}
			a, err := normalize.Analyze(r.Normalize.Schema, fds)
			return computed(a, a.Steps), err
		},
	},
	KindARQ: {
		summary:  "Stop-and-Wait, Go-Back-N and Selective Repeat timelines",
		timeline: true,
		example: func() RunSpec {
			return RunSpec{ARQ: &ARQParams{Protocol: arq.ProtocolGoBackN, Config: arq.Config{Frames: 8, WindowSize: 4, LostFrames: []int{2}, LostAcks: []int{5}}}}
		},
		validate: func(r *RunSpec) error { return r.ARQ.Config.Validate() },
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			res, err := arq.Run(r.ARQ.Protocol, r.ARQ.Config)
			return timeline(res, res.Events), err
		},
	},
	KindCSMACD: {
		summary:  "CSMA/CD with collisions and binary exponential backoff",
		timeline: true,
		example: func() RunSpec {
			return RunSpec{CSMACD: &mac.Config{Stations: 3, FramesPerStation: 2, FrameSlots: 2}}
		},
		validate: func(r *RunSpec) error { return r.CSMACD.Validate() },
		run: func(r *RunSpec, rng *sim.PartitionedRNG) (execution, error) {
			res, err := mac.CSMACD(*r.CSMACD, rng.ForSubsystem(sim.SubsystemCSMACD))
			return timeline(res, res.Events), err
		},
	},
	KindLeakyBucket: {
		summary:  "leaky bucket traffic shaping",
		timeline: true,
		example: func() RunSpec {
			return RunSpec{LeakyBucket: &traffic.LeakyConfig{Arrivals: traffic.Arrivals{Explicit: []int{4, 4, 4, 0, 0}}, Capacity: 5, LeakRate: 2}}
		},
		validate: func(r *RunSpec) error { return r.LeakyBucket.Validate() },
		run: func(r *RunSpec, rng *sim.PartitionedRNG) (execution, error) {
			res, err := traffic.LeakyBucket(*r.LeakyBucket, rng.ForSubsystem(sim.SubsystemTraffic))
			return timeline(res, res.Events), err
		},
	},
	KindTokenBucket: {
		summary:  "token bucket traffic shaping",
		timeline: true,
		example: func() RunSpec {
			return RunSpec{TokenBucket: &traffic.TokenConfig{Arrivals: traffic.Arrivals{Explicit: []int{5, 0, 0, 0}}, Capacity: 3, Rate: 1}}
		},
		validate: func(r *RunSpec) error { return r.TokenBucket.Validate() },
		run: func(r *RunSpec, rng *sim.PartitionedRNG) (execution, error) {
			res, err := traffic.TokenBucket(*r.TokenBucket, rng.ForSubsystem(sim.SubsystemTraffic))
			return timeline(res, res.Events), err
		},
	},
	KindDV: {
		summary:  "distance-vector routing convergence",
		timeline: true,
		example: func() RunSpec {
			return RunSpec{DV: &DVParams{}}
		},
		validate: func(r *RunSpec) error {
			if r.DV.Topology != nil {
				if err := r.DV.Topology.Validate(); err != nil {
					return err
				}
			}
			return r.DV.Config.Validate()
		},
		run: runDV,
	},
	KindSchedule: {
		summary:  "CPU scheduling: FCFS, SJF, SRTF, RR and priority",
		timeline: true,
		example: func() RunSpec {
			return RunSpec{Schedule: &ScheduleParams{Algorithm: scheduling.RR, Quantum: 4, Processes: []scheduling.Process{
				{ID: "P1", Burst: 24}, {ID: "P2", Burst: 3}, {ID: "P3", Burst: 3},
			}}}
		},
		run: func(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
			p := r.Schedule
			res, err := scheduling.Schedule(p.Algorithm, p.Processes, p.Quantum)
			return timeline(res, res.Events), err
		},
	},
}

// Kinds returns every run kind, sorted.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KindInfo describes a run kind.
type KindInfo struct {
	Kind     string `json:"kind" yaml:"kind"`
	Summary  string `json:"summary" yaml:"summary"`
	Timeline bool   `json:"timeline" yaml:"timeline"`
}

// Describe returns a KindInfo for every kind, sorted by kind.
func Describe() []KindInfo {
	out := make([]KindInfo, 0, len(registry))
	for _, name := range Kinds() {
		k := registry[name]
		out = append(out, KindInfo{Kind: name, Summary: k.summary, Timeline: k.timeline})
	}
	return out
}

// Example returns a ready-to-run RunSpec for kind.
func Example(kindName string) (RunSpec, bool) {
	k, ok := registry[kindName]
	if !ok {
		return RunSpec{}, false
	}
	r := k.example()
	r.Name = kindName + "-example"
	r.Kind = kindName
	return r, true
}

func integer(p *IntegerParams, encode func(int64, int) (numeric.Encoding, error), decode func(string) (int64, error)) (execution, error) {
	if p.Pattern == "" {
		enc, err := encode(p.Value, p.Bits)
		return computed(enc, enc.Steps), err
	}
	v, err := decode(p.Pattern)
	if err != nil {
		return execution{}, err
	}
	steps := []string{fmt.Sprintf("%s decodes to %d", p.Pattern, v)}
	return computed(numeric.Encoding{Value: v, Bits: len(p.Pattern), Binary: p.Pattern, Steps: steps}, steps), nil
}

// RSAResult is the outcome of an rsa run.
type RSAResult struct {
	Keys      rsa.KeyPair   `json:"keys" yaml:"keys"`
	Encrypted *rsa.Exchange `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
	Decrypted *rsa.Exchange `json:"decrypted,omitempty" yaml:"decrypted,omitempty"`
	Cipher    []uint64      `json:"cipher,omitempty" yaml:"cipher,omitempty"`
	Plain     string        `json:"plain,omitempty" yaml:"plain,omitempty"`
}

func runRSA(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
	p := r.RSA
	keys, err := rsa.GenerateKeys(p.P, p.Q, p.E)
	if err != nil {
		return execution{}, err
	}
	res := RSAResult{Keys: keys}
	steps := append([]string(nil), keys.Steps...)
	if p.Message != nil {
		enc, err := rsa.Encrypt(*p.Message, keys.Public)
		if err != nil {
			return execution{}, err
		}
		dec, err := rsa.Decrypt(enc.Output, keys.Private)
		if err != nil {
			return execution{}, err
		}
		res.Encrypted, res.Decrypted = &enc, &dec
		steps = append(steps, enc.Steps...)
		steps = append(steps, dec.Steps...)
	}
	if p.Text != "" {
		cipher, err := rsa.EncryptText(p.Text, keys.Public)
		if err != nil {
			return execution{}, err
		}
		plain, err := rsa.DecryptText(cipher, keys.Private)
		if err != nil {
			return execution{}, err
		}
		res.Cipher, res.Plain = cipher, plain
		steps = append(steps, fmt.Sprintf("text %q encrypts rune by rune to %v", p.Text, cipher))
	}
	return computed(res, steps), nil
}

// SimplifyResult is the outcome of a simplify run.
type SimplifyResult struct {
	boolean.Result `yaml:",inline"`
	KMap           *boolean.KMap `json:"kmap,omitempty" yaml:"kmap,omitempty"`
}

func runSimplify(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
	p := r.Simplify
	res, err := boolean.Simplify(p.Variables, p.Minterms, p.DontCares)
	if err != nil {
		return execution{}, err
	}
	out := SimplifyResult{Result: res}
	if p.KMap {
		km, err := boolean.BuildKMap(p.Variables, p.Minterms, p.DontCares)
		if err != nil {
			return execution{}, err
		}
		out.KMap = &km
	}
	return computed(out, res.Steps), nil
}

// DVResult is the outcome of a dv run. Reconverged is set when link
// changes were applied after the first convergence.
type DVResult struct {
	Initial     routing.Result  `json:"initial" yaml:"initial"`
	Reconverged *routing.Result `json:"reconverged,omitempty" yaml:"reconverged,omitempty"`
}

func runDV(r *RunSpec, _ *sim.PartitionedRNG) (execution, error) {
	p := r.DV
	topo := routing.ExampleTopology()
	if p.Topology != nil {
		topo = *p.Topology
	}
	first, err := routing.DistanceVector(topo, p.Config)
	if err != nil {
		return execution{}, err
	}
	if len(p.Changes) == 0 {
		return timeline(DVResult{Initial: first}, first.Events), nil
	}
	for _, l := range p.Changes {
		topo = topo.WithLink(l.From, l.To, l.Cost)
	}
	second, err := routing.Reconverge(first.Tables, topo, p.Config)
	if err != nil {
		return execution{}, err
	}
	events := append([]routing.Event(nil), first.Events...)
	offset := first.Events[len(first.Events)-1].Time + 1
	for _, e := range second.Events {
		e.Time += offset
		events = append(events, e)
	}
	return timeline(DVResult{Initial: first, Reconverged: &second}, events), nil
}
