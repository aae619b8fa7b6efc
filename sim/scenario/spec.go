// Package scenario loads scenario files and dispatches each run to the
// simulator or calculator its kind names.
//
// A scenario file lists runs. Each run has a name, a kind and one parameter
// block keyed by that kind:
//
//	version: "1"
//	seed: 42
//	runs:
//	  - name: crc-demo
//	    kind: crc
//	    crc: {data: "110101", generator: "1011"}
//
// Files may be YAML, TOML or JSON. All three are decoded strictly (unknown
// keys are errors) and then checked against an embedded JSON Schema.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cstopics/cstopics/sim/arq"
	"github.com/cstopics/cstopics/sim/mac"
	"github.com/cstopics/cstopics/sim/routing"
	"github.com/cstopics/cstopics/sim/scheduling"
	"github.com/cstopics/cstopics/sim/traffic"
)

// Supported file formats.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// DefaultSeed is used when a scenario omits its seed.
const DefaultSeed = 42

var (
	// ErrFormat is returned for an unsupported file extension or format name.
	ErrFormat = errors.New("unsupported scenario format")
	// ErrInvalid is returned when a scenario fails validation.
	ErrInvalid = errors.New("invalid scenario")
)

// Spec is a scenario file.
type Spec struct {
	Version string    `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Seed    int64     `json:"seed" yaml:"seed" toml:"seed"`
	Runs    []RunSpec `json:"runs" yaml:"runs" toml:"runs"`
}

// RunSpec is one run. Exactly one parameter block, the one named by Kind,
// must be set.
type RunSpec struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Kind string `json:"kind" yaml:"kind" toml:"kind"`

	Convert     *ConvertParams       `json:"convert,omitempty" yaml:"convert,omitempty" toml:"convert,omitempty"`
	Twos        *IntegerParams       `json:"twos,omitempty" yaml:"twos,omitempty" toml:"twos,omitempty"`
	SignMag     *IntegerParams       `json:"signmag,omitempty" yaml:"signmag,omitempty" toml:"signmag,omitempty"`
	IEEE754     *IEEEParams          `json:"ieee754,omitempty" yaml:"ieee754,omitempty" toml:"ieee754,omitempty"`
	CRC         *CRCParams           `json:"crc,omitempty" yaml:"crc,omitempty" toml:"crc,omitempty"`
	Checksum    *ChecksumParams      `json:"checksum,omitempty" yaml:"checksum,omitempty" toml:"checksum,omitempty"`
	Hamming     *HammingParams       `json:"hamming,omitempty" yaml:"hamming,omitempty" toml:"hamming,omitempty"`
	RLE         *RLEParams           `json:"rle,omitempty" yaml:"rle,omitempty" toml:"rle,omitempty"`
	RSA         *RSAParams           `json:"rsa,omitempty" yaml:"rsa,omitempty" toml:"rsa,omitempty"`
	Simplify    *SimplifyParams      `json:"simplify,omitempty" yaml:"simplify,omitempty" toml:"simplify,omitempty"`
	CYK         *CYKParams           `json:"cyk,omitempty" yaml:"cyk,omitempty" toml:"cyk,omitempty"`
	Normalize   *NormalizeParams     `json:"normalize,omitempty" yaml:"normalize,omitempty" toml:"normalize,omitempty"`
	ARQ         *ARQParams           `json:"arq,omitempty" yaml:"arq,omitempty" toml:"arq,omitempty"`
	CSMACD      *mac.Config          `json:"csmacd,omitempty" yaml:"csmacd,omitempty" toml:"csmacd,omitempty"`
	LeakyBucket *traffic.LeakyConfig `json:"leaky_bucket,omitempty" yaml:"leaky_bucket,omitempty" toml:"leaky_bucket,omitempty"`
	TokenBucket *traffic.TokenConfig `json:"token_bucket,omitempty" yaml:"token_bucket,omitempty" toml:"token_bucket,omitempty"`
	DV          *DVParams            `json:"dv,omitempty" yaml:"dv,omitempty" toml:"dv,omitempty"`
	Schedule    *ScheduleParams      `json:"schedule,omitempty" yaml:"schedule,omitempty" toml:"schedule,omitempty"`
}

// ConvertParams converts Value from base From to base To.
type ConvertParams struct {
	Value string `json:"value" yaml:"value" toml:"value"`
	From  int    `json:"from" yaml:"from" toml:"from"`
	To    int    `json:"to" yaml:"to" toml:"to"`
}

// IntegerParams encodes Value in Bits bits, or decodes Pattern when set.
type IntegerParams struct {
	Value   int64  `json:"value" yaml:"value" toml:"value"`
	Bits    int    `json:"bits" yaml:"bits" toml:"bits"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty" toml:"pattern,omitempty"`
}

// IEEEParams encodes Value, or decodes Pattern (binary or 0x hex) when set.
type IEEEParams struct {
	Value     float64 `json:"value" yaml:"value" toml:"value"`
	Precision int     `json:"precision" yaml:"precision" toml:"precision"`
	Pattern   string  `json:"pattern,omitempty" yaml:"pattern,omitempty" toml:"pattern,omitempty"`
}

// CRCParams computes the CRC of Data, or verifies Data as a codeword when Check is set.
type CRCParams struct {
	Data      string `json:"data" yaml:"data" toml:"data"`
	Generator string `json:"generator" yaml:"generator" toml:"generator"`
	Check     bool   `json:"check,omitempty" yaml:"check,omitempty" toml:"check,omitempty"`
}

// ChecksumParams computes the Internet checksum of Words, or verifies Verify against them.
type ChecksumParams struct {
	Words    string `json:"words" yaml:"words" toml:"words"`
	WordBits int    `json:"word_bits,omitempty" yaml:"word_bits,omitempty" toml:"word_bits,omitempty"`
	Verify   string `json:"verify,omitempty" yaml:"verify,omitempty" toml:"verify,omitempty"`
}

// HammingParams encodes Data, or corrects Received when set.
type HammingParams struct {
	Data     string `json:"data,omitempty" yaml:"data,omitempty" toml:"data,omitempty"`
	Received string `json:"received,omitempty" yaml:"received,omitempty" toml:"received,omitempty"`
}

// RLEParams run-length encodes Text, or decodes it when Decode is set.
type RLEParams struct {
	Text   string `json:"text" yaml:"text" toml:"text"`
	Decode bool   `json:"decode,omitempty" yaml:"decode,omitempty" toml:"decode,omitempty"`
}

// RSAParams generates keys from P and Q, then optionally round-trips a
// number and a text through them.
type RSAParams struct {
	P       uint64  `json:"p" yaml:"p" toml:"p"`
	Q       uint64  `json:"q" yaml:"q" toml:"q"`
	E       uint64  `json:"e,omitempty" yaml:"e,omitempty" toml:"e,omitempty"`
	Message *uint64 `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
	Text    string  `json:"text,omitempty" yaml:"text,omitempty" toml:"text,omitempty"`
}

// SimplifyParams minimizes a function given by minterms and don't-cares.
type SimplifyParams struct {
	Variables int   `json:"variables" yaml:"variables" toml:"variables"`
	Minterms  []int `json:"minterms" yaml:"minterms" toml:"minterms"`
	DontCares []int `json:"dont_cares,omitempty" yaml:"dont_cares,omitempty" toml:"dont_cares,omitempty"`
	KMap      bool  `json:"kmap,omitempty" yaml:"kmap,omitempty" toml:"kmap,omitempty"`
}

// CYKParams parses Input against a CNF Grammar written one rule per line.
type CYKParams struct {
	Grammar string `json:"grammar" yaml:"grammar" toml:"grammar"`
	Input   string `json:"input" yaml:"input" toml:"input"`
}

// NormalizeParams analyzes a relation. FDs uses "A,B -> C" lines or ';' separators.
type NormalizeParams struct {
	Schema []string `json:"schema,omitempty" yaml:"schema,omitempty" toml:"schema,omitempty"`
	FDs    string   `json:"fds" yaml:"fds" toml:"fds"`
}

// ARQParams selects a protocol and its loss pattern.
type ARQParams struct {
	Protocol   string `json:"protocol" yaml:"protocol" toml:"protocol"`
	arq.Config `yaml:",inline"`
}

// DVParams runs distance-vector routing. A nil Topology selects the
// four-router example. Each entry of Changes sets a link cost (0 removes the
// link) after the first convergence, and the routers reconverge.
type DVParams struct {
	Topology       *routing.Topology `json:"topology,omitempty" yaml:"topology,omitempty" toml:"topology,omitempty"`
	routing.Config `yaml:",inline"`
	Changes        []routing.Link `json:"changes,omitempty" yaml:"changes,omitempty" toml:"changes,omitempty"`
}

// ScheduleParams runs a CPU scheduling algorithm.
type ScheduleParams struct {
	Algorithm string               `json:"algorithm" yaml:"algorithm" toml:"algorithm"`
	Quantum   int                  `json:"quantum,omitempty" yaml:"quantum,omitempty" toml:"quantum,omitempty"`
	Processes []scheduling.Process `json:"processes" yaml:"processes" toml:"processes"`
}

// FormatFromPath maps a file extension to a format name.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q (want .yaml, .yml, .toml or .json)", ErrFormat, filepath.Ext(path))
}

// Load reads, decodes and validates a scenario file.
func Load(path string) (*Spec, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Decode(data, format)
}

// Decode parses a scenario in the given format. Unknown keys are rejected in
// every format. The decoded spec is checked against the JSON Schema and then
// by Validate.
func Decode(data []byte, format string) (*Spec, error) {
	spec := Spec{Seed: DefaultSeed}
	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&spec); err != nil {
			return nil, fmt.Errorf("parsing YAML scenario: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &spec)
		if err != nil {
			return nil, fmt.Errorf("parsing TOML scenario: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("parsing TOML scenario: unknown keys %s", strings.Join(keys, ", "))
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&spec); err != nil {
			return nil, fmt.Errorf("parsing JSON scenario: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err := CheckSchema(&spec); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks run names and that each run carries exactly the block its
// kind needs, then validates that block.
func (s *Spec) Validate() error {
	if s.Version != "" && s.Version != "1" {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalid, s.Version)
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("%w: no runs", ErrInvalid)
	}
	names := make(map[string]bool, len(s.Runs))
	for i := range s.Runs {
		r := &s.Runs[i]
		if names[r.Name] {
			return fmt.Errorf("%w: runs[%d]: duplicate name %q", ErrInvalid, i, r.Name)
		}
		names[r.Name] = true
		if err := r.Validate(); err != nil {
			return fmt.Errorf("runs[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks one run in isolation.
func (r *RunSpec) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: run name is empty", ErrInvalid)
	}
	k, ok := registry[r.Kind]
	if !ok {
		return fmt.Errorf("%w: %s: unknown kind %q; valid: %s", ErrInvalid, r.Name, r.Kind, strings.Join(Kinds(), ", "))
	}
	set := r.blocks()
	if !set[r.Kind] {
		return fmt.Errorf("%w: %s: kind %q needs a %q block", ErrInvalid, r.Name, r.Kind, r.Kind)
	}
	if len(set) > 1 {
		return fmt.Errorf("%w: %s: only the %q block may be set", ErrInvalid, r.Name, r.Kind)
	}
	if k.validate != nil {
		if err := k.validate(r); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, r.Name, err)
		}
	}
	return nil
}

// blocks reports which parameter blocks are set, keyed by kind.
func (r *RunSpec) blocks() map[string]bool {
	set := map[string]bool{}
	mark := func(kind string, present bool) {
		if present {
			set[kind] = true
		}
	}
	mark(KindConvert, r.Convert != nil)
	mark(KindTwos, r.Twos != nil)
	mark(KindSignMag, r.SignMag != nil)
	mark(KindIEEE754, r.IEEE754 != nil)
	mark(KindCRC, r.CRC != nil)
	mark(KindChecksum, r.Checksum != nil)
	mark(KindHamming, r.Hamming != nil)
	mark(KindRLE, r.RLE != nil)
	mark(KindRSA, r.RSA != nil)
	mark(KindSimplify, r.Simplify != nil)
	mark(KindCYK, r.CYK != nil)
	mark(KindNormalize, r.Normalize != nil)
	mark(KindARQ, r.ARQ != nil)
	mark(KindCSMACD, r.CSMACD != nil)
	mark(KindLeakyBucket, r.LeakyBucket != nil)
	mark(KindTokenBucket, r.TokenBucket != nil)
	mark(KindDV, r.DV != nil)
	mark(KindSchedule, r.Schedule != nil)
	return set
}
