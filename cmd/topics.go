package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cstopics/cstopics/sim"
	"github.com/cstopics/cstopics/sim/arq"
	"github.com/cstopics/cstopics/sim/mac"
	"github.com/cstopics/cstopics/sim/routing"
	"github.com/cstopics/cstopics/sim/scenario"
	"github.com/cstopics/cstopics/sim/scheduling"
	"github.com/cstopics/cstopics/sim/traffic"
)

// Topic flags. Each topic command builds one RunSpec from its flags and runs it
// through the same path as a scenario file.
var (
	convertFrom int
	convertTo   int

	intBits    int
	intPattern string

	ieeePrecision int
	ieeePattern   string

	crcGenerator string
	crcCheck     bool

	checksumWordBits int
	checksumVerify   string

	hammingReceived string

	rleDecode bool

	rsaE       uint64
	rsaMessage int64
	rsaText    string

	simplifyVariables int
	simplifyDontCares []int
	simplifyKMap      bool

	cykGrammarPath string

	normalizeSchema []string

	arqProtocol string
	arqCfg      arq.Config

	csmaCfg mac.Config

	bucketToken bool
	bucketCfg   traffic.TokenConfig
	bucketDrain bool

	dvCfg      routing.Config
	dvTopology string
	dvChanges  []string

	scheduleQuantum   int
	scheduleProcesses []string
)

// runTopic executes a single run built from command-line flags and prints it
// in the selected output format.
func runTopic(run scenario.RunSpec) {
	if err := scenario.CheckRunSchema(run); err != nil {
		logrus.Fatalf("Invalid %s run: %v", run.Kind, err)
	}
	out := scenario.Execute(run, sim.NewPartitionedRNG(sim.NewSimulationKey(seed)))
	if err := writeOutcomes(os.Stdout, []scenario.Outcome{out}, outputFormat); err != nil {
		logrus.Fatalf("Failed to write outcome: %v", err)
	}
	if !out.OK() {
		os.Exit(1)
	}
}

var convertCmd = &cobra.Command{
	Use:   "convert <value>",
	Short: "Convert a number between bases 2 to 36",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTopic(scenario.RunSpec{Name: "convert", Kind: scenario.KindConvert,
			Convert: &scenario.ConvertParams{Value: args[0], From: convertFrom, To: convertTo}})
	},
}

// integerCmd builds the twos and signmag commands, which share flags.
func integerCmd(kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " [value]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			p := &scenario.IntegerParams{Bits: intBits, Pattern: intPattern}
			if intPattern == "" {
				if len(args) != 1 {
					logrus.Fatalf("%s needs a value or --pattern", kind)
				}
				v, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					logrus.Fatalf("Invalid value %q: %v", args[0], err)
				}
				p.Value = v
			}
			run := scenario.RunSpec{Name: kind, Kind: kind}
			if kind == scenario.KindTwos {
				run.Twos = p
			} else {
				run.SignMag = p
			}
			runTopic(run)
		},
	}
}

var ieeeCmd = &cobra.Command{
	Use:   "ieee754 [value]",
	Short: "Encode a real number as IEEE 754, or decode a bit pattern",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := &scenario.IEEEParams{Precision: ieeePrecision, Pattern: ieeePattern}
		if ieeePattern == "" {
			if len(args) != 1 {
				logrus.Fatalf("ieee754 needs a value or --pattern")
			}
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				logrus.Fatalf("Invalid value %q: %v", args[0], err)
			}
			p.Value = v
		}
		runTopic(scenario.RunSpec{Name: "ieee754", Kind: scenario.KindIEEE754, IEEE754: p})
	},
}

var crcCmd = &cobra.Command{
	Use:   "crc <bits>",
	Short: "Compute a CRC by polynomial long division, or check a codeword",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTopic(scenario.RunSpec{Name: "crc", Kind: scenario.KindCRC,
			CRC: &scenario.CRCParams{Data: args[0], Generator: crcGenerator, Check: crcCheck}})
	},
}

var checksumCmd = &cobra.Command{
	Use:   "checksum <word>...",
	Short: "Compute or verify a ones' complement checksum",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTopic(scenario.RunSpec{Name: "checksum", Kind: scenario.KindChecksum,
			Checksum: &scenario.ChecksumParams{Words: strings.Join(args, " "), WordBits: checksumWordBits, Verify: checksumVerify}})
	},
}

var hammingCmd = &cobra.Command{
	Use:   "hamming [data]",
	Short: "Encode data with a Hamming code, or correct a received codeword",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := &scenario.HammingParams{Received: hammingReceived}
		if len(args) == 1 {
			p.Data = args[0]
		}
		if p.Data == "" && p.Received == "" {
			logrus.Fatalf("hamming needs data or --received")
		}
		runTopic(scenario.RunSpec{Name: "hamming", Kind: scenario.KindHamming, Hamming: p})
	},
}

var rleCmd = &cobra.Command{
	Use:   "rle <text>",
	Short: "Run-length encode or decode text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTopic(scenario.RunSpec{Name: "rle", Kind: scenario.KindRLE,
			RLE: &scenario.RLEParams{Text: args[0], Decode: rleDecode}})
	},
}

var rsaCmd = &cobra.Command{
	Use:   "rsa <p> <q>",
	Short: "Generate textbook RSA keys and round-trip a message",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		p, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			logrus.Fatalf("Invalid p %q: %v", args[0], err)
		}
		q, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			logrus.Fatalf("Invalid q %q: %v", args[1], err)
		}
		params := &scenario.RSAParams{P: p, Q: q, E: rsaE, Text: rsaText}
		if rsaMessage >= 0 {
			m := uint64(rsaMessage)
			params.Message = &m
		}
		runTopic(scenario.RunSpec{Name: "rsa", Kind: scenario.KindRSA, RSA: params})
	},
}

var simplifyCmd = &cobra.Command{
	Use:   "simplify <minterm>...",
	Short: "Minimize a boolean function with Quine-McCluskey",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		minterms, err := parseInts(args)
		if err != nil {
			logrus.Fatalf("Invalid minterm: %v", err)
		}
		runTopic(scenario.RunSpec{Name: "simplify", Kind: scenario.KindSimplify,
			Simplify: &scenario.SimplifyParams{Variables: simplifyVariables, Minterms: minterms, DontCares: simplifyDontCares, KMap: simplifyKMap}})
	},
}

var cykCmd = &cobra.Command{
	Use:   "cyk <input>",
	Short: "Parse a string against a CNF grammar with the CYK algorithm",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		grammar, err := os.ReadFile(cykGrammarPath)
		if err != nil {
			logrus.Fatalf("Failed to read grammar: %v", err)
		}
		runTopic(scenario.RunSpec{Name: "cyk", Kind: scenario.KindCYK,
			CYK: &scenario.CYKParams{Grammar: string(grammar), Input: args[0]}})
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <fds>",
	Short: "Find candidate keys and normal forms from functional dependencies",
	Long:  `Dependencies are written "A,B -> C" and separated by ';' or newlines.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTopic(scenario.RunSpec{Name: "normalize", Kind: scenario.KindNormalize,
			Normalize: &scenario.NormalizeParams{Schema: normalizeSchema, FDs: args[0]}})
	},
}

var arqCmd = &cobra.Command{
	Use:   "arq",
	Short: "Trace Stop-and-Wait, Go-Back-N or Selective Repeat",
	Run: func(cmd *cobra.Command, args []string) {
		runTopic(scenario.RunSpec{Name: "arq", Kind: scenario.KindARQ,
			ARQ: &scenario.ARQParams{Protocol: arqProtocol, Config: arqCfg}})
	},
}

var csmacdCmd = &cobra.Command{
	Use:   "csmacd",
	Short: "Simulate stations sharing a medium with CSMA/CD",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := csmaCfg
		runTopic(scenario.RunSpec{Name: "csmacd", Kind: scenario.KindCSMACD, CSMACD: &cfg})
	},
}

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Shape traffic with a leaky bucket, or a token bucket with --token",
	Run: func(cmd *cobra.Command, args []string) {
		if bucketToken {
			cfg := bucketCfg
			runTopic(scenario.RunSpec{Name: "token-bucket", Kind: scenario.KindTokenBucket, TokenBucket: &cfg})
			return
		}
		runTopic(scenario.RunSpec{Name: "leaky-bucket", Kind: scenario.KindLeakyBucket,
			LeakyBucket: &traffic.LeakyConfig{
				Arrivals: bucketCfg.Arrivals,
				Capacity: bucketCfg.Capacity,
				LeakRate: bucketCfg.Rate,
				Drain:    bucketDrain,
			}})
	},
}

var dvCmd = &cobra.Command{
	Use:   "dv",
	Short: "Run distance-vector routing until the tables converge",
	Run: func(cmd *cobra.Command, args []string) {
		p := &scenario.DVParams{Config: dvCfg}
		if dvTopology != "" {
			topo, err := parseTopology(dvTopology)
			if err != nil {
				logrus.Fatalf("Invalid topology: %v", err)
			}
			p.Topology = topo
		}
		for _, c := range dvChanges {
			l, err := parseLink(c)
			if err != nil {
				logrus.Fatalf("Invalid change: %v", err)
			}
			p.Changes = append(p.Changes, l)
		}
		runTopic(scenario.RunSpec{Name: "dv", Kind: scenario.KindDV, DV: p})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <algorithm>",
	Short: "Schedule processes with FCFS, SJF, SRTF, RR or PRIORITY",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		procs := make([]scheduling.Process, 0, len(scheduleProcesses))
		for _, s := range scheduleProcesses {
			p, err := parseProcess(s)
			if err != nil {
				logrus.Fatalf("Invalid process: %v", err)
			}
			procs = append(procs, p)
		}
		runTopic(scenario.RunSpec{Name: "schedule", Kind: scenario.KindSchedule,
			Schedule: &scenario.ScheduleParams{Algorithm: args[0], Quantum: scheduleQuantum, Processes: procs}})
	},
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the run kinds a scenario may use",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range scenario.Describe() {
			mark := ""
			if k.Timeline {
				mark = " [timeline]"
			}
			fmt.Printf("%-13s %s%s\n", k.Kind, k.Summary, mark)
		}
	},
}

var exampleCmd = &cobra.Command{
	Use:   "example <kind>",
	Short: "Print an example scenario for a kind",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run, ok := scenario.Example(args[0])
		if !ok {
			logrus.Fatalf("Unknown kind %q; valid kinds: %s", args[0], strings.Join(scenario.Kinds(), ", "))
		}
		spec := scenario.Spec{Version: "1", Seed: scenario.DefaultSeed, Runs: []scenario.RunSpec{run}}
		if err := writeValue(os.Stdout, spec, outputFormat); err != nil {
			logrus.Fatalf("Failed to write example: %v", err)
		}
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for scenario files",
	Run: func(cmd *cobra.Command, args []string) {
		os.Stdout.Write(scenario.Schema())
	},
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", a)
		}
		out[i] = v
	}
	return out, nil
}

// parseLink reads "A-B:cost".
func parseLink(s string) (routing.Link, error) {
	ends, cost, ok := strings.Cut(s, ":")
	if !ok {
		return routing.Link{}, fmt.Errorf("%q: want A-B:cost", s)
	}
	from, to, ok := strings.Cut(ends, "-")
	if !ok || from == "" || to == "" {
		return routing.Link{}, fmt.Errorf("%q: want A-B:cost", s)
	}
	c, err := strconv.Atoi(cost)
	if err != nil {
		return routing.Link{}, fmt.Errorf("%q: cost %q is not an integer", s, cost)
	}
	return routing.Link{From: strings.TrimSpace(from), To: strings.TrimSpace(to), Cost: c}, nil
}

// parseTopology reads comma-separated links such as "A-B:1,B-C:2". The node
// set is every endpoint named.
func parseTopology(s string) (*routing.Topology, error) {
	topo := &routing.Topology{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		l, err := parseLink(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		for _, n := range []string{l.From, l.To} {
			if !seen[n] {
				seen[n] = true
				topo.Nodes = append(topo.Nodes, n)
			}
		}
		topo.Links = append(topo.Links, l)
	}
	return topo, nil
}

// parseProcess reads "ID:arrival:burst" with an optional ":priority".
func parseProcess(s string) (scheduling.Process, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return scheduling.Process{}, fmt.Errorf("%q: want ID:arrival:burst[:priority]", s)
	}
	nums, err := parseInts(parts[1:])
	if err != nil {
		return scheduling.Process{}, fmt.Errorf("%q: %w", s, err)
	}
	p := scheduling.Process{ID: parts[0], Arrival: nums[0], Burst: nums[1]}
	if len(nums) == 3 {
		p.Priority = nums[2]
	}
	return p, nil
}

func init() {
	convertCmd.Flags().IntVar(&convertFrom, "from", 10, "Base of the input value")
	convertCmd.Flags().IntVar(&convertTo, "to", 2, "Base to convert to")

	twosCmd := integerCmd(scenario.KindTwos, "Encode or decode a two's complement integer")
	signMagCmd := integerCmd(scenario.KindSignMag, "Encode or decode a sign-magnitude integer")
	for _, c := range []*cobra.Command{twosCmd, signMagCmd} {
		c.Flags().IntVar(&intBits, "bits", 8, "Width in bits")
		c.Flags().StringVar(&intPattern, "pattern", "", "Bit pattern to decode instead of encoding a value")
	}

	ieeeCmd.Flags().IntVar(&ieeePrecision, "precision", 32, "32 or 64")
	ieeeCmd.Flags().StringVar(&ieeePattern, "pattern", "", "Binary or 0x hex pattern to decode")

	crcCmd.Flags().StringVar(&crcGenerator, "generator", "1011", "Generator polynomial as bits")
	crcCmd.Flags().BoolVar(&crcCheck, "check", false, "Treat the input as a codeword and check it")

	checksumCmd.Flags().IntVar(&checksumWordBits, "word-bits", 16, "Word width in bits")
	checksumCmd.Flags().StringVar(&checksumVerify, "verify", "", "Checksum to verify against the words")

	hammingCmd.Flags().StringVar(&hammingReceived, "received", "", "Codeword to check and correct")

	rleCmd.Flags().BoolVar(&rleDecode, "decode", false, "Decode instead of encoding")

	rsaCmd.Flags().Uint64Var(&rsaE, "e", 0, "Public exponent (0 picks the smallest valid one)")
	rsaCmd.Flags().Int64Var(&rsaMessage, "message", -1, "Number to encrypt and decrypt")
	rsaCmd.Flags().StringVar(&rsaText, "text", "", "Text to encrypt and decrypt byte by byte")

	simplifyCmd.Flags().IntVar(&simplifyVariables, "vars", 4, "Number of variables")
	simplifyCmd.Flags().IntSliceVar(&simplifyDontCares, "dont-care", nil, "Don't-care terms")
	simplifyCmd.Flags().BoolVar(&simplifyKMap, "kmap", false, "Include the Karnaugh map")

	cykCmd.Flags().StringVar(&cykGrammarPath, "grammar", "", "File with one CNF rule per line")
	_ = cykCmd.MarkFlagRequired("grammar")

	normalizeCmd.Flags().StringSliceVar(&normalizeSchema, "schema", nil, "Attributes of the relation (default: every attribute named)")

	arqCmd.Flags().StringVar(&arqProtocol, "protocol", arq.ProtocolStopAndWait, "stop-and-wait, go-back-n or selective-repeat")
	arqCmd.Flags().IntVar(&arqCfg.Frames, "frames", 5, "Frames to send")
	arqCmd.Flags().IntVar(&arqCfg.WindowSize, "window", 4, "Sender window size")
	arqCmd.Flags().IntSliceVar(&arqCfg.LostFrames, "lose-frame", nil, "Frames lost on their first transmission")
	arqCmd.Flags().IntSliceVar(&arqCfg.LostAcks, "lose-ack", nil, "ACKs lost the first time they are sent")

	csmacdCmd.Flags().IntVar(&csmaCfg.Stations, "stations", 3, "Number of stations")
	csmacdCmd.Flags().IntVar(&csmaCfg.FramesPerStation, "frames", 2, "Frames each station sends")
	csmacdCmd.Flags().IntVar(&csmaCfg.FrameSlots, "frame-slots", 1, "Slots one frame occupies")
	csmacdCmd.Flags().IntVar(&csmaCfg.MaxAttempts, "max-attempts", mac.DefaultMaxAttempts, "Attempts before a frame is dropped")
	csmacdCmd.Flags().IntVar(&csmaCfg.ArrivalSpread, "spread", 0, "Stations become ready at random slots in [0, spread]")
	csmacdCmd.Flags().Int64Var(&csmaCfg.MaxSlots, "max-slots", mac.DefaultMaxSlots, "Slot horizon")

	bucketCmd.Flags().BoolVar(&bucketToken, "token", false, "Use a token bucket instead of a leaky bucket")
	bucketCmd.Flags().IntVar(&bucketCfg.Capacity, "capacity", 10, "Bucket capacity")
	bucketCmd.Flags().IntVar(&bucketCfg.Rate, "rate", 2, "Leak rate, or tokens added per tick")
	bucketCmd.Flags().IntVar(&bucketCfg.QueueLimit, "queue-limit", 0, "Token bucket queue limit (0 is unbounded)")
	bucketCmd.Flags().IntSliceVar(&bucketCfg.Explicit, "arrivals", nil, "Packets arriving at each tick")
	bucketCmd.Flags().IntVar(&bucketCfg.Ticks, "ticks", 0, "Ticks to simulate with random arrivals")
	bucketCmd.Flags().IntVar(&bucketCfg.MaxBurst, "max-burst", 0, "Largest random arrival burst")
	bucketCmd.Flags().BoolVar(&bucketDrain, "drain", false, "Keep leaking after arrivals stop until the bucket is empty")

	dvCmd.Flags().StringVar(&dvTopology, "topology", "", "Links as A-B:cost,... (default: the four-router example)")
	dvCmd.Flags().StringSliceVar(&dvChanges, "change", nil, "Link cost change A-B:cost applied after convergence (0 removes)")
	dvCmd.Flags().IntVar(&dvCfg.MaxIterations, "max-iterations", routing.DefaultMaxIterations, "Round limit")
	dvCmd.Flags().BoolVar(&dvCfg.SplitHorizon, "split-horizon", false, "Do not advertise routes back to their next hop")
	dvCmd.Flags().IntVar(&dvCfg.Infinity, "infinity", 0, "Cost treated as unreachable (0 derives one from the topology)")

	scheduleCmd.Flags().IntVar(&scheduleQuantum, "quantum", 0, "Round-robin time quantum")
	scheduleCmd.Flags().StringArrayVar(&scheduleProcesses, "process", nil, "Process as ID:arrival:burst[:priority], repeatable")
	_ = scheduleCmd.MarkFlagRequired("process")

	for _, c := range []*cobra.Command{
		convertCmd, twosCmd, signMagCmd, ieeeCmd, crcCmd, checksumCmd, hammingCmd, rleCmd,
		rsaCmd, simplifyCmd, cykCmd, normalizeCmd, arqCmd, csmacdCmd, bucketCmd, dvCmd,
		scheduleCmd, kindsCmd, exampleCmd, schemaCmd,
	} {
		rootCmd.AddCommand(c)
	}
}
