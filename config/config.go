package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"peerball/protocol"
)

var ErrInvalid = errors.New("config: invalid value")

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "PEERBALL_"

// Config holds everything main needs for either mode. An empty RelayURL runs
// the relay; otherwise the process is a participant of RelayURL.
type Config struct {
	// relay
	Addr          string
	SimDelayMinMs int
	SimDelayMaxMs int
	SimDropProb   float64

	// participant
	RelayURL   string
	Room       string
	PeerID     string
	Name       string
	Join       string
	AdminAddr  string
	Codec      string
	ScoreLimit int
	PhysicsHz  int
	ForceHz    int
	SyncHz     int
	Strict     bool
	HoldWindow time.Duration
	Headless   bool

	LogFile    string
	LogLevel   string
	LogConsole bool
}

func Default() Config {
	return Config{
		Addr:       ":8080",
		Room:       "room-1",
		Codec:      "json",
		ScoreLimit: protocol.DefaultScoreLimit,
		PhysicsHz:  protocol.PhysicsHz,
		ForceHz:    protocol.ForceHz,
		SyncHz:     protocol.SyncHz,
		HoldWindow: 400 * time.Millisecond,
		LogFile:    "app.log",
		LogLevel:   "info",
	}
}

// Load starts from Default, reads the given dotenv files (".env" when none
// are named; missing files are skipped) and applies PEERBALL_* variables.
// Variables already set in the environment win over dotenv values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := Default()
	e := envReader{}
	e.str("ADDR", &c.Addr)
	e.integer("SIM_DELAY_MIN_MS", &c.SimDelayMinMs)
	e.integer("SIM_DELAY_MAX_MS", &c.SimDelayMaxMs)
	e.number("SIM_DROP_PROB", &c.SimDropProb)
	e.str("RELAY_URL", &c.RelayURL)
	e.str("ROOM", &c.Room)
	e.str("PEER", &c.PeerID)
	e.str("NAME", &c.Name)
	e.str("JOIN", &c.Join)
	e.str("ADMIN_ADDR", &c.AdminAddr)
	e.str("CODEC", &c.Codec)
	e.integer("SCORE_LIMIT", &c.ScoreLimit)
	e.integer("PHYSICS_HZ", &c.PhysicsHz)
	e.integer("FORCE_HZ", &c.ForceHz)
	e.integer("SYNC_HZ", &c.SyncHz)
	e.boolean("STRICT_SNAPSHOTS", &c.Strict)
	e.duration("HOLD_WINDOW", &c.HoldWindow)
	e.boolean("HEADLESS", &c.Headless)
	e.str("LOG_FILE", &c.LogFile)
	e.str("LOG_LEVEL", &c.LogLevel)
	e.boolean("LOG_CONSOLE", &c.LogConsole)
	if e.err != nil {
		return Config{}, e.err
	}
	return c, nil
}

// BindFlags registers a flag per key, defaulting to the current values, so
// command-line flags override the environment.
func (c *Config) BindFlags(set *flag.FlagSet) {
	set.StringVar(&c.Addr, "addr", c.Addr, "relay listen address, e.g. :8080")
	set.IntVar(&c.SimDelayMinMs, "sim-delay-min", c.SimDelayMinMs, "relay: minimum simulated delay (ms)")
	set.IntVar(&c.SimDelayMaxMs, "sim-delay-max", c.SimDelayMaxMs, "relay: maximum simulated delay (ms)")
	set.Float64Var(&c.SimDropProb, "sim-drop", c.SimDropProb, "relay: simulated drop probability")
	set.StringVar(&c.RelayURL, "relay", c.RelayURL, "relay websocket URL; empty runs the relay itself")
	set.StringVar(&c.Room, "room", c.Room, "relay room")
	set.StringVar(&c.PeerID, "peer", c.PeerID, "peer id; empty picks a random one")
	set.StringVar(&c.Name, "name", c.Name, "display name")
	set.StringVar(&c.Join, "join", c.Join, "peer id to join")
	set.StringVar(&c.AdminAddr, "admin", c.AdminAddr, "participant admin listen address; empty disables it")
	set.StringVar(&c.Codec, "codec", c.Codec, "message codec: json or msgpack")
	set.IntVar(&c.ScoreLimit, "score-limit", c.ScoreLimit, "goals that end a match")
	set.IntVar(&c.PhysicsHz, "physics-hz", c.PhysicsHz, "physics steps per second")
	set.IntVar(&c.ForceHz, "force-hz", c.ForceHz, "input applications per second")
	set.IntVar(&c.SyncHz, "sync-hz", c.SyncHz, "host snapshots per second")
	set.BoolVar(&c.Strict, "strict", c.Strict, "drop a whole snapshot on an unknown player")
	set.DurationVar(&c.HoldWindow, "hold", c.HoldWindow, "how long a key counts as held after its last repeat")
	set.BoolVar(&c.Headless, "headless", c.Headless, "no terminal UI")
	set.StringVar(&c.LogFile, "log", c.LogFile, "log file; empty disables file logging")
	set.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	set.BoolVar(&c.LogConsole, "log-console", c.LogConsole, "also log to stderr")
}

// RelayMode reports whether this process runs the relay.
func (c Config) RelayMode() bool {
	return c.RelayURL == ""
}

func (c Config) Validate() error {
	switch {
	case c.PhysicsHz <= 0 || c.ForceHz <= 0 || c.SyncHz <= 0:
		return fmt.Errorf("%w: rates must be positive", ErrInvalid)
	case c.ScoreLimit < 1:
		return fmt.Errorf("%w: score limit %d", ErrInvalid, c.ScoreLimit)
	case c.SimDropProb < 0 || c.SimDropProb > 1:
		return fmt.Errorf("%w: drop probability %v", ErrInvalid, c.SimDropProb)
	case c.SimDelayMinMs < 0 || c.SimDelayMinMs > c.SimDelayMaxMs:
		return fmt.Errorf("%w: delay range [%d, %d]", ErrInvalid, c.SimDelayMinMs, c.SimDelayMaxMs)
	case c.HoldWindow <= 0:
		return fmt.Errorf("%w: hold window %v", ErrInvalid, c.HoldWindow)
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// envReader parses PEERBALL_* variables, keeping the first error.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := os.LookupEnv(EnvPrefix + key)
	return v, ok && v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.err = fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err)
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) number(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}
