package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"leapfrog/config"
	"leapfrog/game"
	"leapfrog/network"
	"leapfrog/searcher/actor"
)

// Reply status markers.
const (
	Success = '='
	Failure = '?'
)

// Forward passes run before the first real inference.
const numWarmupForward = 3

// Factory builds the network and actor of a session.
type Factory interface {
	NewNetwork(cfg *config.Config) (network.Network, error)
	NewActor(cfg *config.Config, net network.Network) *actor.Actor
}

type defaultFactory struct{}

func (defaultFactory) NewNetwork(cfg *config.Config) (network.Network, error) {
	return network.Create(cfg, network.BoardShape(cfg.EnvBoardSize))
}

func (defaultFactory) NewActor(cfg *config.Config, net network.Network) *actor.Actor {
	return actor.New(cfg, net)
}

type Option func(c *Console)

func WithFactory(factory Factory) Option {
	return func(c *Console) {
		if factory != nil {
			c.factory = factory
		}
	}
}

type handler func(args []string) (string, error)

type command struct {
	name    string
	minArgs int
	maxArgs int // -1 for no limit
	// ownsSession marks commands that build the session themselves.
	ownsSession bool
	run         handler
}

// Console executes protocol lines one at a time and writes each reply to out.
type Console struct {
	cfg       *config.Config
	factory   Factory
	out       io.Writer
	commands  []command
	index     map[string]int
	network   network.Network
	actor     *actor.Actor
	commandID string
	done      bool
}

func New(cfg *config.Config, out io.Writer, options ...Option) *Console {
	c := &Console{
		cfg:     cfg.Clone(),
		factory: defaultFactory{},
		out:     out,
		index:   map[string]int{},
	}
	for _, option := range options {
		option(c)
	}
	c.registerCommands()
	return c
}

func (c *Console) register(name string, minArgs, maxArgs int, run handler) {
	c.registerCommand(command{name: name, minArgs: minArgs, maxArgs: maxArgs, run: run})
}

func (c *Console) registerCommand(cmd command) {
	if _, ok := c.index[cmd.name]; ok {
		panic(fmt.Sprintf("command %s registered twice", cmd.name))
	}
	c.index[cmd.name] = len(c.commands)
	c.commands = append(c.commands, cmd)
}

// Run executes lines from r until EOF or quit. Lines have no length limit.
func (c *Console) Run(r io.Reader) error {
	reader := bufio.NewReader(r)
	for !c.done {
		line, err := reader.ReadString('\n')
		if line != "" {
			c.Execute(strings.TrimSuffix(line, "\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}
	}
	return nil
}

// Execute parses one line, runs its command and writes the reply. Empty
// lines produce no reply.
func (c *Console) Execute(line string) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return
	}

	args := strings.Split(line, " ")
	c.commandID = ""
	if isNumber(args[0]) {
		c.commandID = args[0]
		args = args[1:]
	}

	i, ok := c.index[firstOrEmpty(args)]
	if !ok {
		c.reply(Failure, "Unknown command: "+line)
		return
	}
	cmd := c.commands[i]

	if err := cmd.checkArguments(len(args) - 1); err != nil {
		c.reply(Failure, err.Error())
		return
	}
	if !cmd.ownsSession {
		if err := c.ensureInitialized(); err != nil {
			log.Error().Err(err).Msgf("failed to initialize session for %s", cmd.name)
			c.reply(Failure, err.Error())
			return
		}
	}

	body, err := cmd.run(args[1:])
	if err != nil {
		c.reply(Failure, err.Error())
		return
	}
	c.reply(Success, body)
}

// Done reports whether quit has been executed.
func (c *Console) Done() bool {
	return c.done
}

// Close releases the session's network.
func (c *Console) Close() error {
	if c.network == nil {
		return nil
	}
	err := c.network.Close()
	c.network = nil
	c.actor = nil
	return err
}

func (c *Console) reply(marker byte, body string) {
	fmt.Fprintf(c.out, "%c%s %s\n\n", marker, c.commandID, body)
}

func (cmd command) checkArguments(n int) error {
	if n >= cmd.minArgs && (cmd.maxArgs < 0 || n <= cmd.maxArgs) {
		return nil
	}
	switch {
	case cmd.minArgs == cmd.maxArgs:
		return fmt.Errorf("command requires exactly %d argument%s", cmd.minArgs, plural(cmd.minArgs))
	case cmd.maxArgs < 0:
		return fmt.Errorf("command requires at least %d argument%s", cmd.minArgs, plural(cmd.minArgs))
	}
	return fmt.Errorf("command requires %d to %d arguments", cmd.minArgs, cmd.maxArgs)
}

// ensureInitialized creates whatever part of the session is missing.
func (c *Console) ensureInitialized() error {
	if c.network != nil && c.actor != nil {
		return nil
	}
	if c.network == nil {
		net, err := c.factory.NewNetwork(c.cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize network: %w", err)
		}
		c.network = net
		if c.actor != nil {
			c.actor.SetNetwork(net)
		}
	}
	if c.actor == nil {
		c.actor = c.factory.NewActor(c.cfg, c.network)
	}
	log.Info().Msgf("initialized %s network for a %dx%d board", c.network.Kind(), c.cfg.EnvBoardSize, c.cfg.EnvBoardSize)
	return c.warmup()
}

// replaceSession builds a network for cfg and swaps it in. With newActor the
// game is restarted on a new actor, otherwise the actor keeps its game.
func (c *Console) replaceSession(cfg *config.Config, newActor bool) error {
	net, err := c.factory.NewNetwork(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize network: %w", err)
	}

	old := c.network
	c.cfg = cfg
	c.network = net
	if newActor || c.actor == nil {
		c.actor = c.factory.NewActor(cfg, net)
	} else {
		c.actor.SetNetwork(net)
	}
	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close previous network")
		}
	}
	log.Info().Msgf("replaced session with %s network for a %dx%d board", net.Kind(), cfg.EnvBoardSize, cfg.EnvBoardSize)
	return c.warmup()
}

// warmup runs a few full batches since the first forward passes pay for
// runtime initialization.
func (c *Console) warmup() error {
	start := time.Now()
	features := c.actor.Env().Features(game.RotationNone)
	batch := make([][]float32, c.cfg.ActorMCTSThinkBatchSize)
	for i := range batch {
		batch[i] = features
	}
	for i := 0; i < numWarmupForward; i++ {
		if _, err := c.network.Evaluate(batch); err != nil {
			return fmt.Errorf("failed to warm up network: %w", err)
		}
	}
	log.Debug().Msgf("warmed up network in %s", time.Since(start))
	return nil
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func firstOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
