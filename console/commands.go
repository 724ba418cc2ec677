package console

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"leapfrog/game"
)

func (c *Console) registerCommands() {
	c.register("list_commands", 0, 0, c.cmdListCommands)
	c.register("gogui-analyze_commands", 0, 0, c.cmdGoguiAnalyzeCommands)
	c.register("name", 0, 0, c.cmdName)
	c.register("version", 0, 0, c.cmdVersion)
	c.register("protocol_version", 0, 0, c.cmdProtocolVersion)
	c.register("clear_board", 0, 0, c.cmdClearBoard)
	c.register("showboard", 0, 0, c.cmdShowBoard)
	c.register("play", 2, -1, c.cmdPlay)
	c.registerCommand(command{name: "boardsize", minArgs: 1, maxArgs: 1, ownsSession: true, run: c.cmdBoardSize})
	c.register("genmove", 1, 1, c.cmdGenmove(true))
	c.register("reg_genmove", 1, 1, c.cmdGenmove(false))
	c.register("final_score", 0, 0, c.cmdFinalScore)
	c.register("pv", 0, 0, c.cmdPV)
	c.register("pv_string", 0, 0, c.cmdPVString)
	c.registerCommand(command{name: "load_model", minArgs: 1, maxArgs: 1, ownsSession: true, run: c.cmdLoadModel})
	c.register("get_conf_str", 1, 1, c.cmdGetConfigString)
	c.register("is_legal", 2, -1, c.cmdIsLegal)
	c.register("all_legal", 0, 0, c.cmdAllLegal)
	c.registerCommand(command{name: "quit", ownsSession: true, run: c.cmdQuit})
}

func (c *Console) cmdListCommands(args []string) (string, error) {
	names := make([]string, 0, len(c.commands))
	for _, cmd := range c.commands {
		names = append(names, cmd.name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n") + "\n", nil
}

func (c *Console) cmdGoguiAnalyzeCommands(args []string) (string, error) {
	return "sboard/policy_value/pv\n", nil
}

func (c *Console) cmdName(args []string) (string, error) {
	return game.Name, nil
}

func (c *Console) cmdVersion(args []string) (string, error) {
	return "1.0", nil
}

func (c *Console) cmdProtocolVersion(args []string) (string, error) {
	return "2", nil
}

func (c *Console) cmdClearBoard(args []string) (string, error) {
	c.actor.Reset()
	return "", nil
}

func (c *Console) cmdShowBoard(args []string) (string, error) {
	return c.board(), nil
}

func (c *Console) cmdPlay(args []string) (string, error) {
	if !c.actor.Act(args) && !c.actor.IsEnvTerminal() {
		return "", invalidAction(args[1])
	}
	return "", nil
}

func (c *Console) cmdBoardSize(args []string) (string, error) {
	size, err := strconv.Atoi(args[0])
	if err != nil || !game.ValidBoardSize(size) {
		return "", fmt.Errorf("invalid board size %q, want %d to %d", args[0], game.MinBoardSize, game.MaxBoardSize)
	}

	cfg := c.cfg.Clone()
	cfg.EnvBoardSize = size
	if err := c.replaceSession(cfg, true); err != nil {
		return "", err
	}
	return c.board(), nil
}

// cmdGenmove plays the searched move when commit is set; reg_genmove only reports it.
func (c *Console) cmdGenmove(commit bool) handler {
	return func(args []string) (string, error) {
		if c.actor.IsEnvTerminal() {
			return "PASS", nil
		}
		player := game.PlayerNone
		if len(args[0]) > 0 {
			player = game.PlayerFromChar(args[0][0])
		}
		if player == game.PlayerNone {
			return "", fmt.Errorf("Invalid player: %q", args[0])
		}

		env := c.actor.Env()
		env.SetTurn(player)
		if c.actor.IsEnvTerminal() {
			return "PASS", nil
		}

		start := time.Now()
		action, err := c.actor.Think(commit, true)
		log.Info().Msgf("Spent Time = %.3f (s)", time.Since(start).Seconds())
		if err != nil {
			return "", err
		}
		if c.actor.IsResign() {
			return "Resign", nil
		}
		return action.ConsoleString(env.Size()), nil
	}
}

func (c *Console) cmdFinalScore(args []string) (string, error) {
	return fmt.Sprintf("%f", c.actor.EvalScore()), nil
}

func (c *Console) cmdPV(args []string) (string, error) {
	rotation := c.rotation()
	policy, value, err := c.policyValue(rotation)
	if err != nil {
		return "", err
	}

	env := c.actor.Env()
	legal := env.LegalActions()
	sorted := make([]game.Action, len(legal))
	copy(sorted, legal)
	sort.SliceStable(sorted, func(i, j int) bool {
		return policy[sorted[i].ID] > policy[sorted[j].ID]
	})

	var sb strings.Builder
	sb.WriteString("[rotation] " + rotation.String() + "\n")
	sb.WriteString("[policy] ")
	for _, a := range sorted {
		sb.WriteString(fmt.Sprintf("%s: %.3f ", a.ConsoleString(env.Size()), policy[a.ID]))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[value] %.3f\n", value))
	log.Info().Msg(sb.String())

	// Board overlay for GUIs: cell (row, col) shows the policy of action id
	// row*size+col, the northward jump from that square, when it is legal.
	size := env.Size()
	sb.WriteString("\n")
	for row := size - 1; row >= 0; row-- {
		for col := 0; col < size; col++ {
			id := row*size + col
			if env.IsLegalAction(game.NewAction(id, env.Turn())) {
				sb.WriteString(percent(policy[id]) + "%")
			} else {
				sb.WriteString(`""`)
			}
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (c *Console) cmdPVString(args []string) (string, error) {
	policy, value, err := c.policyValue(c.rotation())
	if err != nil {
		return "", err
	}

	env := c.actor.Env()
	var sb strings.Builder
	sb.WriteString("\n[value] " + strconv.FormatFloat(float64(value), 'g', 6, 32) + "\n")
	for _, a := range env.LegalActions() {
		sb.WriteString(a.ConsoleString(env.Size()) + " " + percent(policy[a.ID]) + " ")
	}
	return sb.String(), nil
}

func (c *Console) cmdLoadModel(args []string) (string, error) {
	cfg := c.cfg.Clone()
	cfg.NNFileName = args[0]
	if err := c.replaceSession(cfg, false); err != nil {
		return "", err
	}
	return "", nil
}

func (c *Console) cmdGetConfigString(args []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("\n")
	for _, key := range strings.Split(args[0], ":") {
		value, ok := c.cfg.Get(key)
		if !ok {
			return "", fmt.Errorf("unknown configuration key %q", key)
		}
		sb.WriteString(key + "=" + value + "\n")
	}
	return sb.String(), nil
}

func (c *Console) cmdIsLegal(args []string) (string, error) {
	env := c.actor.Env()
	if args[0] == "" || game.PlayerFromChar(args[0][0]) != env.Turn() {
		return "", fmt.Errorf("It's %c's turn.", env.Turn().Char())
	}
	action := game.ParseAction(args, env.Size())
	if action.ID == game.InvalidActionID {
		return "", invalidAction(args[1])
	}
	if env.IsLegalAction(action) {
		return "True", nil
	}
	return "False", nil
}

func (c *Console) cmdAllLegal(args []string) (string, error) {
	env := c.actor.Env()
	moves := make([]string, 0)
	for _, a := range env.LegalActions() {
		moves = append(moves, a.ConsoleString(env.Size()))
	}
	return fmt.Sprintf("Player: %c\nLegal moves: %s", env.Turn().Char(), strings.Join(moves, " ")), nil
}

func (c *Console) cmdQuit(args []string) (string, error) {
	c.done = true
	return "", nil
}

// board renders the position with a leading newline and no trailing one, so
// the reply ends with exactly one blank line.
func (c *Console) board() string {
	return "\n" + strings.TrimSuffix(c.actor.Env().String(), "\n")
}

func (c *Console) rotation() game.Rotation {
	if c.cfg.ActorUseRandomRotationFeatures {
		return c.actor.RandomRotation()
	}
	return game.RotationNone
}

// policyValue evaluates the current position under rotation and maps the
// policy back onto un-rotated action ids.
func (c *Console) policyValue(rotation game.Rotation) ([]float32, float32, error) {
	env := c.actor.Env()
	outputs, err := c.network.Evaluate([][]float32{env.Features(rotation)})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to evaluate position: %w", err)
	}
	if len(outputs) != 1 || len(outputs[0].Policy) != env.PolicySize() {
		panic("network output does not match the action space")
	}

	policy := make([]float32, env.PolicySize())
	for id := range policy {
		policy[id] = outputs[0].Policy[env.RotateAction(id, rotation)]
	}
	return policy, outputs[0].Value, nil
}

// percent renders p as a percentage cut to four characters, e.g. "12.3" or "5.00".
func percent(p float32) string {
	s := fmt.Sprintf("%f", float64(p)*100)
	if len(s) < 4 {
		return s
	}
	return s[:4]
}

func invalidAction(move string) error {
	return errors.New(`Invalid action: "` + move + `"`)
}
