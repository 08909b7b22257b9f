package executor

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandError is returned by handlers when a command fails. It is the only
// error kind that triggers the file dispatcher's recovery script.
type CommandError struct {
	Command string
	Msg     string
}

func (e *CommandError) Error() string {
	return e.Msg
}

// Errorf builds a CommandError not tied to a parsed command.
func Errorf(format string, args ...any) error {
	return &CommandError{Msg: fmt.Sprintf(format, args...)}
}

// Command is one parsed line handed to a Handler.
type Command struct {
	Name   string // upper-cased command word, e.g. "G1" or "SDCARD_PRINT_FILE"
	Raw    string // the line without comments
	Args   string // everything after the command word, untouched
	params map[string]string
	exec   *Executor
}

// parseLine splits a line into a Command. Comments start at ';'. Returns nil
// for blank lines.
func parseLine(line string) *Command {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	name, args, _ := strings.Cut(line, " ")
	cmd := &Command{
		Name:   strings.ToUpper(name),
		Raw:    line,
		Args:   strings.TrimSpace(args),
		params: make(map[string]string),
	}

	for _, field := range strings.Fields(cmd.Args) {
		if key, value, ok := strings.Cut(field, "="); ok {
			cmd.params[strings.ToUpper(key)] = value
			continue
		}
		// Classic G-code word: letter followed by value (X10, S0).
		cmd.params[strings.ToUpper(field[:1])] = field[1:]
	}
	return cmd
}

// Has reports whether the parameter was given.
func (c *Command) Has(key string) bool {
	_, ok := c.params[strings.ToUpper(key)]
	return ok
}

// Get returns a parameter or def when missing.
func (c *Command) Get(key, def string) string {
	if v, ok := c.params[strings.ToUpper(key)]; ok {
		return v
	}
	return def
}

// Require returns a parameter or a CommandError when missing.
func (c *Command) Require(key string) (string, error) {
	v, ok := c.params[strings.ToUpper(key)]
	if !ok || v == "" {
		return "", c.Errorf("Error on '%s': missing %s", c.Raw, strings.ToUpper(key))
	}
	return v, nil
}

// GetInt parses an integer parameter and enforces a lower bound.
func (c *Command) GetInt(key string, def, minVal int64) (int64, error) {
	raw, ok := c.params[strings.ToUpper(key)]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, c.Errorf("Unable to parse '%s' as an integer", raw)
	}
	if v < minVal {
		return 0, c.Errorf("Error on '%s': %s must have minimum of %d", c.Raw, strings.ToUpper(key), minVal)
	}
	return v, nil
}

// GetFloat parses a float parameter.
func (c *Command) GetFloat(key string, def float64) (float64, error) {
	raw, ok := c.params[strings.ToUpper(key)]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, c.Errorf("Unable to parse '%s' as a number", raw)
	}
	return v, nil
}

// Respond writes a raw response line to the executor output.
func (c *Command) Respond(msg string) {
	if c.exec != nil {
		c.exec.Respond(msg)
	}
}

// RespondInfo writes an informational "// " prefixed response.
func (c *Command) RespondInfo(msg string) {
	for _, l := range strings.Split(msg, "\n") {
		c.Respond("// " + l)
	}
}

// Errorf returns a CommandError attributed to this command.
func (c *Command) Errorf(format string, args ...any) error {
	return &CommandError{Command: c.Name, Msg: fmt.Sprintf(format, args...)}
}
