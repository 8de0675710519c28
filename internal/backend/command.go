package backend

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/example/go-phonepunct/internal/separator"
)

// Command runs an external filter that reads one unit per line on stdin and
// writes one phonemized line per unit on stdout.
//
// Args may reference the separators and strip flag of a call through the
// {phone}, {syllable}, {word} and {strip} templates.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func NewCommand(path string, args ...string) *Command {
	return &Command{Path: path, Args: args}
}

func (c *Command) Phonemize(ctx context.Context, units []string, sep separator.Separator, strip bool) ([]string, error) {
	if c.Path == "" {
		return nil, ErrNoCommand
	}
	if len(units) == 0 {
		return []string{}, nil
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.expandArgs(sep, strip)...)
	cmd.Stdin = strings.NewReader(encodeLines(units))

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("backend command %s: %w", c.Path, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("backend command %s: %w: %s", c.Path, err, msg)
		}
		return nil, fmt.Errorf("backend command %s: %w", c.Path, err)
	}

	lines := decodeLines(out.String())
	if len(lines) != len(units) {
		return nil, fmt.Errorf("%w: sent %d, received %d", ErrLineCount, len(units), len(lines))
	}
	return lines, nil
}

func (c *Command) expandArgs(sep separator.Separator, strip bool) []string {
	r := strings.NewReplacer(
		"{phone}", sep.Phone,
		"{syllable}", sep.Syllable,
		"{word}", sep.Word,
		"{strip}", strconv.FormatBool(strip),
	)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}
	return args
}

// encodeLines writes one unit per line. Embedded line breaks would shift
// every following unit, so they are flattened to spaces.
func encodeLines(units []string) string {
	var b strings.Builder
	flatten := strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")
	for _, u := range units {
		b.WriteString(flatten.Replace(u))
		b.WriteByte('\n')
	}
	return b.String()
}

func decodeLines(out string) []string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.TrimSuffix(out, "\n")
	return strings.Split(out, "\n")
}
