// Package prompt implements the operator dialog: numbered menus, yes/no
// questions, free text, hidden input and path entry.
//
// A Shell runs a session function inside a bubbletea program. The program
// owns the input: it turns keystrokes into lines and hands each line to the
// prompt waiting for it. On a terminal it renders the open prompt and masks
// secrets; with piped input it runs without a renderer and the dialog is
// plain text, which is what scripted sessions and tests see.
//
// Every prompt re-asks until the answer is valid. The only errors returned
// are a cancelled context and a closed input stream (ErrClosed), both of
// which mean the operator channel itself is gone.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

var (
	// ErrClosed is returned when the input reaches EOF.
	ErrClosed = errors.New("prompt: input closed")

	// ErrNoSession is returned when a prompt is asked outside Run.
	ErrNoSession = errors.New("prompt: no session running")
)

// Cancel is the index Choose returns when the operator picks 0.
const Cancel = -1

// Shell reads answers from in and writes prompts to out.
type Shell struct {
	in  io.Reader
	out io.Writer
	tty bool

	program *tea.Program
	// pending is output after the last newline, held on a terminal until
	// the next prompt renders it.
	pending string
}

// New creates a Shell. When in and out are both terminals the session is
// rendered by bubbletea; otherwise the dialog is plain text.
func New(in io.Reader, out io.Writer) *Shell {
	return &Shell{in: in, out: out, tty: isTerminal(in) && isTerminal(out)}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run runs session inside the terminal program and returns its error. Every
// prompt must be asked from within session, using the context it receives.
// Ctrl+C on a terminal cancels that context.
func (s *Shell) Run(ctx context.Context, session func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(func() tea.Msg {
		err := session(ctx)
		s.flush()
		return sessionDoneMsg{err: err}
	}, cancel)

	opts := []tea.ProgramOption{tea.WithOutput(s.out), tea.WithoutSignalHandler()}
	if s.tty {
		opts = append(opts, tea.WithInput(s.in))
	} else {
		opts = append(opts, tea.WithInput(&eofReader{r: s.in, onEOF: s.inputClosed}), tea.WithoutRenderer())
	}
	s.program = tea.NewProgram(m, opts...)

	final, err := s.program.Run()
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return final.(*model).err
}

func (s *Shell) inputClosed() {
	s.program.Send(closedMsg{})
}

// eofReader reports EOF to the program, which otherwise stops reading
// silently. Data returned together with EOF is delivered first.
type eofReader struct {
	r     io.Reader
	onEOF func()
	once  sync.Once
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		if n > 0 {
			return n, nil
		}
		e.once.Do(e.onEOF)
	}
	return n, err
}

// Printf writes formatted text to the output.
func (s *Shell) Printf(format string, args ...any) {
	s.write(fmt.Sprintf(format, args...))
}

// Println writes a line to the output.
func (s *Shell) Println(args ...any) {
	s.write(fmt.Sprintln(args...))
}

// write sends text to the output. On a terminal complete lines are printed
// above the program's view and a trailing partial line waits in pending.
func (s *Shell) write(text string) {
	if !s.tty || s.program == nil {
		io.WriteString(s.out, text)
		return
	}
	text = s.pending + text
	i := strings.LastIndexByte(text, '\n')
	s.pending = text[i+1:]
	if i >= 0 {
		s.program.Send(tea.Println(text[:i])())
	}
}

func (s *Shell) flush() {
	if s.pending != "" {
		s.write("\n")
	}
}

func (s *Shell) readLine(ctx context.Context, label string, secret bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.program == nil {
		return "", ErrNoSession
	}

	if s.tty {
		label, s.pending = s.pending+label, ""
	} else {
		io.WriteString(s.out, label)
		label = ""
	}

	reply := make(chan answer, 1)
	s.program.Send(askMsg{label: label, secret: secret, reply: reply})

	select {
	case a := <-reply:
		echo := a.line
		if secret || a.err != nil {
			echo = ""
		}
		if s.tty {
			s.write(label + echo + "\n")
		} else if a.err != nil {
			s.write("\n")
		}
		if a.err != nil {
			return "", a.err
		}
		return strings.TrimSpace(a.line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Text asks for a line of free text, trimmed.
func (s *Shell) Text(ctx context.Context, label string) (string, error) {
	return s.readLine(ctx, label, false)
}

// Secret asks for a line that is masked on a terminal.
func (s *Shell) Secret(ctx context.Context, label string) (string, error) {
	return s.readLine(ctx, label, true)
}

// =============================================================================
// Menus
// =============================================================================

func (s *Shell) menu(ctx context.Context, title string, options []string, back string, multi bool) ([]int, error) {
	for {
		s.Printf("\n%s:\n", title)
		for i, opt := range options {
			s.Printf("%d. %s\n", i+1, opt)
		}
		if multi {
			s.Printf("%d. All\n", len(options)+1)
		}
		s.Printf("0. %s\n", back)

		raw, err := s.readLine(ctx, "Select: ", false)
		if err != nil {
			return nil, err
		}
		picked, err := ParseSelection(raw, len(options), multi)
		if err != nil {
			s.Printf("Invalid selection: %v.\n", err)
			continue
		}
		return picked, nil
	}
}

// Choose shows a numbered menu and returns the 0-based index of the chosen
// option, or Cancel when the operator picks 0 (labelled back).
func (s *Shell) Choose(ctx context.Context, title string, options []string, back string) (int, error) {
	picked, err := s.menu(ctx, title, options, back, false)
	if err != nil {
		return Cancel, err
	}
	if picked == nil {
		return Cancel, nil
	}
	return picked[0], nil
}

// ChooseMany is Choose with comma-separated multi-selection and an extra
// "All" entry. It returns 0-based indices in the order given, or nil when
// the operator picks 0.
func (s *Shell) ChooseMany(ctx context.Context, title string, options []string, back string) ([]int, error) {
	return s.menu(ctx, title, options, back, true)
}

// ParseSelection validates a menu answer against count options. Numbers are
// 1-based on input; the result is 0-based. 0 yields nil (cancel). In
// multi-select mode count+1 selects every option, and neither 0 nor count+1
// may be combined with other numbers. The returned error is the message to
// show before asking again.
func ParseSelection(raw string, count int, multi bool) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("no selection made")
	}

	limit := count
	if multi {
		limit++
	}

	parts := strings.Split(raw, ",")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.New("enter numbers only")
		}
		nums = append(nums, n)
	}

	for _, n := range nums {
		if n < 0 || n > limit {
			return nil, errors.New("selection out of range")
		}
	}
	if !multi && len(nums) > 1 {
		return nil, errors.New("select only one option")
	}
	if len(nums) > 1 {
		for _, n := range nums {
			if n == 0 || n == count+1 {
				return nil, errors.New("cannot mix 'All' or 'Cancel' with others")
			}
		}
	}

	switch {
	case nums[0] == 0:
		return nil, nil
	case multi && nums[0] == count+1:
		all := make([]int, count)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	out := make([]int, len(nums))
	for i, n := range nums {
		out[i] = n - 1
	}
	return out, nil
}

// =============================================================================
// Questions
// =============================================================================

// Confirm asks a yes/no question until answered.
func (s *Shell) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		raw, err := s.readLine(ctx, question+" (y/n): ", false)
		if err != nil {
			return false, err
		}
		if yes, ok := parseYesNo(raw); ok {
			return yes, nil
		}
	}
}

// ConfirmOrCancel is Confirm with 0 as a third answer. ok is false when the
// operator cancelled.
func (s *Shell) ConfirmOrCancel(ctx context.Context, question string) (yes, ok bool, err error) {
	for {
		raw, err := s.readLine(ctx, question+" (y/n, 0 to cancel): ", false)
		if err != nil {
			return false, false, err
		}
		if raw == "0" {
			return false, false, nil
		}
		if yes, ok := parseYesNo(raw); ok {
			return yes, true, nil
		}
	}
}

func parseYesNo(raw string) (yes, ok bool) {
	switch strings.ToLower(raw) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

// Path asks for an existing file or directory. It returns "" when the
// operator enters 0.
func (s *Shell) Path(ctx context.Context) (string, error) {
	return s.path(ctx, "Enter file/folder path (0 to cancel): ", func(fi os.FileInfo) bool {
		return fi.IsDir() || fi.Mode().IsRegular()
	})
}

// Dir asks for an existing directory. It returns "" when the operator
// enters 0.
func (s *Shell) Dir(ctx context.Context) (string, error) {
	return s.path(ctx, "Enter folder path (0 to cancel): ", os.FileInfo.IsDir)
}

func (s *Shell) path(ctx context.Context, label string, accept func(os.FileInfo) bool) (string, error) {
	for {
		raw, err := s.readLine(ctx, label, false)
		if err != nil {
			return "", err
		}
		switch raw {
		case "":
			s.Println("Path cannot be empty.")
			continue
		case "0":
			return "", nil
		}

		fi, err := os.Stat(raw)
		if err != nil || !accept(fi) {
			s.Printf("'%s' was not found.\n", raw)
			continue
		}
		return raw, nil
	}
}
