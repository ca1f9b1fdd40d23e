package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"budget/internal/core"
	"budget/internal/log"
)

const (
	CommandAdd  = "add"
	CommandList = "list"
)

// ErrUsage reports bad command-line input.
var ErrUsage = errors.New("usage error")

// ExpenseService is what the commands need from the service layer.
type ExpenseService interface {
	Add(ctx context.Context, amount core.Amount, category, note string) (core.Expense, error)
	ListAll(ctx context.Context) ([]core.Expense, error)
}

// Command is a parsed invocation.
type Command struct {
	Name     string
	Amount   core.Amount
	Category string
	Note     string
}

const usageText = `usage: budget <command> [arguments]

CLI tool for budgeting and monitoring spending

commands:
  add <amount> <category> [-n NOTE]   Add a new expense
  list                                List all expenses
`

// Parse turns arguments (without the program name) into a Command. It
// returns flag.ErrHelp once usage has been printed, and an ErrUsage-wrapped
// error for invalid input.
func Parse(args []string, stdout, stderr io.Writer) (Command, error) {
	if len(args) == 0 {
		fmt.Fprint(stdout, usageText)
		return Command{}, flag.ErrHelp
	}

	switch args[0] {
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usageText)
		return Command{}, flag.ErrHelp
	case CommandAdd:
		return parseAdd(args[1:], stderr)
	case CommandList:
		return parseList(args[1:], stderr)
	default:
		return Command{}, usageError(stderr, "unknown command %q", args[0])
	}
}

func parseAdd(args []string, stderr io.Writer) (Command, error) {
	fs := flag.NewFlagSet(CommandAdd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var note string
	fs.StringVar(&note, "n", "", "Optional note")
	fs.StringVar(&note, "note", "", "Optional note")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: budget add <amount> <category> [-n NOTE]")
		fs.PrintDefaults()
	}

	positional, err := parseInterspersed(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return Command{}, err
	}
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if len(positional) != 2 {
		fs.Usage()
		return Command{}, usageError(stderr, "add expects <amount> <category>, got %d argument(s)", len(positional))
	}

	amount, err := core.ParseAmount(positional[0])
	if err != nil {
		return Command{}, usageError(stderr, "invalid amount %q", positional[0])
	}

	return Command{
		Name:     CommandAdd,
		Amount:   amount,
		Category: positional[1],
		Note:     note,
	}, nil
}

func parseList(args []string, stderr io.Writer) (Command, error) {
	fs := flag.NewFlagSet(CommandList, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: budget list")
	}

	positional, err := parseInterspersed(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return Command{}, err
	}
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if len(positional) != 0 {
		return Command{}, usageError(stderr, "list takes no arguments")
	}
	return Command{Name: CommandList}, nil
}

// parseInterspersed lets flags appear before, between or after positional
// arguments. Everything after "--" is positional, and so is anything that
// looks like a negative number.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional, flagArgs []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case arg == "-" || !strings.HasPrefix(arg, "-") || isNegativeNumber(arg):
			positional = append(positional, arg)
		default:
			flagArgs = append(flagArgs, arg)
			if takesValue(fs, arg) && i+1 < len(args) {
				flagArgs = append(flagArgs, args[i+1])
				i++
			}
		}
	}
	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}
	return positional, nil
}

// takesValue reports whether arg names a non-boolean flag given without "=value".
func takesValue(fs *flag.FlagSet, arg string) bool {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") {
		return false
	}
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
		return false
	}
	return true
}

func isNegativeNumber(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	c := s[1]
	return (c >= '0' && c <= '9') || c == '.'
}

func usageError(w io.Writer, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "budget: error: %s\n", msg)
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}

// Execute runs a parsed command against the service, writing results to out.
func Execute(ctx context.Context, cmd Command, svc ExpenseService, out io.Writer) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentCLI)

	switch cmd.Name {
	case CommandAdd:
		e, err := svc.Add(ctx, cmd.Amount, cmd.Category, cmd.Note)
		if err != nil {
			logger.DebugContext(ctx, "Add failed", log.FieldOperation, log.OpCreate, log.FieldError, err)
			return err
		}
		fmt.Fprintln(out, FormatAdded(e))
		return nil
	case CommandList:
		expenses, err := svc.ListAll(ctx)
		if err != nil {
			logger.DebugContext(ctx, "List failed", log.FieldOperation, log.OpList, log.FieldError, err)
			return err
		}
		logger.DebugContext(ctx, "Listed expenses", log.FieldCount, len(expenses))
		WriteList(out, expenses)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd.Name)
	}
}

// FormatAdded renders the confirmation line for a newly added expense.
func FormatAdded(e core.Expense) string {
	return fmt.Sprintf("Added expense #%d: %s in %s - %s", e.ID, e.Amount.String(), e.Category, e.Note)
}

// FormatExpense renders one line of the list output.
func FormatExpense(e core.Expense) string {
	return strings.Join([]string{
		fmt.Sprintf("#%d", e.ID),
		e.Date.String(),
		e.Category,
		"Php" + e.Amount.Display(),
		e.Note,
	}, " | ")
}

// WriteList prints every expense, or a notice when there are none.
func WriteList(out io.Writer, expenses []core.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(out, "No expenses recorded yet.")
		return
	}
	for _, e := range expenses {
		fmt.Fprintln(out, FormatExpense(e))
	}
}
