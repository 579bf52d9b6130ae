package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fkhayef/splitthebill/internal/amount"
	"github.com/fkhayef/splitthebill/internal/ledger"
)

// Exit codes for CLI commands
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the backend or the ledger rejected the action
	ExitCommandError = 2 // bad arguments, missing login, unreadable config
)

// ExitError carries the exit code a command should end with
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err, ExitFailure for plain errors
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Printer writes command results as text or JSON
type Printer struct {
	Format string
	Writer io.Writer
	Money  *amount.Formatter
}

// JSON encodes v on its own line
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Line prints one line of text output; JSON mode prints nothing
func (p *Printer) Line(format string, args ...any) {
	if p.Format == "json" {
		return
	}
	fmt.Fprintf(p.Writer, format+"\n", args...)
}

// Bill prints a bill snapshot
func (p *Printer) Bill(st ledger.State, you int64, reactions map[int64]string) error {
	if p.Format == "json" {
		return p.JSON(st)
	}
	RenderBill(p.Writer, st, you, reactions, p.Money)
	return nil
}

// RenderBill writes a human-readable view of one bill. you marks the
// caller's own row; reactions maps user ids to the emoji they last sent.
func RenderBill(w io.Writer, st ledger.State, you int64, reactions map[int64]string, money *amount.Formatter) {
	b := st.Bill

	fmt.Fprintf(w, "%s (#%d)\n", b.Title, b.ID)
	fmt.Fprintf(w, "status: %s | split: %s\n", b.Status, b.SplitType)
	fmt.Fprintf(w, "total: %s | unallocated: %s | items: %s\n",
		money.Format(b.TotalSum), money.Format(b.UnallocatedSum), money.Format(st.ItemsTotal))
	if b.PaymentDetails != nil && *b.PaymentDetails != "" {
		fmt.Fprintf(w, "pay to: %s\n", *b.PaymentDetails)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "participants:")
	for _, pt := range st.Participants {
		paid := "unpaid"
		if pt.IsPaid {
			paid = "paid"
		}

		line := fmt.Sprintf("  #%-4d %-10s %14s  %-6s", pt.ID, pt.DisplayName(), money.Format(pt.AllocatedAmount), paid)
		if pt.UserID != nil {
			if *pt.UserID == b.OwnerID {
				line += " owner"
			}
			if *pt.UserID == you {
				line += " (you)"
			}
			if emoji, ok := reactions[*pt.UserID]; ok {
				line += " " + emoji
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}

	if len(st.Items) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "items:")
		for _, it := range st.Items {
			fmt.Fprintf(w, "  #%-4d %-16s %3d x %s = %s\n", it.ID, it.Name, it.Count, money.Format(it.Price), money.Format(it.ItemSum))
		}
	}

	// reactions from people not on the bill still show up
	var strays []int64
	for uid := range reactions {
		if !onBill(st, uid) {
			strays = append(strays, uid)
		}
	}
	if len(strays) > 0 {
		sort.Slice(strays, func(i, j int) bool { return strays[i] < strays[j] })
		fmt.Fprintln(w)
		for _, uid := range strays {
			fmt.Fprintf(w, "user #%d reacted %s\n", uid, reactions[uid])
		}
	}
}

func onBill(st ledger.State, userID int64) bool {
	for _, p := range st.Participants {
		if p.UserID != nil && *p.UserID == userID {
			return true
		}
	}
	return false
}
