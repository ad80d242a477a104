// Package cli renders sessions, foods and ledgers for the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// Printer writes human-readable output.
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter writes to w, colorizing only when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, colorize: IsTerminal(w)}
}

// DisableColor turns off ANSI colors.
func (p *Printer) DisableColor() *Printer {
	p.colorize = false
	return p
}

// Colorize wraps text in color when enabled.
func (p *Printer) Colorize(text, color string) string {
	if !p.colorize {
		return text
	}
	return color + text + ColorReset
}

// Success prints a success message
func (p *Printer) Success(message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Colorize("✓", ColorGreen), message)
}

// Error prints an error message
func (p *Printer) Error(message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Colorize("✗", ColorRed), message)
}

// Warning prints a warning message
func (p *Printer) Warning(message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Colorize("⚠", ColorYellow), message)
}

// Info prints an info message
func (p *Printer) Info(message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Colorize("ℹ", ColorBlue), message)
}

// =============================================================================
// Domain Rendering
// =============================================================================

// User prints the signed-in user.
func (p *Printer) User(u account.User) {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	fmt.Fprintf(p.w, "%s <%s>\n", p.Colorize(name, ColorBold), u.Email)
	fmt.Fprintf(p.w, "id: %s\n", u.ID)
}

// Food prints one food's nutrition facts.
func (p *Printer) Food(f nutrition.FoodInfo) {
	fmt.Fprintf(p.w, "%s (%s)\n", p.Colorize(f.Name, ColorBold), f.Barcode)
	if f.ServingSize != "" {
		fmt.Fprintf(p.w, "serving: %s\n", f.ServingSize)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "calories\t%s\n", formatAmount(f.Calories))
	fmt.Fprintf(tw, "protein\t%sg\n", formatAmount(f.Protein))
	fmt.Fprintf(tw, "carbs\t%sg\n", formatAmount(f.Carbs))
	fmt.Fprintf(tw, "fat\t%sg\n", formatAmount(f.Fat))
	tw.Flush()
}

// Ledger prints the entries and totals for date. A positive goal adds a
// calorie bar.
func (p *Printer) Ledger(date string, l nutrition.DailyLedger, goal float64) {
	fmt.Fprintln(p.w, p.Colorize("Food log for "+date, ColorBold))

	if len(l.Entries) == 0 {
		fmt.Fprintln(p.w, "No entries yet.")
	} else {
		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFOOD\tQTY\tKCAL\tPROTEIN\tCARBS\tFAT")
		for _, e := range l.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%sg\t%sg\t%sg\n",
				e.ID, e.FoodName, formatAmount(e.Quantity), formatAmount(e.Calories),
				formatAmount(e.Protein), formatAmount(e.Carbs), formatAmount(e.Fat))
		}
		tw.Flush()
	}

	fmt.Fprintf(p.w, "Total: %s kcal, %sg protein, %sg carbs, %sg fat\n",
		formatAmount(l.TotalCalories), formatAmount(l.TotalProtein),
		formatAmount(l.TotalCarbs), formatAmount(l.TotalFat))

	if goal > 0 {
		fmt.Fprintln(p.w, p.CalorieBar(l.TotalCalories, goal, 30))
	}
}

// CalorieBar renders consumed against goal as a fixed-width bar.
func (p *Printer) CalorieBar(consumed, goal float64, width int) string {
	percent := 0.0
	if goal > 0 {
		percent = consumed / goal
	}
	fill := percent
	if fill > 1 {
		fill = 1
	}
	if fill < 0 {
		fill = 0
	}
	filled := int(float64(width) * fill)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case percent > 1:
		bar = p.Colorize(bar, ColorRed)
	case percent >= 0.9:
		bar = p.Colorize(bar, ColorGreen)
	case percent >= 0.5:
		bar = p.Colorize(bar, ColorCyan)
	default:
		bar = p.Colorize(bar, ColorYellow)
	}

	return fmt.Sprintf("[%s] %.0f%% of %s kcal", bar, percent*100, formatAmount(goal))
}

// formatAmount drops a trailing ".0" and keeps at most one decimal.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}

// =============================================================================
// Spinner
// =============================================================================

// Spinner animates while a remote call is in flight. It draws nothing when
// the writer is not a terminal.
type Spinner struct {
	frames  []string
	current int
	prefix  string
	mu      sync.Mutex
	writer  io.Writer
	active  bool
	enabled bool
	done    chan struct{}
}

// NewSpinner creates a spinner that writes to w.
func NewSpinner(w io.Writer, prefix string) *Spinner {
	return &Spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		prefix:  prefix,
		writer:  w,
		enabled: IsTerminal(w),
		done:    make(chan struct{}),
	}
}

// Start starts the spinner
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active || !s.enabled {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if !s.active {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(s.writer, "\r%s %s", ColorCyan+s.frames[s.current]+ColorReset, s.prefix)
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop stops the spinner and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false
	close(s.done)

	fmt.Fprint(s.writer, "\r"+strings.Repeat(" ", len(s.prefix)+2)+"\r")
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
