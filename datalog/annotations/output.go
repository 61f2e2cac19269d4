package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
	renderer *PredicateRenderer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
		renderer: NewPredicateRenderer(useColor),
	}
}

// Handle implements the Handler interface - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case CompileInvoked:
		return fmt.Sprintf("%s %s Compiling %v (%s)",
			latency,
			f.colorize("===", color.FgYellow),
			event.Data["file"],
			f.colorizeCount("lines", intValue(event.Data["lines.count"])))

	case CompileComplete:
		success, _ := event.Data["success"].(bool)
		if !success {
			return fmt.Sprintf("%s %s Compilation failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				event.Data["error"])
		}
		return fmt.Sprintf("%s %s Compiled %s into %s, %s and %s.",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("rules", intValue(event.Data["rules.count"])),
			f.colorizeCount("strata", intValue(event.Data["strata.count"])),
			f.colorizeCount("equations", intValue(event.Data["equations.count"])),
			f.colorizeCount("views", intValue(event.Data["views.count"])))

	case IngestRuleAccepted:
		return fmt.Sprintf("%s Rule %v (type %v): %v",
			latency,
			event.Data["line"],
			event.Data["type"],
			event.Data["rule"])

	case IngestComplete:
		return fmt.Sprintf("%s Ingested %s: intensional %s, extensional %s, negated %s",
			latency,
			f.colorizeCount("rules", intValue(event.Data["rules.count"])),
			f.renderer.RenderPredicates(stringsValue(event.Data["intensional"])),
			f.renderer.RenderPredicates(stringsValue(event.Data["extensional"])),
			f.renderer.RenderPredicates(stringsValue(event.Data["negated"])))

	case StratifyRelocated:
		verb := "consuming"
		if negated, _ := event.Data["negated"].(bool); negated {
			verb = "negating"
		}
		return fmt.Sprintf("%s Rule %v %s %v moved from stratum %v to %v",
			latency,
			event.Data["line"],
			verb,
			f.renderer.RenderPredicate(fmt.Sprint(event.Data["predicate"])),
			event.Data["from"],
			event.Data["to"])

	case StratifyComplete:
		return fmt.Sprintf("%s %s Stratified into %s after %v passes",
			latency,
			f.colorize("===", color.FgYellow),
			f.colorizeCount("strata", intValue(event.Data["strata.count"])),
			event.Data["iterations"])

	case OrderComputed:
		return fmt.Sprintf("%s Ordering seed %s, derived %s, recursive %s",
			latency,
			f.renderer.RenderPredicates(stringsValue(event.Data["block1"])),
			f.renderer.RenderPredicates(stringsValue(event.Data["block2"])),
			f.renderer.RenderPredicates(stringsValue(event.Data["block3"])))

	case ViewMinted:
		return fmt.Sprintf("%s %s",
			latency,
			f.renderer.RenderView(fmt.Sprint(event.Data["view"]),
				fmt.Sprint(event.Data["predicate"]),
				intsValue(event.Data["combination"]),
				intValue(event.Data["bound"])))

	case AliasRenamed:
		return fmt.Sprintf("%s %s alias %v renamed to %v for %v",
			latency,
			f.colorize("⚠️", color.FgYellow),
			event.Data["alias"],
			event.Data["renamed"],
			event.Data["view"])

	case StratumCompiled:
		return fmt.Sprintf("%s Stratum %v compiled with %s and %s",
			latency,
			event.Data["stratum"],
			f.colorizeCount("equations", intValue(event.Data["equations.count"])),
			f.colorizeCount("views", intValue(event.Data["views.count"])))

	case SolutionComputed:
		return fmt.Sprintf("%s Solution set %s",
			latency,
			f.renderer.RenderPredicates(stringsValue(event.Data["predicates"])))

	case CacheHit, CacheMiss:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data["key"])

	case ErrorCompile:
		return fmt.Sprintf("%s %s %v:%v: %v: %v",
			latency,
			f.colorize("✗", color.FgRed),
			event.Data["file"],
			event.Data["line"],
			event.Data["category"],
			event.Data["message"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	// Use microseconds for sub-millisecond durations
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)

	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "strata":
		return color.CyanString(text)
	case "equations":
		return color.MagentaString(text)
	case "views":
		return color.BlueString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func intValue(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func intsValue(v interface{}) []int {
	if ints, ok := v.([]int); ok {
		return ints
	}
	return nil
}

func stringsValue(v interface{}) []string {
	if strs, ok := v.([]string); ok {
		return strs
	}
	return nil
}
