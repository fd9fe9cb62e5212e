package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Location     string
	Directive    string
	Suggestions  []string
	Hints        []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ USE110: Unknown directive //weave:require
//	   at app/math.go:4:1
//	   //weave:require x > 0
//
//	   Did you mean: requires?
//
//	   → Get help: weave gen --help
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelError:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	default:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	}
	gray := color.New(color.FgHiBlack)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	if opts.NoColor {
		for _, c := range []*color.Color{headerColor, bodyColor, gray, yellow, cyan} {
			c.DisableColor()
		}
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, opts.Context, opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}
	if opts.Location != "" {
		gray.Fprintf(&b, "   at %s\n", opts.Location)
	}
	if opts.Directive != "" {
		bodyColor.Fprintf(&b, "   %s\n", opts.Directive)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}
	if len(opts.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range opts.Hints {
			yellow.Fprintf(&b, "   %s\n", h)
		}
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// CompilerError renders a generator diagnostic. Unknown directives get
// spelling suggestions.
func CompilerError(ce *werrors.CompilerError, noColor bool) string {
	opts := ErrorOptions{
		Level:     levelOf(ce.Severity),
		Context:   string(ce.Code),
		Problem:   ce.Message,
		Directive: ce.Directive,
		NoColor:   noColor,
	}
	if ce.File != "" {
		opts.Location = fmt.Sprintf("%s:%d:%d", ce.File, ce.Location.Line, ce.Location.Column)
	}
	if ce.Cause != nil {
		opts.Hints = append(opts.Hints, "Cause: "+ce.Cause.Error())
	}
	if ce.Suggestion != "" {
		opts.Hints = append(opts.Hints, ce.Suggestion)
	}
	for _, ex := range ce.Examples {
		opts.Hints = append(opts.Hints, "Example: "+ex)
	}
	if ce.Code == werrors.ErrUnknownDirective {
		opts.Suggestions = SuggestDirective(unknownName(ce))
	}
	switch ce.Category {
	case werrors.CategoryRegistry:
		opts.HelpCommands = []string{"Check the registry: weave companion ping"}
	case werrors.CategoryUsage:
		opts.HelpCommands = []string{"Get help: weave gen --help"}
	}
	return FormatError(opts)
}

// WriteErrorList writes every entry of list, errors and warnings alike.
func WriteErrorList(w io.Writer, list werrors.ErrorList, noColor bool) {
	for _, ce := range list {
		fmt.Fprintln(w, CompilerError(ce, noColor))
	}
	errs, warns, _ := list.ErrorCount()
	if errs > 0 || warns > 0 {
		summary := color.New(color.Bold)
		if noColor {
			summary.DisableColor()
		}
		summary.Fprintf(w, "%d error(s), %d warning(s)\n", errs, warns)
	}
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat weave.yml",
			"Get help: weave --help",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}

// Info creates a standardized informational message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: message, NoColor: noColor})
}

func levelOf(s werrors.ErrorSeverity) ErrorLevel {
	switch s {
	case werrors.SeverityError:
		return ErrorLevelError
	case werrors.SeverityWarning:
		return ErrorLevelWarning
	default:
		return ErrorLevelInfo
	}
}

// unknownName pulls the directive name out of a USE110 diagnostic.
func unknownName(ce *werrors.CompilerError) string {
	text := ce.Directive
	if text == "" {
		text = ce.Message[strings.LastIndex(ce.Message, " ")+1:]
	}
	text = strings.TrimPrefix(text, "//weave:")
	name, _, _ := strings.Cut(text, " ")
	return name
}
