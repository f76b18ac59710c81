package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Output formats accepted by --format.
const (
	FormatANSI  = "ansi"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var validFormats = []string{FormatANSI, FormatTable, FormatJSON, FormatYAML}

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Server flags
	Port int
	Host string

	// Output flags
	Format  string
	NoColor bool

	// Animation flags
	IntervalMs int
}

// AddStandardFlags adds the named flag groups (server, output, reveal) to cmd.
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "server":
			addServerFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		case "reveal":
			addRevealFlags(cmd, flags)
		}
	}

	return flags
}

func addServerFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().IntVarP(&flags.Port, "port", "p", 8080, "Port to serve on")
	cmd.Flags().StringVar(&flags.Host, "host", "localhost", "Host to bind to")
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Format, "format", "f", FormatANSI, "Output format (ansi|table|json|yaml)")
	cmd.Flags().BoolVar(&flags.NoColor, "no-color", false, "Disable ANSI colors")
}

func addRevealFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().IntVarP(&flags.IntervalMs, "interval", "i", 50, "Delay between revealed characters in milliseconds")
}

// ValidateFlags validates flag values
func (f *StandardFlags) ValidateFlags() error {
	if f.Port != 0 && (f.Port < 1 || f.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", f.Port)
	}

	if f.Format != "" {
		if err := ValidateFormat(f.Format); err != nil {
			return err
		}
	}

	if f.IntervalMs < 0 {
		return fmt.Errorf("interval must not be negative, got %d", f.IntervalMs)
	}

	return nil
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

// validatingValue runs validator before delegating to the wrapped value.
type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks a port flag value.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateFormat checks an --output value.
func ValidateFormat(format string) error {
	for _, valid := range validFormats {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		format, strings.Join(validFormats, ", "))
}

// ValidateFileExists checks that an optional file flag names an existing file.
func ValidateFileExists(filename string) error {
	if filename == "" || filename == "-" {
		return nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}
