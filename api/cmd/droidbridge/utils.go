package droidbridge

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func getCommandLineExecutable() string {
	return os.Args[0]
}

// envOrDefault is used for flags whose default can also come from the
// environment, so --help shows the effective value.
func envOrDefault(envName string, defaultValue string) string {
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		return v
	}
	return defaultValue
}

// FatalErrorHandler prints msg on the command's error stream and exits.
func FatalErrorHandler(cmd *cobra.Command, msg string, code int) {
	if msg != "" {
		cmd.PrintErrln(strings.TrimRight(msg, "\n"))
	}
	os.Exit(code)
}

var durationType = reflect.TypeOf(time.Duration(0))

// generateEnvHelpText lists the environment variables of cfg, one block per
// config section, e.g.
//
//	Server:
//	  CONTROL_PORT  int, default 10721
//	      The port the Android daemon connects to.
func generateEnvHelpText(cfg any) string {
	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var b strings.Builder
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		if !section.IsExported() || section.Type.Kind() != reflect.Struct {
			continue
		}
		lines := envLines(section.Type)
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", section.Name)
		for _, line := range lines {
			b.WriteString(line)
		}
	}
	return b.String()
}

func envLines(t reflect.Type) []string {
	var lines []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envVar := field.Tag.Get("envconfig")
		if envVar == "" {
			continue
		}

		line := fmt.Sprintf("  %s  %s", envVar, envTypeName(field.Type))
		if def, ok := field.Tag.Lookup("default"); ok && def != "" {
			line += ", default " + def
		}
		line += "\n"
		if desc := field.Tag.Get("description"); desc != "" {
			line += "      " + desc + "\n"
		}
		lines = append(lines, line)
	}
	return lines
}

func envTypeName(t reflect.Type) string {
	switch {
	case t == durationType:
		return "duration"
	case t.Kind() == reflect.Slice:
		return "comma separated " + envTypeName(t.Elem())
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		return "float"
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64:
		return "int"
	}
	return t.Kind().String()
}
