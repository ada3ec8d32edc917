// Package flagx lets several configuration layers parse the same arguments
// without tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args that belong to allowedFlags,
// keeping flag values that follow as separate arguments.
//
// Supported forms:
//
//	-c conf.json
//	--config=conf.json
//
// A following argument that starts with "-" is never treated as a value.
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFileFlag extracts the config file path given via -c or -config in
// args (program name excluded). Every other argument is ignored. Returns ""
// when neither flag is present.
func ConfigFileFlag(args []string) string {
	var config string

	args = FilterArgs(args, []string{"-c", "-config"})

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
