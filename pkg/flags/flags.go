package flags

import (
	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "CALLCHECK"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "callcheck.yaml",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to the service configuration file",
	}
	ScriptFile = &cli.StringFlag{
		Name:    "script",
		Value:   "",
		EnvVars: prefixEnvVars("SCRIPT"),
		Usage:   "Run a single test for the given script file and exit (run-once mode)",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: trace, debug, info, warn, error, crit",
	}
)

var Flags = []cli.Flag{
	ConfigFile,
	ScriptFile,
	LogLevel,
}
