package state

import "path/filepath"

const defaultConfigFileName = "config.json"

// GlobalOptions contains global config values that apply for all pincers sub-commands.
type GlobalOptions struct {
	ConfigFilePath string
	NoColor        bool
	LogOutput      string
	LogFormat      string
	Verbose        bool
}

// GetDefaultGlobalOptions returns the default global flags.
func GetDefaultGlobalOptions(configDir string) GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: filepath.Join(configDir, "pincers", defaultConfigFileName),
		LogOutput:      "stderr",
		LogFormat:      "text",
	}
}

func consolidateGlobalFlags(defaultFlags GlobalOptions, env map[string]string) GlobalOptions {
	result := defaultFlags

	if val, ok := env["PINCERS_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["PINCERS_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["PINCERS_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if env["PINCERS_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	if env["PINCERS_VERBOSE"] != "" {
		result.Verbose = true
	}
	return result
}
