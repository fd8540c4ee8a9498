package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"manifest":           "manifest",
	"output":             "output",
	"log-level":          "log_level",
	"verbose":            "verbose",
	"fail-on":            "lint.fail_on",
	"fill-from-upstream": "propagation.fill_from_upstream",
	"force-inherit":      "propagation.force_inherit",
	"allow-transformed":  "propagation.allow_transformed_source",
	"history":            "state.enabled",
	"state-path":         "state.path",
	"metrics-textfile":   "metrics.textfile",
}

// pathFlags are resolved against the working directory rather than the project root.
var pathFlags = map[string]string{
	"manifest":         "manifest",
	"state-path":       "state.path",
	"metrics-textfile": "metrics.textfile",
}

// configFileIn returns the first config file present in dir.
func configFileIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a leaplint config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configFileIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Explicit --project-dir flag
//  2. Directory of an explicit config file
//  3. Search upward from CWD for a config file
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Lookup("project-dir") != nil && flags.Changed("project-dir") {
		if dir, _ := flags.GetString("project-dir"); dir != "" {
			return absOrClean(dir)
		}
	}
	if cfgFile != "" {
		return filepath.Dir(absOrClean(cfgFile))
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

func absOrClean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey transforms LEAPLINT_STATE__PATH into state.path.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// LoadConfig loads configuration from defaults, the config file, .env,
// environment variables and flags. Later sources win.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	root := inferProjectRoot(cfgFile, flags)

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = configFileIn(root)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), parserFor(cfgFile)); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. .env in the project root, LEAPLINT_ keys only
	dotenv, err := godotenv.Read(filepath.Join(root, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	fromDotenv := make(map[string]any)
	for key, val := range dotenv {
		if strings.HasPrefix(key, EnvPrefix) {
			fromDotenv[envKey(key)] = val
		}
	}
	if err := k.Load(confmap.Provider(fromDotenv, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 4. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags, only those explicitly set
	flagPaths := make(map[string]string)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "unsafe" {
				if on, _ := flags.GetBool("unsafe"); on {
					return "fix.safety_mode", "unsafe"
				}
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			if pathKey, isPath := pathFlags[f.Name]; isPath && f.Value.String() != "" {
				flagPaths[pathKey] = absOrClean(f.Value.String())
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = root
	cfg.FileUsed = cfgFile

	resolve := func(key string, path *string) {
		if p, ok := flagPaths[key]; ok {
			*path = p
			return
		}
		*path = resolvePathRelativeTo(*path, root)
	}
	resolve("manifest", &cfg.Manifest)
	resolve("state.path", &cfg.State.Path)
	resolve("metrics.textfile", &cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// parserFor picks the koanf parser by file extension. YAML is the fallback.
func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Parser()
	}
	return yaml.Parser()
}
