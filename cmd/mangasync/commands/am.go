package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/mangasync/am"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Show and edit mangasync configuration",
	Long: sym.AM + ` am - Show and edit mangasync configuration ("I am")

Configuration sources (later overrides earlier):
1. Built-in defaults
2. System config (/etc/mangasync/am.toml)
3. User config (~/.mangasync/am.toml)
4. Project config (./am.toml, searched up the directory tree)
5. Environment variables (MANGASYNC_* prefix)

--config <file> replaces the cascade with one file on top of the defaults.

Examples:
  mangasync am show                       # Show current configuration
  mangasync am show --format yaml         # Show configuration as YAML
  mangasync am get sync.timezone          # Get one value
  mangasync am set scrape.workers 8       # Write one value to ./am.toml
  mangasync am init                       # Write the defaults to ./am.toml
  mangasync am validate                   # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, scrape.workers)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one configuration value",
	Long: `Write one configuration value to a TOML file (default ./am.toml).

The value is parsed as the key's type: booleans, integers, and
comma-separated lists for scrape.slugs. The previous file is kept as .back1.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	RunE:  runAmInit,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each setting is loaded from",
	RunE:  runAmWhere,
}

var (
	configFormat string
	targetFile   string
	forceInit    bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().StringVar(&targetFile, "file", am.ProjectConfigName, "Config file to write")
	amInitCmd.Flags().StringVar(&targetFile, "file", am.ProjectConfigName, "Config file to write")
	amInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	data, err := renderConfig(config(), configFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// renderConfig marshals c in one of the supported formats.
func renderConfig(c *am.Config, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to JSON")
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to YAML")
		}
		return append([]byte("# mangasync configuration\n"), data...), nil
	case "toml":
		data, err := toml.Marshal(c)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to TOML")
		}
		return append([]byte("# mangasync configuration\n"), data...), nil
	default:
		return nil, errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(args[0])
	if !am.IsKnownKey(key) {
		return errors.WithHint(errors.Newf("configuration key %q not found", key), "run 'mangasync am show' for the key list")
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(args[0])
	value, err := parseValue(key, args[1])
	if err != nil {
		return err
	}
	if err := am.SetValue(targetFile, key, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %v (%s)\n", key, value, targetFile)
	return nil
}

// parseValue converts raw to the type of key's default.
func parseValue(key, raw string) (interface{}, error) {
	switch am.Get(key).(type) {
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "%s expects true or false", key)
		}
		return b, nil
	case int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "%s expects an integer", key)
		}
		return n, nil
	case []string, []interface{}:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}

func runAmInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(targetFile); err == nil && !forceInit {
		return errors.WithHint(errors.Newf("%s already exists", targetFile), "pass --force to overwrite it")
	}
	if err := am.WriteConfig(targetFile, am.Default()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", targetFile)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	if err := config().Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	report, err := am.Explain()
	if err != nil {
		return errors.Wrap(err, "failed to explain configuration")
	}
	if jsonOutput(cmd) {
		return writeJSON(cmd, report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [default]  Built-in defaults")
	fmt.Fprintln(out, "  2. [system]   /etc/mangasync/am.toml")
	fmt.Fprintln(out, "  3. [user]     ~/.mangasync/am.toml")
	fmt.Fprintln(out, "  4. [project]  ./am.toml (searches up directories)")
	fmt.Fprintln(out, "  5. [env]      MANGASYNC_* environment variables")
	fmt.Fprintln(out)

	settings := append([]am.Setting(nil), report.Settings...)
	sort.SliceStable(settings, func(i, j int) bool {
		return settings[i].Layer.Rank() < settings[j].Layer.Rank()
	})

	fmt.Fprintln(out, "Active configuration:")
	for _, s := range settings {
		value := fmt.Sprintf("%v", s.Value)
		if len(value) > 50 {
			value = value[:47] + "..."
		}
		fmt.Fprintf(out, "  %-30s = %-20s [%s %s]\n", s.Key, value, s.Layer, s.Path)
	}
	return nil
}
