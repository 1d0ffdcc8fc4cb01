package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. DEPSENTRY_REPORT_TYPE.
const EnvPrefix = "DEPSENTRY"

// overrideFlags maps config keys to the command line flags that set them.
var overrideFlags = map[string]string{
	"debug":           "debug",
	"silent":          "silent",
	"dir":             "dir",
	"exclude_dir":     "exclude-dir",
	"file":            "file",
	"report_type":     "report-type",
	"report_location": "output",
	"exit":            "exit",
	"ignore":          "ignore",
	"include_dev":     "include-dev",
	"color_output":    "color",
	"enable_sbom":     "sbom",
	"workers":         "workers",
	"vulndb.token":    "github-token",
	"server.addr":     "addr",
}

// NewViper binds the known flags of fs and the DEPSENTRY_* environment.
// Flags missing from fs are skipped.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs == nil {
		return v, nil
	}
	for key, name := range overrideFlags {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

// ApplyOverrides copies every value set by a flag or environment variable
// onto cfg. Flags win over the environment, which wins over the file.
func ApplyOverrides(cfg *Config, v *viper.Viper) {
	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}
	if v.IsSet("silent") {
		cfg.Silent = v.GetBool("silent")
	}
	if v.IsSet("dir") {
		cfg.Dir = v.GetString("dir")
	}
	if v.IsSet("exclude_dir") {
		cfg.ExcludeDirs = listValue(v, "exclude_dir")
	}
	if v.IsSet("file") {
		cfg.File = v.GetString("file")
	}
	if v.IsSet("report_type") {
		cfg.ReportType = strings.ToUpper(v.GetString("report_type"))
	}
	if v.IsSet("report_location") {
		cfg.ReportLocation = v.GetString("report_location")
	}
	if v.IsSet("exit") {
		cfg.Exit = v.GetBool("exit")
	}
	if v.IsSet("ignore") {
		cfg.Ignore = listValue(v, "ignore")
	}
	if v.IsSet("include_dev") {
		cfg.IncludeDev = v.GetBool("include_dev")
	}
	if v.IsSet("color_output") {
		cfg.ColorOutput = v.GetBool("color_output")
	}
	if v.IsSet("enable_sbom") {
		cfg.SBOM = v.GetBool("enable_sbom")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("vulndb.token") {
		cfg.VulnDB.Token = v.GetString("vulndb.token")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
}

// listValue reads a list that may arrive as a slice flag or as a comma
// separated environment variable.
func listValue(v *viper.Viper, key string) StringList {
	switch raw := v.Get(key).(type) {
	case []string:
		var out StringList
		for _, item := range raw {
			out = append(out, SplitList(item)...)
		}
		return out
	case string:
		return SplitList(raw)
	}
	return SplitList(v.GetString(key))
}
