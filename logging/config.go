package logging

// Config is the `logging` extension of phlux.yml.
//
//	logging:
//	  level: debug
//	  report_caller: true
//	  file:
//	    enabled: true
//	  format:
//	    preset: simple
type Config struct {
	// Level is a logrus level name. PHLUX_LOG_LEVEL wins over it.
	Level string `yaml:"level"`

	// ReportCaller appends file:line and function. Also PHLUX_LOG_CALLER=true.
	ReportCaller bool `yaml:"report_caller"`

	File   FileSinkConfig `yaml:"file"`
	Format FormatConfig   `yaml:"format"`
}

// FileSinkConfig enables a log file next to the console output.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to <state dir>/logs/<component>-<date>.log.
	Path string `yaml:"path"`
}

type FormatConfig struct {
	// Preset is one of default, simple or json.
	Preset           string `yaml:"preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component"`
	// StructuredToStderr is auto, always or never. In auto mode plain
	// info lines stay off a terminal's stderr.
	StructuredToStderr string `yaml:"structured_to_stderr"`
}
