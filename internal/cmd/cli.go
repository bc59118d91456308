package cmd

// LogConfig holds the global logging flags.
type LogConfig struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"RAWPAD_LOG_LEVEL"`
	File    string `help:"Append logs to this file (diagnostics)" env:"RAWPAD_LOG_FILE"`
	RawFile string `help:"Hex-dump raw input and controller reports to this file" env:"RAWPAD_LOG_RAW_FILE"`
}

// CLI is the root command line.
type CLI struct {
	ConfigFile string    `name:"config" help:"Flag configuration file (json, yaml or toml)" env:"RAWPAD_CONFIG"`
	Log        LogConfig `embed:"" prefix:"log."`

	Run     Run           `cmd:"" help:"Translate mouse input into a virtual Xbox 360 controller"`
	Config  ConfigCommand `cmd:"" help:"Configuration helpers"`
	Buttons Buttons       `cmd:"" help:"List bindable mouse and controller buttons"`
}
