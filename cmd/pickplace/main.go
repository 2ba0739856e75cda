package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/pickplace/pkg/robot"
)

type Options struct {
	Config string `short:"c" long:"config" default:"pickplace.json" description:"Session configuration file (.json or .yaml)"`
	URL    string `long:"url" description:"Robot-control service base URL (overrides the config file)"`

	Setup SetupCommand `command:"setup" description:"Edit the cell layout and save it"`
	Run   RunCommand   `command:"run" alias:"ui" description:"Start the interactive simulator view"`
	Exec  ExecCommand  `command:"exec" description:"Initialize and run one choreography without the UI"`
	Serve ServeCommand `command:"serve" description:"Run the simulated robot-control service"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Pick-and-place simulator for a remote robot-control service"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the configured file, falling back to defaults when it
// does not exist yet.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if os.IsNotExist(err) {
		cfg, err = robot.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if opts.URL != "" {
		cfg.Service.BaseURL = opts.URL
	}
	return cfg, nil
}
