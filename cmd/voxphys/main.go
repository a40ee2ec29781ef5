package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cfoust/voxphys/pkg/config"
	"github.com/cfoust/voxphys/pkg/version"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Version bool `help:"Print version information and exit." short:"v"`
	Debug   bool `help:"Whether to enable debug logging."`

	Run struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Scenario configuration files." type:"file"`
		Record  string   `help:"Record the run to this SQLite database." type:"path"`
		Ticks   int      `help:"Override the number of ticks to simulate."`
	} `cmd:"" help:"Simulate a scenario as fast as possible."`

	Serve struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Scenario configuration files." type:"file"`
		Port    int      `help:"Override the websocket port."`
		Record  string   `help:"Record the run to this SQLite database." type:"path"`
	} `cmd:"" help:"Simulate a scenario in real time and stream it over websockets."`

	Config struct {
	} `cmd:"" help:"Write the default scenario configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("voxphys"),
		kong.Description("a voxel rigid-body physics simulator"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if CLI.Version {
		fmt.Printf("voxphys %s\n", version.String())
		fmt.Printf("built %s\n", version.BuildTime)
		os.Exit(0)
	}

	var err error
	switch ctx.Command() {
	case "run", "run <configs>":
		err = runCommand(CLI.Run.Configs)
	case "serve", "serve <configs>":
		err = serveCommand(CLI.Serve.Configs)
	case "config":
		os.Stdout.Write(config.DEFAULT)
	}

	if err != nil {
		writeError(err)
	}
}
