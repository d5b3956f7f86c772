package main

import (
	"os"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prepstream",
	Short: "Resumable streaming relay for interview-prep generation jobs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.InitLoggerFromCobra(cmd); err != nil {
			return err
		}
		if isatty.IsTerminal(os.Stderr.Fd()) {
			log.Logger = log.Logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}
		return nil
	},
}

func main() {
	if err := clay.InitGlazed("prepstream", rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	serveCmd, err := NewServeCommand()
	cobra.CheckErr(err)
	serveCobra, err := cli.BuildCobraCommand(serveCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(serveCobra)

	produceCmd, err := NewProduceCommand()
	cobra.CheckErr(err)
	produceCobra, err := cli.BuildCobraCommand(produceCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(produceCobra)

	cobra.CheckErr(rootCmd.Execute())
}
