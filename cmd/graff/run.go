package main

import (
	"github.com/aretw0/graff/internal/cli"
	"github.com/aretw0/graff/pkg/scenario"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a demo scenario to the backend",
	Long: `Builds one of the demo graphs, submits it step by step, requests a solve
and saves the confirmed mirror to the session store.`,
}

var runDiveCmd = &cobra.Command{
	Use:   "dive",
	Short: "Lawn-mower survey of a hovering AUV with sonar returns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := scenario.DefaultDiveOptions()
		flags := cmd.Flags()
		opts.Legs, _ = flags.GetInt("legs")
		opts.PosesPerLeg, _ = flags.GetInt("poses")
		opts.GridSize, _ = flags.GetInt("grid")
		opts.Standoff, _ = flags.GetFloat64("standoff")
		opts.Mock, _ = flags.GetBool("mock")
		overrideNames(cmd, &opts.Robot, &opts.Session)
		return runScenario(cmd, cli.RunOptions{Scenario: cli.ScenarioDive, Dive: opts})
	},
}

var runHexagonCmd = &cobra.Command{
	Use:   "hexagon",
	Short: "Hexagonal loop with a landmark seen from both ends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := scenario.DefaultHexagonOptions()
		opts.Side, _ = cmd.Flags().GetFloat64("side")
		opts.Mock, _ = cmd.Flags().GetBool("mock")
		overrideNames(cmd, &opts.Robot, &opts.Session)
		return runScenario(cmd, cli.RunOptions{Scenario: cli.ScenarioHexagon, Hexagon: opts})
	},
}

// overrideNames lets --robot and --session replace the scenario defaults.
func overrideNames(cmd *cobra.Command, robot, session *string) {
	if cmd.Flags().Changed("robot") {
		*robot, _ = cmd.Flags().GetString("robot")
	}
	if cmd.Flags().Changed("session") {
		*session, _ = cmd.Flags().GetString("session")
	}
}

func runScenario(cmd *cobra.Command, opts cli.RunOptions) error {
	s, st, err := storage(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	opts.Quiet, _ = cmd.Flags().GetBool("quiet")
	opts.Rate, _ = cmd.Flags().GetFloat64("rate")
	opts.Out = cmd.OutOrStdout()
	_, err = cli.RunScenario(cmd.Context(), s, st, opts)
	return err
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runDiveCmd, runHexagonCmd)

	runCmd.PersistentFlags().BoolP("quiet", "q", false, "Only report errors")
	runCmd.PersistentFlags().Bool("mock", true, "Put the backend in mock mode first")
	runCmd.PersistentFlags().Float64("rate", 0, "Steps submitted per second (0 for no pacing)")

	dive := scenario.DefaultDiveOptions()
	runDiveCmd.Flags().Int("legs", dive.Legs, "Number of survey legs")
	runDiveCmd.Flags().Int("poses", dive.PosesPerLeg, "Poses per leg")
	runDiveCmd.Flags().Int("grid", dive.GridSize, "Sonar grid size per pose (0 disables)")
	runDiveCmd.Flags().Float64("standoff", dive.Standoff, "Distance to the surveyed wall in metres")

	runHexagonCmd.Flags().Float64("side", scenario.DefaultHexagonOptions().Side, "Side length of the hexagon")
}
