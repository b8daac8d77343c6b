package main

import (
	"github.com/spf13/cobra"

	"github.com/kitbuilder587/negotiation-bridge/internal/config"
	"github.com/kitbuilder587/negotiation-bridge/internal/convert"
)

var (
	profileScenario string
	profileSide     string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the GeniusWeb profile JSON of a scenario side",
	Long: `Converts the utility function of one scenario side into a GeniusWeb
LinearAdditiveUtilitySpace, the same document a party receives.

Example:
  gwbridge profile --scenario scenarios/trade.yaml --side buyer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := config.LoadScenario(profileScenario)
		if err != nil {
			return err
		}
		side, err := sc.Side(profileSide)
		if err != nil {
			return err
		}
		conv, err := convert.NewConverter(sc.Space)
		if err != nil {
			return err
		}
		profile, err := conv.ProfileFromUtility(side.Name, side.Ufun)
		if err != nil {
			return err
		}
		data, err := convert.EncodeProfile(profile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if _, err := out.Write(data); err != nil {
			return err
		}
		_, err = out.Write([]byte("\n"))
		return err
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileScenario, "scenario", "", "scenario YAML file")
	profileCmd.Flags().StringVar(&profileSide, "side", "", "side name")
	_ = profileCmd.MarkFlagRequired("scenario")
	_ = profileCmd.MarkFlagRequired("side")
}
