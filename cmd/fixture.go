package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/crm"
)

var fixtureLoadTarget string

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Inspect and load CRM fixture datasets",
}

var fixtureValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a fixture file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := fixtureFromArgs(args)
		if err != nil {
			return err
		}
		if err := f.Validate(); err != nil {
			return eris.Wrap(err, "fixture validate")
		}
		zap.L().Info("fixture valid",
			zap.Int("companies", len(f.Companies)),
			zap.Int("contacts", len(f.Contacts)),
			zap.Int("opportunities", len(f.Opportunities)),
			zap.Int("events", len(f.Events)))
		return nil
	},
}

var fixtureLoadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Load a fixture into a sqlite store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := fixtureFromArgs(args)
		if err != nil {
			return err
		}
		if err := f.Validate(); err != nil {
			return eris.Wrap(err, "fixture load")
		}

		st, err := crm.NewSQLite(fixtureLoadTarget)
		if err != nil {
			return eris.Wrap(err, "open sqlite store")
		}
		defer st.Close()

		if err := st.Load(ctx, f); err != nil {
			return eris.Wrap(err, "load fixture")
		}
		zap.L().Info("fixture loaded",
			zap.String("sqlite", fixtureLoadTarget),
			zap.Int("records", len(f.Records())),
			zap.Int("events", len(f.Events)))
		return nil
	},
}

// fixtureFromArgs loads the named fixture file, or the built-in dataset when
// no file is given.
func fixtureFromArgs(args []string) (*crm.Fixture, error) {
	if len(args) == 0 {
		return crm.DefaultFixture(), nil
	}
	f, err := crm.LoadFixture(args[0])
	if err != nil {
		return nil, eris.Wrapf(err, "load fixture %s", args[0])
	}
	return f, nil
}

func init() {
	fixtureLoadCmd.Flags().StringVar(&fixtureLoadTarget, "to-sqlite", "crm.db", "target sqlite database path")
	fixtureCmd.AddCommand(fixtureValidateCmd)
	fixtureCmd.AddCommand(fixtureLoadCmd)
	rootCmd.AddCommand(fixtureCmd)
}
