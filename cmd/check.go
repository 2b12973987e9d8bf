package cmd

import (
	"github.com/spf13/cobra"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify directory connectivity and report server details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cfgPreset)
		if err != nil {
			return err
		}
		zl, err := buildLogger(cfg.Logging)
		if err != nil {
			return err
		}

		log := ldap.NewZapLogger(zl)
		session := ldap.NewSessionManager(cfg, log)
		defer session.Disconnect()

		// The diagnostic is printed even when the connection fails, so a
		// broken setup still shows what was attempted.
		var info *ldap.ServerInfo
		err = ldap.LogOperation(log, "test_connection", nil, func() error {
			var checkErr error
			info, checkErr = session.Check(cmd.Context())
			return checkErr
		})
		if info != nil {
			if printErr := printJSON(info); printErr != nil {
				return printErr
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
