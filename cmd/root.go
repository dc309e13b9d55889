// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shardmig/shardmig/cmd/flags"
	"github.com/shardmig/shardmig/internal/connstr"
	"github.com/shardmig/shardmig/pkg/dest"
	"github.com/shardmig/shardmig/pkg/registry"
)

// Version is the shardmig version.
var Version = "development"

func init() {
	viper.SetEnvPrefix("SHARDMIG")
	viper.AutomaticEnv()

	flags.PgConnectionFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "shardmig",
	Short:        "Apply ordered SQL migration scripts across a sharded Postgres fleet",
	SilenceUsage: true,
	Version:      Version,
}

// NewRegistry loads the migration directory named by --migdir.
func NewRegistry() (*registry.Registry, error) {
	return registry.NewRegistry(flags.MigDir())
}

// NewHosts builds one Dest per entry in --hosts, all sharing --port, --user,
// --pass, and --db.
func NewHosts() ([]*dest.Dest, error) {
	specs := connstr.ParseHostList(flags.Hosts())

	hosts := make([]*dest.Dest, 0, len(specs))
	for _, host := range specs {
		runner, err := dest.NewPsqlRunner(dsnFor(host))
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, dest.New(host, flags.Port(), flags.User(), flags.Pass(), flags.DB(), "", runner))
	}
	return hosts, nil
}

func dsnFor(host string) string {
	// DSNs are built here, in the CLI layer; Dest itself builds its own
	// DSN lazily for metadata reads.
	u := &url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + flags.Port(),
		Path:     "/" + flags.DB(),
		RawQuery: "sslmode=disable",
	}
	if flags.User() != "" {
		if flags.Pass() != "" {
			u.User = url.UserPassword(flags.User(), flags.Pass())
		} else {
			u.User = url.User(flags.User())
		}
	}
	return u.String()
}

// Execute executes the root command.
func Execute() error {
	apply := applyCmd()
	rootCmd.AddCommand(apply)
	// With no subcommand named, the root runs the apply action.
	rootCmd.RunE = apply.RunE
	rootCmd.AddCommand(undoCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(makeCmd())
	rootCmd.AddCommand(chainCmd())
	rootCmd.AddCommand(bootstrapCmd())

	return rootCmd.Execute()
}
