// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MigDir returns the directory containing the versioned migration scripts.
func MigDir() string {
	return viper.GetString("MIGDIR")
}

// Hosts returns the raw, unsplit `--hosts` flag value: a comma/semicolon
// separated list of host specs, parsed by internal/connstr.ParseHostList.
func Hosts() string {
	return viper.GetString("HOSTS")
}

func Port() string {
	return viper.GetString("PORT")
}

func User() string {
	return viper.GetString("USER")
}

func Pass() string {
	return viper.GetString("PASS")
}

func DB() string {
	return viper.GetString("DB")
}

func CreateDB() bool {
	return viper.GetBool("CREATEDB")
}

// Parallelism is the per-host worker pool cap; 0 means use
// grid.DefaultWorkersPerHost.
func Parallelism() int {
	return viper.GetInt("PARALLELISM")
}

func Dry() bool {
	return viper.GetBool("DRY")
}

func Force() bool {
	return viper.GetBool("FORCE")
}

// PgConnectionFlags registers the fleet-targeting flags shared by every
// mutating subcommand (apply, undo, bootstrap) and binds them through
// viper so SHARDMIG_-prefixed environment variables can supply them too.
func PgConnectionFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("migdir", "migrations", "Directory containing versioned migration scripts")
	fs.String("hosts", "localhost", "Comma/semicolon separated list of host specs")
	fs.String("port", "5432", "Postgres port shared by every host")
	fs.String("user", "postgres", "Postgres user")
	fs.String("pass", "", "Postgres password")
	fs.String("db", "postgres", "Database name shared by every host")
	fs.Bool("createdb", false, "Create the target database on each host if it doesn't exist")
	fs.Int("parallelism", 0, "Per-host worker pool cap (0 uses the engine default)")
	fs.Bool("dry", false, "Plan and report without executing anything")
	fs.Bool("force", false, "Skip the fast-path no-op check")

	bindAll(fs)
}

func bindAll(fs *pflag.FlagSet) {
	for env, flag := range map[string]string{
		"MIGDIR":      "migdir",
		"HOSTS":       "hosts",
		"PORT":        "port",
		"USER":        "user",
		"PASS":        "pass",
		"DB":          "db",
		"CREATEDB":    "createdb",
		"PARALLELISM": "parallelism",
		"DRY":         "dry",
		"FORCE":       "force",
	} {
		viper.BindPFlag(env, fs.Lookup(flag))
	}
}
