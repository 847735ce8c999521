/*
Package config resolves Burrow's settings with viper.

Sources, lowest precedence first:

	defaults ──► config file ──► BURROW_* environment ──► command line flags

The config file is config.yaml in $XDG_CONFIG_HOME/burrow (or
~/.config/burrow) or /etc/burrow, unless --config names one explicitly. Keys
use the flag names:

	engine: containerd
	data-dir: /srv/burrow
	metrics-file: /var/lib/node_exporter/textfile/burrow.prom

Environment variables replace dashes with underscores: BURROW_DATA_DIR,
BURROW_LIVE_CHECK.
*/
package config
