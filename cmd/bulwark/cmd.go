package main

// CLI defines the root command structure with subcommands
type CLI struct {
	Install InstallCmd `cmd:"" help:"Run or resume the secure boot provisioning wizard"`
	Status  StatusCmd  `cmd:"" help:"Show install progress and platform security state"`
}

// InstallCmd runs the provisioning wizard from the persisted phase
type InstallCmd struct {
	Config  string `type:"path" help:"Path to TOML config file"`
	Verbose bool   `short:"v" help:"Show output of external toolchain commands"`
}

// StatusCmd reports the current phase and platform diagnostics
type StatusCmd struct {
	Config string `type:"path" help:"Path to TOML config file"`
}
