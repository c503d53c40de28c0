package main

import (
	"fmt"
	"os"

	"github.com/zaolin/bulwark/internal/action"
	"github.com/zaolin/bulwark/internal/config"
	"github.com/zaolin/bulwark/internal/prompt"
	"github.com/zaolin/bulwark/internal/store"
	"github.com/zaolin/bulwark/internal/toolchain"
	"github.com/zaolin/bulwark/internal/wizard"
)

// Run executes the install command
func (c *InstallCmd) Run() error {
	// The toolchain enrolls keys and writes to the ESP; nothing may run
	// without elevation.
	if os.Getegid() != 0 {
		return wizard.ErrNotSuperuser
	}

	path := c.Config
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Verbose {
		cfg.Verbose = true
	}

	st := store.New(cfg.StorePath)
	if err := st.EnsureExists(); err != nil {
		return err
	}

	phase, err := st.Phase()
	if err != nil {
		return err
	}

	fmt.Println(prompt.TitleStyle.Render("bulwark secure boot provisioning"))
	fmt.Printf("  progress record: %s\n", st.Path())
	fmt.Printf("  resuming at phase %d (%s)\n\n", phase, wizard.PhaseName(phase))

	w := wizard.New(cfg,
		st,
		toolchain.New(cfg),
		&action.ExecRunner{Verbose: cfg.Verbose},
		prompt.New(),
		os.Stdout,
	)
	return w.Run()
}
