package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/Simonx22/telegram-assistant/pkg/app"
)

// program adapts app.Run to the kardianos/service interface.
type program struct {
	opts app.Options
	done chan error
}

func (p *program) Start(s service.Service) error {
	p.done = make(chan error, 1)
	go func() {
		p.done <- app.Run(p.opts)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	// app.Run exits on SIGTERM, which the service manager sends.
	return nil
}

func newServiceCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "service [install|uninstall|start|stop|run]",
		Short:     "Manage the system service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"install", "uninstall", "start", "stop", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			prg := &program{opts: app.Options{
				ConfigPath: flags.configPath,
				DataDir:    flags.dataDir,
				Verbose:    flags.verbose,
			}}

			svcConfig := &service.Config{
				Name:        "telegram-assistant",
				DisplayName: "Telegram Assistant",
				Description: "Google Assistant bridge for Telegram",
				Arguments:   []string{"service", "run", "--config", flags.configPath},
			}

			svc, err := service.New(prg, svcConfig)
			if err != nil {
				return fmt.Errorf("create service: %w", err)
			}

			switch args[0] {
			case "run":
				return svc.Run()
			case "install":
				if err := svc.Install(); err != nil {
					return err
				}
				fmt.Println("service installed")
			case "uninstall":
				if err := svc.Uninstall(); err != nil {
					return err
				}
				fmt.Println("service uninstalled")
			case "start":
				return svc.Start()
			case "stop":
				return svc.Stop()
			}
			return nil
		},
	}
	return cmd
}
