package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/edaniels/golog"

	"github.com/gwillem/pickplace/pkg/motion"
)

type ExecCommand struct {
	Args struct {
		Action string `positional-arg-name:"action" description:"Choreography to run: pick, home or both"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ExecCommand) Execute(args []string) error {
	switch c.Args.Action {
	case "pick", "home", "both":
	default:
		return fmt.Errorf("unknown action %q, want pick, home or both", c.Args.Action)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := golog.NewDevelopmentLogger("pickplace")
	store := cfg.NewStore()
	client := motion.NewHTTPClient(cfg.Service.BaseURL, cfg.RequestTimeout())
	seq := motion.NewSequencer(client, store, motion.OptionsFromConfig(cfg), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Print sequencer log lines as they arrive
	done := make(chan struct{})
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for {
			select {
			case msg := <-seq.Logs():
				fmt.Println(msg)
			case <-done:
				// Flush what is left
				for {
					select {
					case msg := <-seq.Logs():
						fmt.Println(msg)
					default:
						return
					}
				}
			}
		}
	}()
	defer func() {
		close(done)
		<-printed
	}()

	if err := seq.Initialize(ctx); err != nil && cfg.Motion.StrictInitialize {
		return fmt.Errorf("initialize: %w", err)
	}

	if c.Args.Action == "pick" || c.Args.Action == "both" {
		report, err := seq.PickAndPlace(ctx)
		if err != nil {
			return fmt.Errorf("pick and place: %w", err)
		}
		if err := report.Err(); err != nil {
			return err
		}
	}

	if c.Args.Action == "home" || c.Args.Action == "both" {
		out, err := seq.MoveHome(ctx)
		if err != nil {
			return fmt.Errorf("move home: %w", err)
		}
		if out.Err != nil {
			return fmt.Errorf("move home: %w", out.Err)
		}
	}

	st := store.State()
	fmt.Printf("Robot at %v, carrying=%t, at drop-off=%t\n", st.Pose, st.CarryingObject, st.AtDropOff)
	return nil
}
