// vault-bootstrap initializes a fresh, sealed backend, unseals it with the
// first three key shares, logs in with the root token and prints the
// generated secrets once.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"vaultflow/internal/bootstrap"
	"vaultflow/pkg/config"
	"vaultflow/pkg/logger"
)

func main() {
	container := flag.StringP("container", "c", "vault", "container running the backend (docker exec target)")
	local := flag.Bool("local", false, "run the vault CLI on this host instead of inside a container")
	format := flag.StringP("format", "f", "text", "disclosure format: text, json or yaml")
	initFormat := flag.String("init-format", "text", "init output to request and parse: text or json")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline for the bootstrap sequence")
	help := flag.BoolP("help", "h", false, "show usage")
	flag.Parse()

	if *help {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
		return
	}

	log := logger.New(config.Load().Env)
	defer log.Sync()

	if err := run(log, *container, *local, *format, *initFormat, *timeout); err != nil {
		var cmdErr *bootstrap.CommandError
		if errors.As(err, &cmdErr) {
			log.Errorw("bootstrap failed",
				logger.KeyCommand, cmdErr.Command,
				"exit_code", cmdErr.ExitCode,
				"output", cmdErr.Output,
				logger.KeyErr, cmdErr.Cause,
			)
		} else {
			log.Errorw("bootstrap failed", logger.KeyErr, err)
		}
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(log logger.Sugared, container string, local bool, format, initFormat string, timeout time.Duration) error {
	disclosure, err := bootstrap.ParseFormat(format)
	if err != nil {
		return err
	}
	parser, err := bootstrap.ParserFor(initFormat)
	if err != nil {
		return err
	}

	var runner bootstrap.Runner = bootstrap.DockerRunner{Container: container}
	if local {
		runner = bootstrap.LocalRunner{}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	// Progress goes to stderr so a json/yaml disclosure on stdout stays parseable.
	progress := os.Stdout
	if disclosure != bootstrap.FormatText {
		progress = os.Stderr
	}

	c := bootstrap.New(runner,
		bootstrap.WithParser(parser),
		bootstrap.WithProgress(progress),
		bootstrap.WithDisclosure(os.Stdout, disclosure),
		bootstrap.WithLogger(log),
	)
	_, err = c.Bootstrap(ctx)
	return err
}
