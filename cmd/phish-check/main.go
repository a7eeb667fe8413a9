package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mikey/phish-guard/internal/adapters/filter"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/di"
	"github.com/mikey/phish-guard/internal/factory"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	var phishing bool
	err = container.Invoke(func(cli *filter.CLIFilter, classifiers *factory.ClassifierFactory, logger *zap.Logger) error {
		defer logger.Sync()
		defer classifiers.Close()

		phishing, err = check(context.Background(), cli, flags)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// exit status 3 flags a phishing verdict for scripts
	if phishing {
		os.Exit(3)
	}
}

// check runs every requested check and reports whether anything looked like phishing
func check(ctx context.Context, cli *filter.CLIFilter, flags *di.CLIFlags) (bool, error) {
	phishing := false

	if len(flags.URLs) > 0 {
		results, err := cli.CheckURLs(ctx, flags.URLs, flags.Concurrency)
		if err != nil {
			return false, err
		}
		for _, result := range results {
			phishing = phishing || result.IsPhishing
		}
	}

	if flags.Text != "" {
		result, err := cli.CheckText(ctx, flags.Text)
		if err != nil {
			return false, err
		}
		phishing = phishing || result.Label == core.LabelPhishing
	}

	if flags.EmailFile != "" {
		var r io.Reader = os.Stdin
		if flags.EmailFile != "-" {
			file, err := os.Open(flags.EmailFile)
			if err != nil {
				return false, fmt.Errorf("failed to open email file: %w", err)
			}
			defer file.Close()
			r = file
		}

		result, err := cli.CheckMessage(ctx, r)
		if err != nil {
			return false, err
		}
		phishing = phishing || result.Label == core.LabelPhishing
	}

	return phishing, nil
}
