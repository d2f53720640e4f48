package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"courier/internal/config"
	"courier/internal/configsrc"
	"courier/internal/dispatch"
	"courier/internal/logging"
	"courier/internal/providers"
	"courier/internal/registry"
	"courier/internal/tagexpr"
	"courier/internal/target"
)

// urlList collects repeatable --url flags.
// Params: raw target URLs in command-line order.
// Returns: flag.Value implementation.
type urlList []string

// String renders collected URLs for flag help output.
// Params: none.
// Returns: comma-joined list.
func (u *urlList) String() string {
	return strings.Join(*u, ",")
}

// Set appends one --url occurrence.
// Params: raw URL value.
// Returns: nil; validation happens at instantiation time.
func (u *urlList) Set(value string) error {
	*u = append(*u, value)
	return nil
}

// tagList collects repeatable --tag flags.
// Params: raw filter values in command-line order.
// Returns: flag.Value implementation.
type tagList []string

// String renders collected filter values for flag help output.
// Params: none.
// Returns: comma-joined list.
func (t *tagList) String() string {
	return strings.Join(*t, ",")
}

// Set appends one --tag occurrence.
// Params: raw filter value; commas inside one occurrence mean AND.
// Returns: nil.
func (t *tagList) Set(value string) error {
	*t = append(*t, value)
	return nil
}

// main delivers one notification to every matching configured target.
// Params: CLI flags (--config-file, --url, --tag, --title, --kind, --body).
// Returns: exit 0 on full success, 1 on delivery failure, 2 on usage error.
func main() {
	var (
		urls       urlList
		tagFilters tagList
	)
	var (
		configFile = flag.String("config-file", "", "path to TOML config file")
		title      = flag.String("title", "", "notification title")
		kindName   = flag.String("kind", "info", "notification kind: info, success, warning, failure")
		body       = flag.String("body", "", "message body; stdin is read when omitted")
	)
	flag.Var(&urls, "url", "target URL (repeatable)")
	flag.Var(&tagFilters, "tag", "tag filter (repeatable); comma-separated tags within one flag must all match")
	flag.Parse()

	cfg, err := config.FromCLI(*configFile)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, cleanup, err := logging.New(cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "logging init failed:", err.Error())
		os.Exit(2)
	}
	defer cleanup()

	kind, ok := target.ParseKind(*kindName)
	if !ok {
		_, _ = fmt.Fprintf(os.Stderr, "unknown notification kind %q\n", *kindName)
		os.Exit(2)
	}

	message := *body
	if message == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "read body from stdin:", err.Error())
			os.Exit(2)
		}
		message = strings.TrimRight(string(raw), "\n")
	}
	if message == "" && *title == "" {
		_, _ = fmt.Fprintln(os.Stderr, "no message content specified to deliver")
		os.Exit(2)
	}

	reg := registry.New(
		registry.WithBuiltins(providers.Builtins(logger)),
		registry.WithLogger(logger),
	)
	dispatcher := dispatch.New(reg,
		dispatch.WithLogger(logger),
		dispatch.WithBodyFormat(cfg.BodyFormat()),
		dispatch.WithWorkers(cfg.Notify.Workers),
	)

	for _, raw := range append(append([]string{}, cfg.URLs...), urls...) {
		if cfg.Notify.Strict {
			if err := dispatcher.AddStrict(raw); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(2)
			}
			continue
		}
		dispatcher.Add(raw)
	}

	for _, declared := range cfg.Sources {
		opts := []configsrc.SourceOption{
			configsrc.WithLogger(logger),
			configsrc.WithTags(target.SplitTags(declared.Tags)...),
			configsrc.WithRecursion(declared.Recursion),
		}
		if declared.Syntax != "" {
			opts = append(opts, configsrc.WithSyntax(configsrc.Syntax(declared.Syntax)))
		}
		if declared.CacheSeconds > 0 {
			opts = append(opts, configsrc.WithMaxAge(time.Duration(declared.CacheSeconds)*time.Second))
		}
		dispatcher.AddSource(configsrc.NewFileSource(reg, declared.Path, opts...))
	}

	if dispatcher.Deliver(context.Background(), tagexpr.ParseTerms(tagFilters...), message, *title, kind) {
		return
	}
	os.Exit(1)
}
