package main

import (
	_ "crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"extar/tarfile"
)

const progName = "extar"

var errUsage = errors.New("usage")

type config struct {
	list        bool
	regular     bool
	mmap        bool
	digest      bool
	verbose     bool
	compression string
	maxSize     int64
	jobs        int
	paths       []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&cfg.list, "l", false, "list entries: header offset, payload offset, size, kind, path")
	fs.BoolVar(&cfg.regular, "r", false, "only count and list regular files")
	fs.BoolVar(&cfg.mmap, "mmap", true, "memory-map plain archives instead of streaming them")
	fs.BoolVar(&cfg.digest, "digest", false, "print the content digest of each archive")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	fs.StringVar(&cfg.compression, "z", tarfile.COMP_AUTO, "compression: auto, tar, gz, bz2, xz, zst")
	fs.Int64Var(&cfg.maxSize, "maxsize", 0, "refuse compressed archives larger than this once decompressed (0: no limit)")
	fs.IntVar(&cfg.jobs, "j", runtime.GOMAXPROCS(0), "number of archives scanned in parallel")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: %s [flags] <tarfile>...\n", progName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return nil, errUsage
	}
	if cfg.jobs < 1 {
		cfg.jobs = 1
	}
	cfg.paths = fs.Args()
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// Each archive gets its own TarFile, and with it its own source.
	reports := make([]string, len(cfg.paths))
	errs := make([]error, len(cfg.paths))
	var g errgroup.Group
	g.SetLimit(cfg.jobs)
	for i, path := range cfg.paths {
		g.Go(func() error {
			reports[i], errs[i] = inspect(path, cfg, logger)
			return nil
		})
	}
	_ = g.Wait()

	status := 0
	for i, path := range cfg.paths {
		_, _ = io.WriteString(stdout, reports[i])
		if errs[i] != nil {
			_, _ = fmt.Fprintf(stderr, "%s: %s: %v\n", progName, path, errs[i])
			status = 1
		}
	}
	return status
}

// inspect scans one archive and renders its report.
func inspect(path string, cfg *config, logger *slog.Logger) (string, error) {
	prefix := ""
	if len(cfg.paths) > 1 {
		prefix = path + ": "
	}

	tf, err := tarfile.Open(path,
		tarfile.WithLogger(logger),
		tarfile.WithMmap(cfg.mmap),
		tarfile.WithCompression(cfg.compression),
		tarfile.WithMaxSize(cfg.maxSize),
		tarfile.WithRegularOnly(cfg.regular),
	)
	if err != nil {
		return "", err
	}
	defer tf.Close()

	var b strings.Builder
	var count int
	if cfg.list {
		members, err := tf.GetMembers()
		for _, m := range members {
			_, _ = fmt.Fprintf(&b, "%s%d\t%d\t%d\t%s\t%s\n",
				prefix, m.HeaderOffset, m.PayloadOffset, m.PayloadSize, m.TypeName(), m.Path)
		}
		if err != nil {
			return b.String(), err
		}
		count = len(members)
	} else {
		count, err = tf.Count()
		if err != nil {
			return "", err
		}
	}
	_, _ = fmt.Fprintf(&b, "%sfile count: %d\n", prefix, count)

	if cfg.digest {
		d, err := fileDigest(path)
		if err != nil {
			return b.String(), err
		}
		_, _ = fmt.Fprintf(&b, "%sdigest: %s\n", prefix, d)
	}
	return b.String(), nil
}

func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.Canonical.FromReader(f)
}
