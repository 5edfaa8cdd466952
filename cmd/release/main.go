package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/imagecompressor/tools/config"
	"github.com/imagecompressor/tools/installer"
	"github.com/imagecompressor/tools/layout"
	"github.com/imagecompressor/tools/metrics"
	"github.com/imagecompressor/tools/publish"
	"github.com/imagecompressor/tools/release"
	"github.com/imagecompressor/tools/runner"
	"github.com/imagecompressor/tools/sandbox"
	"github.com/imagecompressor/tools/sentry"
	"github.com/imagecompressor/tools/util"
	"github.com/imagecompressor/tools/version"
)

var (
	rootFlag    = flag.String("root", ".", "project root containing the entry point, icon and tools/")
	configFlag  = flag.String("config", "", "release config file (default: release.json or release.yaml in the root)")
	noPauseFlag = flag.Bool("no-pause", false, "exit without waiting for Enter after a failure")
	publishFlag = flag.Bool("publish", false, "publish the collected artifacts")
	appDirFlag  = flag.String("app-dir", "", `install directory used by "reg" (default: C:\Program Files\<display name>)`)
)

func init() {
	sentry.Init()
}

func main() {
	defer sentry.PanicHandler()
	flag.Parse()

	if util.IsDebug() {
		fmt.Println("Running in debug mode")
	}

	ctx, stop := signal.NotifyContext(util.ContextWithEntries(util.GetStandardEntries("", util.GetStandardLogger())...), os.Interrupt)
	defer stop()

	subcommand := flag.Arg(0)
	if subcommand == "" {
		subcommand = "build"
	}

	c, err := config.Load(ctx, *rootFlag, *configFlag)
	if err != nil {
		fail(err)
	}
	l, err := layout.New(*rootFlag, c)
	util.Check(err)

	switch subcommand {
	case "build":
		if err := build(ctx, l); err != nil {
			fail(err)
		}
	case "clean":
		if _, err := l.Clean(util.WithPrefix(ctx, string(release.PhaseClean))); err != nil {
			fail(err)
		}
	case "script":
		v, err := version.Detect(ctx, l.Root, c.Version)
		util.Check(err)
		fmt.Print(installer.Script(c, v))
	case "reg":
		appDir := *appDirFlag
		if appDir == "" {
			appDir = `C:\Program Files\` + c.DisplayName
		}
		fmt.Print(installer.RegFile(c, appDir))
	default:
		panic("unknown subcommand")
	}
}

func build(ctx context.Context, l *layout.Layout) error {
	v, err := version.Detect(ctx, l.Root, l.Config.Version)
	if err != nil {
		return err
	}
	m := metrics.FromEnv()

	var exec runner.Runner = &runner.Exec{}
	freezeRunner := exec
	if image := l.Config.Sandbox.Image; image != "" {
		sb, err := sandbox.New(image, l.Root)
		if err != nil {
			return err
		}
		freezeRunner = sb
	}

	rel := release.New(l, exec, freezeRunner, v)
	step := 0
	rel.OnPhase = func(p release.Phase) {
		step++
		fmt.Printf("[%d/%d] %s\n", step, len(release.Phases), p)
	}
	report(ctx, m.ReleaseStarted(v))

	manifest, err := rel.Run(ctx)
	if err != nil {
		phase := "release"
		if pe, ok := err.(*release.PhaseError); ok {
			phase = string(pe.Phase)
		}
		report(ctx, m.ReleaseFailed(v, phase))
		sentry.NotifyError(err, map[string]string{"phase": phase, "version": v})
		return err
	}
	report(ctx, m.ReleaseSucceeded(v))
	fmt.Print(release.Summary(manifest))

	if !*publishFlag {
		return nil
	}
	pubs, err := publish.FromConfig(ctx, l.Config)
	if err != nil {
		return err
	}
	return publish.Run(ctx, pubs, manifest)
}

// report logs a metrics failure; metrics never fail a release.
func report(ctx context.Context, err error) {
	if err != nil {
		util.Warnf(ctx, "could not send metrics: %s\n", err)
	}
}

func fail(err error) {
	fmt.Fprint(os.Stderr, release.Banner(err))
	if !*noPauseFlag {
		pause(os.Stdin, os.Stderr)
	}
	os.Exit(runner.ExitCode(err))
}

// pause waits for the operator to press Enter, or for stdin to close.
func pause(in io.Reader, out io.Writer) {
	fmt.Fprint(out, "Press Enter to exit...")
	bufio.NewReader(in).ReadString('\n')
}
