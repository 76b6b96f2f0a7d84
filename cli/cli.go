package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stache/cli/cmd"
	"github.com/ardnew/stache/loader"
	"github.com/ardnew/stache/pkg"
)

// CLI is the top-level command-line interface for stache.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit."`

	Partials []string `help:"Partial search directory (repeatable; ${pathEnv} is searched after)." name:"partials" short:"P" type:"path"`
	Ext      []string `help:"Partial file extension tried for each name."                         name:"ext"`
	Pragma   []string `help:"Enable a pragma (BLOCKS, FILTERS) in every template."               name:"pragma"`
	Delims   string   `help:"Initial delimiters, two words separated by a space."               name:"delims"`
	MaxDepth int      `default:"100" help:"Maximum nesting of partials and parents."           name:"max-depth"`
	NoEscape bool     `help:"Disable HTML escaping of variables."                               name:"no-escape"`

	Init  cmd.Init  `cmd:"" help:"Initialize configuration file"`
	Check cmd.Check `cmd:"" help:"Compile templates and report errors"`
	Tree  cmd.Tree  `cmd:"" help:"Print the canonical form of a template"`
	Repl  cmd.Repl  `cmd:"" help:"Interactive template playground"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render a template"`
}

// engine returns the template settings selected by the global flags.
func (c *CLI) engine() cmd.Engine {
	return cmd.Engine{
		Partials: c.Partials,
		Exts:     c.Ext,
		Pragmas:  c.Pragma,
		Delims:   c.Delims,
		MaxDepth: c.MaxDepth,
		NoEscape: c.NoEscape,
	}
}

// Run executes the stache CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := configPath(baseConfig + ".yaml")

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  cacheDir(),
		"pathEnv":            "$" + loader.PathEnv,
		"version":            pkg.Version,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configPath(baseConfig+".json")),
		kong.Configuration(resolve, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Stuff additional context values for use by commands
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEngine(ctx, cli.engine())

	defer cli.Log.start(ctx)()

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}
