package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/hatlonely/dbstruct/log"
	"github.com/hatlonely/dbstruct/log/logger"
)

// Context 所有命令共享
type Context struct {
	Out     io.Writer
	Logger  logger.Logger
	Verbose bool
}

var CLI struct {
	Verbose  bool        `help:"Enable verbose output" short:"v"`
	Validate ValidateCmd `cmd:"" help:"Validate a schema definition file"`
	SQL      SQLCmd      `cmd:"" name:"sql" help:"Print CREATE statements for a schema definition"`
	Describe DescribeCmd `cmd:"" help:"List tables, views and columns"`
	Render   RenderCmd   `cmd:"" help:"Render values the way a column displays them"`
	Count    CountCmd    `cmd:"" help:"Count rows of a table or view in a database"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *Context) error {
	fmt.Fprintln(ctx.Out, "dbstruct v0.1.0")
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("dbstruct"),
		kong.Description("Inspect and use table/view definitions"),
		kong.UsageOnError(),
	)

	err := kctx.Run(&Context{
		Out:     os.Stdout,
		Logger:  log.Default(),
		Verbose: CLI.Verbose,
	})
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
