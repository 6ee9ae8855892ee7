package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-zip2pdf/internal/yamlutil"
)

// runConfig prints the effective configuration after file and environment
// layering, so operators can see what serve and convert will use.
func runConfig(args []string, env *Environment) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var common commonFlags
	addCommonFlags(fs, &common)
	fs.Usage = func() { printConfigUsage(env.Stderr) }

	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}

	cfg, err := loadConfig(common.config, env.LookupEnv)
	if err != nil {
		return err
	}
	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(out)
	return err
}
