// Command sable is the Sable compiler driver.
package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/sable-lang/sable/internal/driver"
)

func main() {
	defer glog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sable:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sable",
		Short:         "Compiler for the Sable language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "sable.yaml", "tool configuration file")
	root.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	loadDriver := func() (*driver.Driver, error) {
		cfg, err := driver.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		return driver.New(cfg), nil
	}

	root.AddCommand(newCompileCmd(loadDriver))
	root.AddCommand(newRunCmd(loadDriver))
	root.AddCommand(newTokenizeCmd(loadDriver))
	root.AddCommand(newEmitIRCmd(loadDriver))
	return root
}

// signalContext cancels on SIGINT/SIGTERM so child tools are reaped.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newCompileCmd(loadDriver func() (*driver.Driver, error)) *cobra.Command {
	var output string
	var watch bool

	cmd := &cobra.Command{
		Use:   "compile <source>...",
		Short: "Compile source files to native executables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDriver()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			if watch {
				if len(args) != 1 {
					return fmt.Errorf("--watch takes exactly one source file")
				}
				return d.Watch(ctx, args[0], output)
			}
			if len(args) == 1 {
				_, err := d.Compile(ctx, args[0], output)
				return err
			}
			if output != "" {
				return fmt.Errorf("-o cannot be used with multiple source files")
			}
			return d.CompileAll(ctx, args)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "executable path (default: source name without extension)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "recompile on source changes")
	return cmd
}

func newRunCmd(loadDriver func() (*driver.Driver, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run <source> [args...]",
		Short: "Compile and run a source file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDriver()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			code, err := d.Run(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			if code != 0 {
				glog.Flush()
				os.Exit(code)
			}
			return nil
		},
	}
}

func newTokenizeCmd(loadDriver func() (*driver.Driver, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <source>",
		Short: "Print the token stream of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDriver()
			if err != nil {
				return err
			}
			tokens, err := d.Tokenize(args[0])
			if err != nil {
				return err
			}
			for _, t := range tokens {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newEmitIRCmd(loadDriver func() (*driver.Driver, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "emit-ir <source>",
		Short: "Print the generated IR without invoking the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDriver()
			if err != nil {
				return err
			}
			text, err := d.EmitIR(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
