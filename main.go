package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lookbusy1344/aluvm/asm"
	"github.com/lookbusy1344/aluvm/config"
	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/debugger"
	"github.com/lookbusy1344/aluvm/gui"
	"github.com/lookbusy1344/aluvm/library"
	"github.com/lookbusy1344/aluvm/program"
	"github.com/lookbusy1344/aluvm/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
)

func main() {
	var (
		configPath    string
		complexityLim uint64
		noHalt        bool
		fieldOrder    string
		callStackSize uint16
		entryOffset   uint16
		traceMode     bool
	)

	rootCmd := &cobra.Command{
		Use:     "aluvm",
		Short:   "AluVM — deterministic register virtual machine",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: platform config path)")

	// makeConfig merges the config file with command-line overrides
	makeConfig := func(cmd *cobra.Command) (core.CoreConfig, *config.Config, error) {
		var cfg *config.Config
		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return core.CoreConfig{}, nil, err
		}
		coreCfg, err := cfg.CoreConfig()
		if err != nil {
			return core.CoreConfig{}, nil, err
		}
		if cmd.Flags().Changed("complexity-limit") {
			coreCfg.ComplexityLim = &complexityLim
		}
		if noHalt {
			coreCfg.Halt = false
		}
		if cmd.Flags().Changed("field-order") {
			fq, err := core.ParseFq(fieldOrder)
			if err != nil {
				return core.CoreConfig{}, nil, err
			}
			coreCfg.FieldOrder = fq
		}
		if cmd.Flags().Changed("call-stack-size") {
			coreCfg.CallStackSize = callStackSize
		}
		return coreCfg, cfg, nil
	}

	addExecFlags := func(cmd *cobra.Command) {
		cmd.Flags().Uint64Var(&complexityLim, "complexity-limit", 0, "Complexity limit (CL register)")
		cmd.Flags().BoolVar(&noHalt, "no-halt", false, "Do not halt on the first CK failure")
		cmd.Flags().StringVar(&fieldOrder, "field-order", "", "Finite field order (M31, F1137119, F1289 or a number)")
		cmd.Flags().Uint16Var(&callStackSize, "call-stack-size", core.CallStackSizeMax, "Call stack capacity")
		cmd.Flags().Uint16Var(&entryOffset, "entry", 0, "Entry offset within the library")
		cmd.Flags().BoolVar(&traceMode, "trace", false, "Print an execution trace to stderr")
	}

	runCmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Execute a library and report the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLib(args[0])
			if err != nil {
				return err
			}
			coreCfg, cfg, err := makeConfig(cmd)
			if err != nil {
				return err
			}

			prog := program.NewWithLib(lib)
			prog.SetEntrypoint(core.NewSite(lib.ID(), entryOffset))

			machine := vm.NewWith(coreCfg)
			if traceMode || cfg.Execution.EnableTrace {
				machine.Trace = vm.NewExecutionTrace(os.Stderr, cfg.Trace.MaxEntries).Func()
			}

			status, err := machine.Run(prog, nil)
			if err != nil {
				return err
			}
			fmt.Println(machine.Core.DumpState())
			if status != core.StatusOk {
				fmt.Println("status: fail")
				os.Exit(1)
			}
			fmt.Println("status: ok")
			return nil
		},
	}
	addExecFlags(runCmd)

	var outPath string
	var armorOut bool
	asmCmd := &cobra.Command{
		Use:   "asm <source>",
		Short: "Assemble mnemonic source into a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lib, err := asm.AssembleLib(string(source))
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if armorOut {
				buf.WriteString(lib.Armor())
			} else if err := lib.Serialize(&buf); err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err = os.Stdout.Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
				return err
			}
			fmt.Printf("%s: %d code bytes, %d data bytes, id %s\n",
				outPath, len(lib.Code), len(lib.Data), lib.ID())
			return nil
		},
	}
	asmCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: stdout)")
	asmCmd.Flags().BoolVar(&armorOut, "armor", false, "Emit ASCII armor instead of the binary form")

	disasmCmd := &cobra.Command{
		Use:   "disasm <program>",
		Short: "Print the instruction listing of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			lib, err := loadLib(args[0])
			if err != nil {
				return err
			}
			return lib.PrintDisassemble(os.Stdout)
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info <program>",
		Short: "Show library id, segments and dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			lib, err := loadLib(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Id:   %s\n%s\n", lib.ID(), lib)
			return nil
		},
	}

	debugCmd := &cobra.Command{
		Use:   "debug <program>",
		Short: "Step through a library in the terminal debugger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbg, err := makeDebugger(cmd, args[0], makeConfig, entryOffset)
			if err != nil {
				return err
			}
			return debugger.NewTUI(dbg).Run()
		},
	}
	addExecFlags(debugCmd)

	guiCmd := &cobra.Command{
		Use:   "gui <program>",
		Short: "Step through a library in the graphical debugger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbg, err := makeDebugger(cmd, args[0], makeConfig, entryOffset)
			if err != nil {
				return err
			}
			return gui.Run(dbg)
		},
	}
	addExecFlags(guiCmd)

	rootCmd.AddCommand(runCmd, asmCmd, disasmCmd, infoCmd, debugCmd, guiCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// makeDebugger loads a program file and wraps it in a debugger session.
func makeDebugger(
	cmd *cobra.Command,
	path string,
	makeConfig func(*cobra.Command) (core.CoreConfig, *config.Config, error),
	entryOffset uint16,
) (*debugger.Debugger, error) {
	lib, err := loadLib(path)
	if err != nil {
		return nil, err
	}
	coreCfg, _, err := makeConfig(cmd)
	if err != nil {
		return nil, err
	}
	prog := program.NewWithLib(lib)
	prog.SetEntrypoint(core.NewSite(lib.ID(), entryOffset))
	return debugger.New(vm.NewWith(coreCfg), prog)
}

// loadLib reads a library from disk, accepting assembly source (by the
// .asm extension), ASCII armor, or the binary wire form.
func loadLib(path string) (*library.Lib, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".asm") || strings.HasSuffix(path, ".aluasm"):
		return asm.AssembleLib(string(data))
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN ALUVM LIB-----")):
		return library.Disarmor(string(data))
	default:
		return library.Deserialize(bytes.NewReader(data))
	}
}
