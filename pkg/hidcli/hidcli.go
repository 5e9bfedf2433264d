// Package hidcli implements the hidprobe command tree.
package hidcli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hidtoolkit/hidprobe/hiddesc"
	"github.com/hidtoolkit/hidprobe/internal/hidsvc"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "hidprobe"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type appProvider func() *App

func NewRootCmd(configDir string) *cobra.Command {
	cfg := Config{
		DataDir:    filepath.Join(configDir, "data"),
		UsageNames: filepath.Join(configDir, "names.yml"),
	}
	rootCmd := &cobra.Command{
		Use:   "hidprobe",
		Short: "Inspect HID report descriptors",
		Long:  `hidprobe decodes the report descriptors of HID devices into an annotated disassembly and a queryable collection tree.`,

		SilenceUsage: true,
	}
	var app *App
	appProvider := func() *App {
		return app
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "device registry directory")
	rootCmd.PersistentFlags().StringVar(&cfg.UsageNames, "usage-names", cfg.UsageNames, "usage name overrides file")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		app, err = newApp(cfg)
		return err
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	}
	rootCmd.AddCommand(NewList(appProvider))
	rootCmd.AddCommand(NewDump(appProvider))
	rootCmd.AddCommand(NewTree(appProvider))
	rootCmd.AddCommand(NewReportSize(appProvider))
	rootCmd.AddCommand(NewGetFeature(appProvider))
	rootCmd.AddCommand(NewMonitor(appProvider))
	return rootCmd
}

func NewList(app appProvider) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List HID devices",
		Long:  `List HID devices connected to the system, or with --all every device ever seen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app().hid.Refresh(cmd.Context()); err != nil {
				return err
			}
			devices, err := app().hid.ListDevices(all)
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(devices, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include devices that are not currently connected")
	return cmd
}

func openDevice(cmd *cobra.Command, app *App, arg string) (*hidsvc.Device, error) {
	addr, err := hidsvc.ParseAddress(arg)
	if err != nil {
		return nil, err
	}
	if err := app.hid.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return app.hid.Open(addr)
}

func NewDump(app appProvider) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "dump <addr>",
		Short: "Dump a report descriptor",
		Long:  `Dump the report descriptor of a HID device as an annotated disassembly, or with --raw as the raw bytes.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice(cmd, app(), args[0])
			if err != nil {
				return err
			}
			defer dev.Close()
			descRaw, err := dev.ReportDescriptor()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err = out.Write(descRaw)
				return err
			}
			fmt.Fprintf(out, "// Device: %s\n", args[0])
			fmt.Fprintf(out, "// Name: %s\n", dev.RawName())
			fmt.Fprintf(out, "// Info: %s\n\n", dev.RawInfo())
			_, err = io.WriteString(out, hiddesc.Parse(descRaw).String())
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "write the raw descriptor bytes")
	return cmd
}

func NewTree(app appProvider) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tree <addr>",
		Short: "Show the collection tree",
		Long:  `Decode the report descriptor of a HID device and show its collection tree.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice(cmd, app(), args[0])
			if err != nil {
				return err
			}
			defer dev.Close()
			desc, err := dev.Decode()
			if err != nil {
				return err
			}
			if asJSON {
				jsonB, err := json.MarshalIndent(desc.Root(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
				return nil
			}
			desc.DumpTree(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}

func parseReportID(arg string) (uint8, error) {
	id, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid report ID %q: %w", arg, err)
	}
	return uint8(id), nil
}

func NewReportSize(app appProvider) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "report-size <addr> <id>",
		Short: "Compute a report's byte length",
		Long:  `Compute the byte length of a report from the descriptor: every field is rounded up to whole bytes before summing.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[1])
			if err != nil {
				return err
			}
			kind, err := parseFieldKind(kindName)
			if err != nil {
				return err
			}
			dev, err := openDevice(cmd, app(), args[0])
			if err != nil {
				return err
			}
			defer dev.Close()
			desc, err := dev.Decode()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc.ReportSize(id, kind))
			return nil
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "input", "field kind: input, output or feature")
	return cmd
}

func parseFieldKind(name string) (hiddesc.FieldKind, error) {
	switch name {
	case "input":
		return hiddesc.FieldInput, nil
	case "output":
		return hiddesc.FieldOutput, nil
	case "feature":
		return hiddesc.FieldFeature, nil
	default:
		return 0, fmt.Errorf("invalid field kind %q", name)
	}
}

func NewGetFeature(app appProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "get-feature <addr> <id>",
		Short: "Read a feature report",
		Long:  `Read the feature report with the given ID, sized from the report descriptor, and hex dump it.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[1])
			if err != nil {
				return err
			}
			dev, err := openDevice(cmd, app(), args[0])
			if err != nil {
				return err
			}
			defer dev.Close()
			desc, err := dev.Decode()
			if err != nil {
				return err
			}
			report, err := dev.FeatureReport(desc, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), hex.Dump(report))
			return nil
		},
	}
}

func NewMonitor(app appProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Watch device hotplug events",
		Long:  `Run the HID service and print connect/disconnect events until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := app()
			events := a.hid.Subscribe(ctx)
			go func() {
				out := cmd.OutOrStdout()
				for ev := range events {
					switch ev.Type {
					case hidsvc.DeviceConnected:
						fmt.Fprintf(out, "connected    %s  %s\n", ev.Address, ev.Name)
					case hidsvc.DeviceDisconnected:
						fmt.Fprintf(out, "disconnected %s  %s\n", ev.Address, ev.Name)
					}
				}
			}()
			a.log.Info("monitoring HID devices", zap.String("dataDir", a.config.DataDir))
			return a.hid.Start(ctx)
		},
	}
}
