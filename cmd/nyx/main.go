// Command nyx inspects and queries ephemeris kernels from the command
// line.
package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/hartmut/nyx"
	"github.com/hartmut/nyx/epoch"
	"github.com/hartmut/nyx/internal/daf"
	"github.com/hartmut/nyx/internal/kerneltest"
)

// config mirrors the optional TOML configuration file.
type config struct {
	LogLevel    string `toml:"log_level"`
	CacheSize   int    `toml:"cache_size"`
	EagerDecode bool   `toml:"eager_decode"`
	LeapPolicy  string `toml:"leap_policy"`
}

func defaultConfig() config {
	return config{
		LogLevel:   "info",
		CacheSize:  1024,
		LeapPolicy: "error",
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func (c config) almanac() (*nyx.Almanac, error) {
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	opts := []nyx.Option{
		nyx.WithLogger(logger),
		nyx.WithCacheSize(c.CacheSize),
	}
	if c.EagerDecode {
		opts = append(opts, nyx.WithEagerDecode())
	}
	switch strings.ToLower(c.LeapPolicy) {
	case "", "error":
	case "clamp":
		opts = append(opts, nyx.WithLeapPolicy(epoch.LeapPolicyClamp))
	default:
		return nil, fmt.Errorf("leap_policy %q: want error or clamp", c.LeapPolicy)
	}
	return nyx.New(opts...), nil
}

// parseEpoch reads an ISO calendar label and a scale name.
func parseEpoch(a *nyx.Almanac, value, scale string) (epoch.Epoch, error) {
	s, err := epoch.ParseScale(scale)
	if err != nil {
		return epoch.Epoch{}, err
	}
	t, err := time.Parse("2006-01-02T15:04:05", value)
	if err != nil {
		return epoch.Epoch{}, fmt.Errorf("epoch %q: want YYYY-MM-DDTHH:MM:SS: %w", value, err)
	}
	return a.Epoch(s, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), float64(t.Second()))
}

func loadKernels(a *nyx.Almanac, paths []string) error {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if _, err := a.Load(p, data); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "nyx",
		Short:         "Ephemeris and reference frame queries from SPICE-format kernels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file")

	root.AddCommand(newInspectCmd(&configPath))
	root.AddCommand(newStateCmd(&configPath))
	root.AddCommand(newTransformCmd(&configPath))
	root.AddCommand(newDemoCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newInspectCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <kernel>",
		Short: "Print the file record and segment table of a kernel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := cfg.logger()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			k, err := daf.Parse(args[0], data, logger)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s, %d segment(s)\n", k.Name, k.Family, len(k.Segments))
			if c := k.Comment(); c != "" {
				fmt.Printf("comment:\n%s\n", c)
			}
			for i, seg := range k.Segments {
				fmt.Printf("  [%d] %-20s target=%d center=%d frame=%d type=%d (%s) coverage=[%.3f, %.3f]\n",
					i, seg.Name, seg.Target, seg.Center, seg.Frame, seg.Type, seg.Kind, seg.Start, seg.End)
			}
			return nil
		},
	}
}

func newStateCmd(configPath *string) *cobra.Command {
	var (
		kernels  []string
		target   int
		observer int
		at       string
		scale    string
	)
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Relative state of a target at an epoch, in J2000",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := cfg.almanac()
			if err != nil {
				return err
			}
			if err := loadKernels(a, kernels); err != nil {
				return err
			}
			e, err := parseEpoch(a, at, scale)
			if err != nil {
				return err
			}
			st, err := a.EphemerisState(target, observer, e)
			if err != nil {
				return err
			}
			printState(st)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&kernels, "kernel", nil, "kernel file (repeatable)")
	cmd.Flags().IntVar(&target, "target", nyx.Earth, "target id")
	cmd.Flags().IntVar(&observer, "observer", nyx.SolarSystemBarycenter, "observer id")
	cmd.Flags().StringVar(&at, "epoch", "", "epoch as YYYY-MM-DDTHH:MM:SS")
	cmd.Flags().StringVar(&scale, "scale", "UTC", "time scale of the epoch")
	cmd.MarkFlagRequired("kernel")
	cmd.MarkFlagRequired("epoch")
	return cmd
}

func newTransformCmd(configPath *string) *cobra.Command {
	var (
		kernels []string
		from    int
		to      int
		at      string
		scale   string
	)
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Rotation between two frames at an epoch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := cfg.almanac()
			if err != nil {
				return err
			}
			if err := loadKernels(a, kernels); err != nil {
				return err
			}
			e, err := parseEpoch(a, at, scale)
			if err != nil {
				return err
			}
			rot, err := a.FrameTransform(from, to, e)
			if err != nil {
				return err
			}
			fmt.Printf("rotation %d -> %d at %s\n", rot.From, rot.To, rot.Epoch)
			fmt.Printf("  quaternion [w x y z]: %.12f %.12f %.12f %.12f\n",
				rot.Quaternion[0], rot.Quaternion[1], rot.Quaternion[2], rot.Quaternion[3])
			fmt.Printf("  angular velocity (rad/s): %.9e %.9e %.9e\n",
				rot.AngularVelocity[0], rot.AngularVelocity[1], rot.AngularVelocity[2])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&kernels, "kernel", nil, "kernel file (repeatable)")
	cmd.Flags().IntVar(&from, "from", nyx.J2000, "source frame id")
	cmd.Flags().IntVar(&to, "to", 3000, "destination frame id")
	cmd.Flags().StringVar(&at, "epoch", "", "epoch as YYYY-MM-DDTHH:MM:SS")
	cmd.Flags().StringVar(&scale, "scale", "UTC", "time scale of the epoch")
	cmd.MarkFlagRequired("kernel")
	cmd.MarkFlagRequired("epoch")
	return cmd
}

func newDemoCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Build a synthetic kernel and run a sample query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := cfg.almanac()
			if err != nil {
				return err
			}

			orbit := kerneltest.CircularOrbit{RadiusKM: 1.496e8, PeriodSec: 3.15576e7}
			data := kerneltest.NewSPK().
				WithComment("synthetic circular Earth orbit, one week of coverage").
				AddChebyshevSegment("DEMO", nyx.Earth, nyx.SolarSystemBarycenter, nyx.J2000, 2,
					0, 7*86400, 0, 86400, orbit.ChebyshevRecords(0, 86400, 7, 12)).
				Build()
			if out != "" {
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
			}
			if _, err := a.Load("demo.bsp", data); err != nil {
				return err
			}

			e, err := a.Epoch(epoch.UTC, 2000, 1, 3, 0, 0, 0)
			if err != nil {
				return err
			}
			st, err := a.EphemerisState(nyx.Earth, nyx.SolarSystemBarycenter, e)
			if err != nil {
				return err
			}
			printState(st)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "also write the synthetic kernel to this path")
	return cmd
}

func printState(st nyx.State) {
	r := math.Sqrt(st.Position[0]*st.Position[0] + st.Position[1]*st.Position[1] + st.Position[2]*st.Position[2])
	v := math.Sqrt(st.Velocity[0]*st.Velocity[0] + st.Velocity[1]*st.Velocity[1] + st.Velocity[2]*st.Velocity[2])
	fmt.Printf("state of %d relative to %d at %s (frame %d)\n", st.Target, st.Observer, st.Epoch, st.Frame)
	fmt.Printf("  position (km):   %.6f %.6f %.6f  |r| = %.6f\n", st.Position[0], st.Position[1], st.Position[2], r)
	fmt.Printf("  velocity (km/s): %.9f %.9f %.9f  |v| = %.9f\n", st.Velocity[0], st.Velocity[1], st.Velocity[2], v)
}
