package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli"

	"github.com/Bee1002/Odin-Flash/firmware"
	"github.com/Bee1002/Odin-Flash/link"
	"github.com/Bee1002/Odin-Flash/locator"
	"github.com/Bee1002/Odin-Flash/session"
)

const defaultConfigPath = "odinflash.toml"

func main() {
	app := cli.NewApp()
	app.Name = "odinflash"
	app.Usage = "flash Samsung devices in Download Mode over the LOKE protocol"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "TOML config file",
			Value: defaultConfigPath,
		},
		cli.StringFlag{
			Name:  "port, p",
			Usage: "serial port, skipping device discovery",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log wire-level detail",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "detect",
			Usage:  "locate a device in Download Mode",
			Action: runDetect,
		},
		{
			Name:   "watch",
			Usage:  "watch for the device appearing and disappearing",
			Action: runWatch,
		},
		{
			Name:  "flash",
			Usage: "flash images and optionally a PIT onto the device",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "tar, t", Usage: "firmware tar archive to stream"},
				cli.StringSliceFlag{Name: "image, i", Usage: "standalone image file (repeatable)"},
				cli.StringFlag{Name: "pit", Usage: "PIT file to write before the images"},
				cli.BoolFlag{Name: "repartition", Usage: "also write a PIT found inside the archive"},
				cli.BoolFlag{Name: "reboot", Usage: "reboot to normal mode instead of ENDS"},
			},
			Action: runFlash,
		},
		{
			Name:  "pit",
			Usage: "read or write the partition table",
			Subcommands: []cli.Command{
				{
					Name:  "read",
					Usage: "read the PIT and store a timestamped backup",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "base", Usage: "backup base directory (overrides config)"},
					},
					Action: runPitRead,
				},
				{
					Name:  "write",
					Usage: "write a PIT file to the device",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "file, f", Usage: "PIT file", Required: true},
					},
					Action: runPitWrite,
				},
			},
		},
		{
			Name:   "reboot",
			Usage:  "reboot the device to normal mode",
			Action: runReboot,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "odinflash:", err)
		os.Exit(1)
	}
}

// resolveConfig overlays CLI flags on the config file.
func resolveConfig(c *cli.Context) (hostConfig, error) {
	path := c.GlobalString("config")
	cfg, err := loadHostConfig(path, path != defaultConfigPath)
	if err != nil {
		return hostConfig{}, err
	}
	if port := c.GlobalString("port"); port != "" {
		cfg.Port = port
	}
	if c.GlobalBool("verbose") {
		cfg.Verbose = true
	}
	return cfg, nil
}

// findPort resolves the target port from config or discovery.
func findPort(cfg hostConfig, log *consoleLogger) (string, error) {
	if cfg.Port != "" {
		return cfg.Port, nil
	}
	port, err := locator.New().Find()
	if err != nil {
		return "", err
	}
	log.Info("device found", "port", port.String())
	return port.Path, nil
}

// openSession opens and greets a session on the resolved port.
func openSession(ctx context.Context, cfg hostConfig, log *consoleLogger, extra ...session.Option) (*session.Session, error) {
	portPath, err := findPort(cfg, log)
	if err != nil {
		return nil, err
	}

	opts := append([]session.Option{
		session.WithLogger(log),
		session.WithReadTimeout(cfg.ReadTimeout),
		session.WithWriteTimeout(cfg.WriteTimeout),
		session.WithStabilityDelay(cfg.StabilityDelay),
	}, extra...)

	sess := session.New(link.New(portPath), opts...)
	if err := sess.Open(); err != nil {
		return nil, err
	}
	if err := sess.Greet(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runDetect(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	log := newConsoleLogger(cfg.Verbose)

	port, err := locator.New().Find()
	if err != nil {
		log.Info("no device in Download Mode")
		return nil
	}
	fmt.Println(port.String())
	return nil
}

func runWatch(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	log := newConsoleLogger(cfg.Verbose)

	ctx, cancel := signalContext()
	defer cancel()

	events := make(chan locator.Event, 4)
	mon := locator.NewMonitor(locator.New(), events)
	go func() {
		for ev := range events {
			switch ev.Kind {
			case locator.EventAdded:
				log.Info("device added", "port", ev.Port.String())
			case locator.EventRemoved:
				log.Info("device removed", "port", ev.Old.String())
			case locator.EventChanged:
				log.Info("device moved", "from", ev.Old.String(), "to", ev.Port.String())
			}
		}
	}()

	err = mon.Run(ctx)
	close(events)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runFlash(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	tarPath := c.String("tar")
	images := c.StringSlice("image")
	if tarPath == "" && len(images) == 0 && c.String("pit") == "" {
		return errors.New("nothing to flash: pass --tar, --image or --pit")
	}

	log := newConsoleLogger(cfg.Verbose)
	bars := newProgressBars()

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := openSession(ctx, cfg, log, session.WithProgressCallback(bars.observe))
	if err != nil {
		return err
	}
	defer sess.Close()

	if pitPath := c.String("pit"); pitPath != "" {
		blob, err := os.ReadFile(pitPath)
		if err != nil {
			return fmt.Errorf("read PIT file: %w", err)
		}
		if err := sess.WritePit(ctx, blob); err != nil {
			return err
		}
	}

	var flashed, failed []string
	flash := func(img *firmware.ImageStream) error {
		err := sess.Flash(ctx, img)
		var ie *session.ImageError
		switch {
		case err == nil:
			flashed = append(flashed, img.Name)
		case errors.As(err, &ie):
			failed = append(failed, img.Name)
		default:
			failed = append(failed, img.Name)
			return err
		}
		return nil
	}

	for _, path := range images {
		img, err := firmware.FromFile(path)
		if err != nil {
			return err
		}
		err = flash(img)
		img.Close()
		if err != nil {
			return err
		}
	}

	if tarPath != "" {
		if err := flashArchive(ctx, sess, tarPath, c.Bool("repartition"), log, flash); err != nil {
			return err
		}
	}

	bars.wait()

	if err := endSession(ctx, sess, c.Bool("reboot")); err != nil {
		return err
	}

	if len(failed) > 0 {
		return fmt.Errorf("partial: images %v failed (%d flashed)", failed, len(flashed))
	}
	log.Success("completed", "images", len(flashed))
	return nil
}

// flashArchive streams images straight out of the tar without
// extracting to disk. LZ4 members are spooled to learn their true
// size; PIT members are written only when repartition is requested.
func flashArchive(ctx context.Context, sess *session.Session, path string, repartition bool, log *consoleLogger, flash func(*firmware.ImageStream) error) error {
	walker, closer, err := firmware.OpenTar(path)
	if err != nil {
		return err
	}
	defer closer.Close()

	for {
		entry, stream, err := walker.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if stream == nil {
			continue
		}

		switch {
		case firmware.IsPitName(entry.Name):
			if !repartition {
				log.Info("skipping PIT entry; pass --repartition to write it", "entry", entry.Name)
				if _, err := io.Copy(io.Discard, stream); err != nil {
					return err
				}
				continue
			}
			blob, err := io.ReadAll(stream)
			if err != nil {
				return err
			}
			if err := sess.WritePit(ctx, blob); err != nil {
				return err
			}

		case firmware.IsImageName(entry.Name) && firmware.IsLZ4Name(entry.Name):
			img, err := firmware.SpoolLZ4(entry.Name, stream, "")
			if err != nil {
				return err
			}
			err = flash(img)
			img.Close()
			if err != nil {
				return err
			}

		case firmware.IsImageName(entry.Name):
			if err := flash(stream); err != nil {
				return err
			}

		default:
			log.Debug("skipping archive entry", "entry", entry.Name)
			if _, err := io.Copy(io.Discard, stream); err != nil {
				return err
			}
		}
	}
}

func endSession(ctx context.Context, sess *session.Session, reboot bool) error {
	if reboot {
		return sess.Reboot(ctx)
	}
	return sess.End(ctx)
}

func runPitRead(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	if base := c.String("base"); base != "" {
		cfg.BackupBase = base
	}
	log := newConsoleLogger(cfg.Verbose)

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	blob, err := sess.ReadPit(ctx)
	if err != nil {
		return err
	}
	if err := sess.End(ctx); err != nil {
		return err
	}

	path, err := firmware.BackupPit(cfg.BackupBase, blob, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runPitWrite(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	log := newConsoleLogger(cfg.Verbose)

	blob, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("read PIT file: %w", err)
	}
	if err := firmware.ValidatePit(blob); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.WritePit(ctx, blob); err != nil {
		return err
	}
	return sess.End(ctx)
}

func runReboot(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	log := newConsoleLogger(cfg.Verbose)

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Reboot(ctx)
}
