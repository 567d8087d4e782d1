// plinth - Terminal glTF Model Viewer
// View glTF/GLB files (with their buffer and texture companions) in your
// terminal with full 3D rendering.
//
// Controls:
//
//	Mouse drag  - Orbit around the model
//	Scroll      - Zoom in/out
//	W/S, A/D    - Orbit with the keyboard
//	R           - Reload the model
//	X           - Toggle wireframe mode (x-ray)
//	C           - Collapse/expand the extensions panel
//	Tab         - Hide/show the extensions panel
//	P           - Save a WebP screenshot
//	Esc         - Quit
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/plinth3d/plinth/pkg/config"
	"github.com/plinth3d/plinth/pkg/vfs"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plinth <model.gltf|model.glb|directory> [more files...]",
		Short: "Terminal glTF model viewer",
		Long: "plinth renders glTF/GLB models in the terminal. Pass the model file\n" +
			"together with its external buffers and textures, or a directory\n" +
			"containing all of them; relative references inside the model are\n" +
			"resolved against the supplied set, whatever its layout.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			files, err := gatherFiles(args)
			if err != nil {
				return err
			}
			return run(cfg, files)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := fang.Execute(ctx, cmd); err != nil {
		os.Exit(1)
	}
}

// gatherFiles reads every argument into memory: plain files as-is,
// directories recursively. Relative paths within a directory argument are
// kept as path hints for the asset index.
func gatherFiles(args []string) ([]vfs.LocalFile, error) {
	var files []vfs.LocalFile

	addFile := func(fsPath, hint string) error {
		data, err := os.ReadFile(fsPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", fsPath, err)
		}
		files = append(files, vfs.LocalFile{
			Name: filepath.Base(fsPath),
			Path: filepath.ToSlash(hint),
			Data: data,
		})
		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			if err := addFile(arg, filepath.Base(arg)); err != nil {
				return nil, err
			}
			continue
		}

		root := arg
		err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = d.Name()
			}
			return addFile(p, rel)
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found")
	}
	return files, nil
}

// run owns the terminal for the lifetime of the viewer.
func run(cfg config.Config, files []vfs.LocalFile) error {
	log, closer, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	app, err := newApp(cfg, term, width, height, log)
	if err != nil {
		cleanup()
		return err
	}
	defer app.sess.Teardown()

	if err := app.submit(files); err != nil {
		cleanup()
		return err
	}

	err = app.loop(time.Second / time.Duration(cfg.FPS))
	cleanup()
	return err
}
