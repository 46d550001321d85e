package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dukex/flowcanvas/pkg/canvas"
	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/cmd"
	"github.com/dukex/flowcanvas/pkg/config"
	"github.com/dukex/flowcanvas/pkg/gesture"
	"github.com/dukex/flowcanvas/pkg/log"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/preview"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"github.com/urfave/cli/v3"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrDocumentIssues  = errors.New("document has invalid entries")
)

func loadCatalog(command *cli.Command) (*catalog.Catalog, error) {
	return config.LoadCatalogOrDefault(command.Root().String("catalog-path"))
}

func readDocument(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := serializer.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return doc, nil
}

func validateAction(_ context.Context, command *cli.Command) error {
	path := command.Args().First()
	if path == "" {
		return fmt.Errorf("%w: workflow file", ErrMissingArgument)
	}

	templates, err := loadCatalog(command)
	if err != nil {
		return err
	}

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	_, g, report := serializer.Deserialize(doc, serializer.WithCatalog(templates))
	out := command.Root().Writer

	for _, issue := range report.Issues {
		fmt.Fprintln(out, issue.String())
	}

	fmt.Fprintf(out, "%d nodes, %d connections kept; %d entries dropped\n",
		g.NodeCount(), g.ConnectionCount(), len(report.Issues))

	if !report.Clean() {
		return fmt.Errorf("%w: %s", ErrDocumentIssues, path)
	}

	return nil
}

func renderAction(_ context.Context, command *cli.Command) error {
	in, out := command.Args().Get(0), command.Args().Get(1)
	if in == "" || out == "" {
		return fmt.Errorf("%w: workflow file and output file", ErrMissingArgument)
	}

	templates, err := loadCatalog(command)
	if err != nil {
		return err
	}

	doc, err := readDocument(in)
	if err != nil {
		return err
	}

	renderer, err := preview.NewRenderer(templates, preview.WithMaxSize(command.Int("max-size")))
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer func() { _ = f.Close() }()

	if err := renderer.EncodePNG(f, doc); err != nil {
		return err
	}

	return f.Close()
}

func replayAction(ctx context.Context, command *cli.Command) error {
	path := command.Args().First()
	if path == "" {
		return fmt.Errorf("%w: events file", ErrMissingArgument)
	}

	log.Setup(command.Root().String("log-level"))
	logger := log.WithModule("replay")

	templates, err := loadCatalog(command)
	if err != nil {
		return err
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("store"))
	if err != nil {
		return fmt.Errorf("failed to open workflow store: %w", err)
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	session := canvas.NewSession(
		canvas.WithCatalog(templates),
		canvas.WithStore(store),
		canvas.WithLogger(logger),
		canvas.WithViewportSize(command.Float("width"), command.Float("height")),
	)

	if id := command.String("workflow"); id != "" {
		if _, err := session.Load(ctx, id); err != nil {
			return err
		}
	} else {
		session.SetName(command.String("name"))
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	replayed, err := replay(session, f)
	if err != nil {
		return err
	}

	if err := session.Save(ctx); err != nil {
		return err
	}

	graph := session.Graph()
	fmt.Fprintf(command.Root().Writer, "replayed %d events into workflow %s: %d nodes, %d connections\n",
		replayed, session.Metadata().ID, graph.NodeCount(), graph.ConnectionCount())

	return nil
}

// replay feeds one JSON encoded gesture event per line; blank lines are skipped.
func replay(session *canvas.Session, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	line, replayed := 0, 0

	for scanner.Scan() {
		line++

		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var ev gesture.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return replayed, fmt.Errorf("invalid event on line %d: %w", line, err)
		}

		session.Handle(ev)
		replayed++
	}

	if err := scanner.Err(); err != nil {
		return replayed, fmt.Errorf("failed to read events: %w", err)
	}

	// a recording cut mid-gesture still ends the drag or pinch
	session.CancelGesture()

	return replayed, nil
}

func catalogAction(_ context.Context, command *cli.Command) error {
	templates, err := loadCatalog(command)
	if err != nil {
		return err
	}

	list := templates.Templates()

	if kind := models.NodeKind(command.String("kind")); kind != "" {
		if !kind.IsValid() {
			return fmt.Errorf("unknown node kind %q", kind)
		}

		list = templates.ByKind(kind)
	}

	w := tabwriter.NewWriter(command.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tCOLOR")

	for _, template := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", template.ID, template.Kind, template.Name, template.Color)
	}

	return w.Flush()
}
