// Package adventure parses adventure command flags and runs a play session
// on the terminal.
package adventure

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	advmodel "github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/adventure/fsdir"
	advstore "github.com/torchlit/engine/internal/adventure/sqlite"
	"github.com/torchlit/engine/internal/engine"
	"github.com/torchlit/engine/internal/event"
	"github.com/torchlit/engine/internal/narrative"
	"github.com/torchlit/engine/internal/platform/config"
)

// Config holds adventure command configuration.
type Config struct {
	AdventureDir string `env:"TORCHLIT_ADVENTURE_DIR"`
	DBPath       string `env:"TORCHLIT_DB_PATH"`
	AdventureID  string `env:"TORCHLIT_ADVENTURE_ID"`
	Mode         string `env:"TORCHLIT_MODE"  envDefault:"scripted"`
	Seed         int64  `env:"TORCHLIT_SEED"`
	Model        string `env:"TORCHLIT_MODEL" envDefault:"gpt-4o-mini"`
	APIKey       string `env:"OPENAI_API_KEY"`
	BaseURL      string `env:"OPENAI_BASE_URL"`

	// List prints the stored adventure catalog instead of playing.
	List bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.AdventureDir, "dir", cfg.AdventureDir, "adventure package directory")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "adventure database path")
	fs.StringVar(&cfg.AdventureID, "adventure", cfg.AdventureID, "adventure id to load from the database")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "story mode: scripted or generative")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "deterministic dice seed (0 uses the clock)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "storyteller model name")
	fs.BoolVar(&cfg.List, "list", cfg.List, "list stored adventures and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the adventure package, wires a play session, and drives it from
// stdin until the story ends or the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.List {
		return listAdventures(ctx, cfg.DBPath, os.Stdout)
	}

	pkg, err := loadPackage(ctx, cfg)
	if err != nil {
		return err
	}

	opts := engine.Options{Seed: cfg.Seed}
	switch engine.Mode(cfg.Mode) {
	case engine.ModeScripted, "":
		opts.Mode = engine.ModeScripted
	case engine.ModeGenerative:
		if cfg.APIKey == "" {
			return errors.New("generative mode requires OPENAI_API_KEY")
		}
		opts.Mode = engine.ModeGenerative
		opts.Transport = narrative.NewOpenAIClient(narrative.ClientConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	bus := event.NewBus()
	session := newSession(bus, os.Stdout)

	eng, err := engine.New(pkg, bus, opts)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start adventure: %w", err)
	}

	return session.loop(ctx, eng, os.Stdin)
}

// loadPackage resolves the adventure source: a package directory takes
// precedence, then a stored adventure id. A directory load with a database
// configured also archives the package for later replay by id.
func loadPackage(ctx context.Context, cfg Config) (*advmodel.Package, error) {
	if cfg.AdventureDir != "" {
		pkg, err := fsdir.LoadDir(cfg.AdventureDir)
		if err != nil {
			return nil, fmt.Errorf("load adventure dir: %w", err)
		}
		if cfg.DBPath != "" && pkg.Manifest.ID != "" {
			if err := archivePackage(ctx, cfg.DBPath, pkg); err != nil {
				log.Printf("archive adventure: %v", err)
			}
		}
		return pkg, nil
	}
	if cfg.DBPath != "" && cfg.AdventureID != "" {
		store, err := advstore.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open adventure db: %w", err)
		}
		defer store.Close()
		pkg, err := store.Get(ctx, cfg.AdventureID)
		if err != nil {
			return nil, fmt.Errorf("load adventure %q: %w", cfg.AdventureID, err)
		}
		return pkg, nil
	}
	return nil, errors.New("an adventure directory (-dir) or database id (-db, -adventure) is required")
}

// listAdventures prints the stored catalog, one adventure per line.
func listAdventures(ctx context.Context, path string, out io.Writer) error {
	if path == "" {
		return errors.New("listing adventures requires a database path (-db)")
	}
	store, err := advstore.Open(path)
	if err != nil {
		return fmt.Errorf("open adventure db: %w", err)
	}
	defer store.Close()

	manifests, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list adventures: %w", err)
	}
	if len(manifests) == 0 {
		fmt.Fprintln(out, "No stored adventures.")
		return nil
	}
	for _, m := range manifests {
		fmt.Fprintf(out, "%s\t%s\n", m.ID, m.Title)
	}
	return nil
}

func archivePackage(ctx context.Context, path string, pkg *advmodel.Package) error {
	store, err := advstore.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, pkg)
}

// session renders bus events to the terminal and tracks the little state the
// command loop needs: whether combat owns input and whether the story ended.
type session struct {
	out      io.Writer
	inCombat bool
	over     bool
	itemIDs  []string
}

func newSession(bus *event.Bus, out io.Writer) *session {
	s := &session{out: out}
	render := newRenderer(out)
	for _, t := range []event.Type{
		event.TypeLogMessage,
		event.TypePlayerChanged,
		event.TypeSceneEntered,
		event.TypeCombatStarted,
		event.TypeCombatTurn,
		event.TypeCombatEnded,
		event.TypeNarrativeScene,
		event.TypeNarrativeLoading,
		event.TypeNarrativeError,
	} {
		bus.Subscribe(t, render.handle)
	}
	bus.Subscribe(event.TypeCombatStarted, func(event.Event) { s.inCombat = true })
	bus.Subscribe(event.TypeCombatEnded, func(event.Event) { s.inCombat = false })
	bus.Subscribe(event.TypeInventoryChanged, func(ev event.Event) {
		s.itemIDs = ev.(event.InventoryChanged).ItemIDs
	})
	bus.Subscribe(event.TypeSceneEntered, func(ev event.Event) {
		entered := ev.(event.SceneEntered)
		if entered.GameOver {
			s.over = true
		}
	})
	return s
}

// loop reads commands from the input until the story ends, the input closes,
// or the context is cancelled. Lines are read on a goroutine so cancellation
// is not stuck behind a blocking read.
func (s *session) loop(ctx context.Context, eng *engine.Engine, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.dispatch(ctx, eng, line); quit {
				return nil
			}
			if s.over {
				fmt.Fprintln(s.out, "The story is over.")
				return nil
			}
		}
	}
}

// dispatch interprets one command line. A bare number is a choice; everything
// else is a named command, falling back to free-form storyteller input.
func (s *session) dispatch(ctx context.Context, eng *engine.Engine, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if n, err := strconv.Atoi(line); err == nil {
		eng.Choose(ctx, n-1)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		s.printHelp()
	case "status":
		p := eng.Player()
		fmt.Fprintf(s.out, "%s  HP %d/%d  Level %d  XP %d  Gold %d\n",
			p.Name, p.HP, p.MaxHP, p.Level, p.XP, p.Gold)
	case "items":
		if len(s.itemIDs) == 0 {
			fmt.Fprintln(s.out, "You carry nothing.")
			break
		}
		for _, id := range s.itemIDs {
			fmt.Fprintf(s.out, "- %s\n", id)
		}
	case "use":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "usage: use <item-id>")
			break
		}
		result := eng.UseItem(fields[1])
		if !result.Used {
			fmt.Fprintln(s.out, "Nothing happens.")
		}
	case "attack":
		attackIndex, targetIndex := 1, 1
		if len(fields) > 1 {
			attackIndex, _ = strconv.Atoi(fields[1])
		}
		if len(fields) > 2 {
			targetIndex, _ = strconv.Atoi(fields[2])
		}
		eng.Attack(attackIndex-1, targetIndex-1)
	case "flee":
		eng.Flee()
	default:
		eng.Input(ctx, line)
	}
	return false
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, `Commands:
  <number>            pick a choice
  attack [n] [t]      attack with option n at target t (combat)
  flee                try to escape combat
  use <item-id>       use an inventory item
  items               list carried items
  status              show the character sheet
  help                show this help
  quit                leave the game

Anything else is sent to the storyteller in generative mode.`)
}
