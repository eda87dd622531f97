// Package fsdir loads an adventure package from a directory of JSON files.
//
// The layout is one file per catalog: manifest.json and player.json are
// required; items.json, enemies.json, combats.json, scenes.json, npcs.json,
// and template.json are optional and default to empty.
package fsdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/torchlit/engine/internal/adventure"
)

// Load reads an adventure package from the root of fsys.
func Load(fsys fs.FS) (*adventure.Package, error) {
	pkg := &adventure.Package{
		Items:   map[string]adventure.Item{},
		Enemies: map[string]adventure.Enemy{},
		Combats: map[string]adventure.CombatDef{},
		Scenes:  map[string]adventure.Scene{},
	}

	if err := readJSON(fsys, "manifest.json", &pkg.Manifest, true); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "player.json", &pkg.Player, true); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "items.json", &pkg.Items, false); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "enemies.json", &pkg.Enemies, false); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "combats.json", &pkg.Combats, false); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "scenes.json", &pkg.Scenes, false); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "npcs.json", &pkg.NPCs, false); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "template.json", &pkg.Template, false); err != nil {
		return nil, err
	}

	fillIDs(pkg)
	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %q: %w", pkg.Manifest.ID, err)
	}
	return pkg, nil
}

// LoadDir reads an adventure package from a filesystem path.
func LoadDir(path string) (*adventure.Package, error) {
	return Load(os.DirFS(path))
}

func readJSON(fsys fs.FS, name string, target any, required bool) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// fillIDs copies map keys onto entries that omit their own id field, so
// catalog files do not have to repeat the key inside every object.
func fillIDs(pkg *adventure.Package) {
	for key, item := range pkg.Items {
		if item.ID == "" {
			item.ID = key
			pkg.Items[key] = item
		}
	}
	for key, enemy := range pkg.Enemies {
		if enemy.ID == "" {
			enemy.ID = key
			pkg.Enemies[key] = enemy
		}
	}
	for key, combat := range pkg.Combats {
		if combat.ID == "" {
			combat.ID = key
			pkg.Combats[key] = combat
		}
	}
	for key, sceneDef := range pkg.Scenes {
		if sceneDef.ID == "" {
			sceneDef.ID = key
			pkg.Scenes[key] = sceneDef
		}
	}
}
