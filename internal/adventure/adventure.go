// Package adventure defines the content model for an adventure package: the
// player sheet, item and enemy catalogs, scripted scenes, and the narrative
// template fed to the generative storyteller.
//
// The types here are pure data. Behavior that interprets them lives in the
// scene, combat, inventory, and narrative packages.
package adventure

import (
	"errors"
	"fmt"
	"strings"
)

// Ability identifies one of the six core ability scores.
type Ability string

const (
	AbilityStrength     Ability = "strength"
	AbilityDexterity    Ability = "dexterity"
	AbilityConstitution Ability = "constitution"
	AbilityIntelligence Ability = "intelligence"
	AbilityWisdom       Ability = "wisdom"
	AbilityCharisma     Ability = "charisma"
)

// Abilities lists every ability in canonical order.
var Abilities = []Ability{
	AbilityStrength,
	AbilityDexterity,
	AbilityConstitution,
	AbilityIntelligence,
	AbilityWisdom,
	AbilityCharisma,
}

// ErrUnknownAbility indicates an ability name outside the six core scores.
var ErrUnknownAbility = errors.New("unknown ability")

// ParseAbility normalizes and validates an ability name.
func ParseAbility(name string) (Ability, error) {
	ability := Ability(strings.ToLower(strings.TrimSpace(name)))
	switch ability {
	case AbilityStrength, AbilityDexterity, AbilityConstitution,
		AbilityIntelligence, AbilityWisdom, AbilityCharisma:
		return ability, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAbility, name)
}

// Scores holds the six ability scores of a creature.
type Scores struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Value returns the score for one ability.
func (s Scores) Value(ability Ability) (int, error) {
	switch ability {
	case AbilityStrength:
		return s.Strength, nil
	case AbilityDexterity:
		return s.Dexterity, nil
	case AbilityConstitution:
		return s.Constitution, nil
	case AbilityIntelligence:
		return s.Intelligence, nil
	case AbilityWisdom:
		return s.Wisdom, nil
	case AbilityCharisma:
		return s.Charisma, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAbility, ability)
}

// Player is the mutable player sheet.
type Player struct {
	Name       string   `json:"name"`
	HP         int      `json:"hp"`
	MaxHP      int      `json:"max_hp"`
	ArmorClass int      `json:"armor_class"`
	Level      int      `json:"level"`
	XP         int      `json:"xp"`
	Gold       int      `json:"gold"`
	Scores     Scores   `json:"scores"`
	Attacks    []Attack `json:"attacks,omitempty"`
	Items      []string `json:"items,omitempty"`
	Flags      []string `json:"flags,omitempty"`
}

// Heal restores hit points, clamped to MaxHP, and returns the amount
// actually restored.
func (p *Player) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	healed := amount
	if p.HP+healed > p.MaxHP {
		healed = p.MaxHP - p.HP
	}
	p.HP += healed
	return healed
}

// ApplyDamage reduces hit points, clamped to zero, and returns the amount
// actually dealt.
func (p *Player) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	dealt := amount
	if dealt > p.HP {
		dealt = p.HP
	}
	p.HP -= dealt
	return dealt
}

// HasFlag reports whether a story flag is set on the player.
func (p *Player) HasFlag(flag string) bool {
	for _, existing := range p.Flags {
		if existing == flag {
			return true
		}
	}
	return false
}

// SetFlag records a story flag on the player. Setting a flag twice is a
// no-op.
func (p *Player) SetFlag(flag string) {
	if p.HasFlag(flag) {
		return
	}
	p.Flags = append(p.Flags, flag)
}

// ItemEffect describes what using an item does.
type ItemEffect struct {
	Heal int `json:"heal,omitempty"`
}

// Item is a catalog entry for an inventory item.
type Item struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Consumable  bool       `json:"consumable,omitempty"`
	Effect      ItemEffect `json:"effect,omitempty"`
}

// Attack is one attack option available to a combatant. Player attacks roll
// to hit with the modifier of the governing ability; enemy attacks use the
// flat ToHit bonus.
type Attack struct {
	Name    string  `json:"name"`
	Ability Ability `json:"ability,omitempty"`
	ToHit   int     `json:"to_hit,omitempty"`
	Damage  string  `json:"damage"`
}

// Enemy is a catalog entry for a combat opponent.
type Enemy struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	HP         int      `json:"hp"`
	MaxHP      int      `json:"max_hp"`
	ArmorClass int      `json:"armor_class"`
	XP         int      `json:"xp"`
	Scores     Scores   `json:"scores"`
	Attacks    []Attack `json:"attacks"`
}

// Clone returns an independent copy of the enemy for use as a combat
// instance.
func (e Enemy) Clone() Enemy {
	clone := e
	clone.Attacks = append([]Attack(nil), e.Attacks...)
	return clone
}

// Condition gates a scene choice on player state.
type Condition struct {
	HasItem    string `json:"has_item,omitempty"`
	NotHasItem string `json:"not_has_item,omitempty"`
	HasFlag    string `json:"has_flag,omitempty"`
}

// BranchEffect describes the consequences of one skill-check branch.
type BranchEffect struct {
	Text      string `json:"text,omitempty"`
	AddItem   string `json:"add_item,omitempty"`
	SetFlag   string `json:"set_flag,omitempty"`
	Damage    string `json:"damage,omitempty"`
	NextScene string `json:"next_scene,omitempty"`
	Combat    string `json:"combat,omitempty"`
}

// SkillCheck attaches an ability check to a scene choice, with a branch for
// each outcome.
type SkillCheck struct {
	Ability Ability      `json:"ability"`
	DC      int          `json:"dc"`
	Success BranchEffect `json:"success"`
	Failure BranchEffect `json:"failure"`
}

// Choice is one selectable option in a scripted scene.
type Choice struct {
	Text       string      `json:"text"`
	Condition  *Condition  `json:"condition,omitempty"`
	SkillCheck *SkillCheck `json:"skill_check,omitempty"`
	NextScene  string      `json:"next_scene,omitempty"`
	Combat     string      `json:"combat,omitempty"`
	AddItem    string      `json:"add_item,omitempty"`
	RemoveItem string      `json:"remove_item,omitempty"`
	SetFlag    string      `json:"set_flag,omitempty"`
}

// CombatDef is a catalog entry for a scripted encounter.
type CombatDef struct {
	ID        string   `json:"id"`
	EnemyIDs  []string `json:"enemy_ids"`
	OnVictory string   `json:"on_victory"`
	OnDefeat  string   `json:"on_defeat,omitempty"`
}

// Scene is one node in the scripted scene graph.
type Scene struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Choices  []Choice `json:"choices,omitempty"`
	GameOver bool     `json:"game_over,omitempty"`
	Victory  bool     `json:"victory,omitempty"`
}

// NPC is a named character the storyteller may use.
type NPC struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Template frames the generative storyteller: tone, setting, and the opening
// situation.
type Template struct {
	Setting   string `json:"setting"`
	Tone      string `json:"tone"`
	Opening   string `json:"opening"`
	Direction string `json:"direction,omitempty"`
}

// Manifest identifies an adventure package.
type Manifest struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	StartScene string `json:"start_scene"`
}

// Package is a complete adventure: manifest, catalogs, scenes, and the
// narrative template.
type Package struct {
	Manifest Manifest             `json:"manifest"`
	Player   Player               `json:"player"`
	Items    map[string]Item      `json:"items"`
	Enemies  map[string]Enemy     `json:"enemies"`
	Combats  map[string]CombatDef `json:"combats"`
	Scenes   map[string]Scene     `json:"scenes"`
	NPCs     []NPC                `json:"npcs,omitempty"`
	Template Template             `json:"template"`
}

// Validate checks the internal references of a package: scene transitions,
// combat enemy lists, and item grants must all resolve against the catalogs.
func (p *Package) Validate() error {
	if strings.TrimSpace(p.Manifest.Title) == "" {
		return errors.New("manifest title is required")
	}
	// Generative-only adventures carry no scenes and no start scene.
	if p.Manifest.StartScene != "" {
		if _, ok := p.Scenes[p.Manifest.StartScene]; !ok {
			return fmt.Errorf("start scene %q not found", p.Manifest.StartScene)
		}
	}
	for id, combat := range p.Combats {
		if len(combat.EnemyIDs) == 0 {
			return fmt.Errorf("combat %q has no enemies", id)
		}
		for _, enemyID := range combat.EnemyIDs {
			if _, ok := p.Enemies[enemyID]; !ok {
				return fmt.Errorf("combat %q references unknown enemy %q", id, enemyID)
			}
		}
		if combat.OnVictory != "" {
			if _, ok := p.Scenes[combat.OnVictory]; !ok {
				return fmt.Errorf("combat %q references unknown scene %q", id, combat.OnVictory)
			}
		}
	}
	for id, scene := range p.Scenes {
		for i, choice := range scene.Choices {
			if err := p.validateChoice(choice); err != nil {
				return fmt.Errorf("scene %q choice %d: %w", id, i, err)
			}
		}
	}
	return nil
}

func (p *Package) validateChoice(choice Choice) error {
	if choice.NextScene != "" {
		if _, ok := p.Scenes[choice.NextScene]; !ok {
			return fmt.Errorf("unknown scene %q", choice.NextScene)
		}
	}
	if choice.Combat != "" {
		if _, ok := p.Combats[choice.Combat]; !ok {
			return fmt.Errorf("unknown combat %q", choice.Combat)
		}
	}
	if choice.AddItem != "" {
		if _, ok := p.Items[choice.AddItem]; !ok {
			return fmt.Errorf("unknown item %q", choice.AddItem)
		}
	}
	if choice.SkillCheck != nil {
		if _, err := ParseAbility(string(choice.SkillCheck.Ability)); err != nil {
			return err
		}
		for _, branch := range []BranchEffect{choice.SkillCheck.Success, choice.SkillCheck.Failure} {
			if branch.NextScene != "" {
				if _, ok := p.Scenes[branch.NextScene]; !ok {
					return fmt.Errorf("unknown scene %q", branch.NextScene)
				}
			}
			if branch.Combat != "" {
				if _, ok := p.Combats[branch.Combat]; !ok {
					return fmt.Errorf("unknown combat %q", branch.Combat)
				}
			}
			if branch.AddItem != "" {
				if _, ok := p.Items[branch.AddItem]; !ok {
					return fmt.Errorf("unknown item %q", branch.AddItem)
				}
			}
		}
	}
	return nil
}
