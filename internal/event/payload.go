package event

// DiceRolled is the payload for TypeDiceRolled.
type DiceRolled struct {
	Expression string
	Rolls      []int
	Modifier   int
	Total      int
}

// EventType implements Event.
func (DiceRolled) EventType() Type { return TypeDiceRolled }

// PlayerChanged is the payload for TypePlayerChanged.
type PlayerChanged struct {
	Name  string
	HP    int
	MaxHP int
	Level int
	XP    int
	Gold  int
}

// EventType implements Event.
func (PlayerChanged) EventType() Type { return TypePlayerChanged }

// InventoryChanged is the payload for TypeInventoryChanged.
type InventoryChanged struct {
	ItemIDs []string
}

// EventType implements Event.
func (InventoryChanged) EventType() Type { return TypeInventoryChanged }

// Log message kinds.
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogFailure = "failure"
	LogCombat  = "combat"
	LogSystem  = "system"
)

// LogMessage is the payload for TypeLogMessage.
type LogMessage struct {
	Kind string
	Text string
}

// EventType implements Event.
func (LogMessage) EventType() Type { return TypeLogMessage }

// ChoiceOption is one selectable choice presented with a scene or narrative
// turn, already filtered down to the options the player qualifies for.
type ChoiceOption struct {
	Index int
	Text  string
	// Available reports whether the player currently qualifies for the
	// choice. Indexes stay stable either way.
	Available bool
}

// SceneEntered is the payload for TypeSceneEntered.
type SceneEntered struct {
	SceneID  string
	Text     string
	Choices  []ChoiceOption
	GameOver bool
	Victory  bool
}

// EventType implements Event.
func (SceneEntered) EventType() Type { return TypeSceneEntered }

// CombatantStatus is a point-in-time view of one combatant.
type CombatantStatus struct {
	InstanceID string
	Name       string
	HP         int
	MaxHP      int
}

// CombatStarted is the payload for TypeCombatStarted.
type CombatStarted struct {
	Enemies []CombatantStatus
	Order   []string
}

// EventType implements Event.
func (CombatStarted) EventType() Type { return TypeCombatStarted }

// CombatTurn is the payload for TypeCombatTurn. It is published whenever the
// turn order reaches the player and the encounter is still undecided.
type CombatTurn struct {
	Round   int
	Enemies []CombatantStatus
}

// EventType implements Event.
func (CombatTurn) EventType() Type { return TypeCombatTurn }

// CombatEnded is the payload for TypeCombatEnded. Exactly one of these is
// published per encounter.
type CombatEnded struct {
	Victory bool
	Fled    bool
	TotalXP int
}

// EventType implements Event.
func (CombatEnded) EventType() Type { return TypeCombatEnded }

// NarrativeScene is the payload for TypeNarrativeScene.
type NarrativeScene struct {
	Narrative string
	Choices   []ChoiceOption
}

// EventType implements Event.
func (NarrativeScene) EventType() Type { return TypeNarrativeScene }

// NarrativePlayerInput is the payload for TypeNarrativePlayerInput.
type NarrativePlayerInput struct {
	Text string
}

// EventType implements Event.
func (NarrativePlayerInput) EventType() Type { return TypeNarrativePlayerInput }

// NarrativeLoading is the payload for TypeNarrativeLoading.
type NarrativeLoading struct {
	Loading bool
}

// EventType implements Event.
func (NarrativeLoading) EventType() Type { return TypeNarrativeLoading }

// NarrativeError is the payload for TypeNarrativeError.
type NarrativeError struct {
	Message string
}

// EventType implements Event.
func (NarrativeError) EventType() Type { return TypeNarrativeError }
