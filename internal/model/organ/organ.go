package organ

// SoundKind selects the synthesis recipe for an organ.
type SoundKind string

const (
	SoundHeartbeat  SoundKind = "heartbeat"
	SoundBreath     SoundKind = "breath"
	SoundBrainwave  SoundKind = "brainwave"
	SoundGurgle     SoundKind = "gurgle"
	SoundGurgleDeep SoundKind = "gurgle2"
	SoundBloodflow  SoundKind = "bloodflow"
	SoundFiltration SoundKind = "filtration"
	SoundCrack      SoundKind = "crack"
)

var soundKinds = []SoundKind{
	SoundHeartbeat,
	SoundBreath,
	SoundBrainwave,
	SoundGurgle,
	SoundGurgleDeep,
	SoundBloodflow,
	SoundFiltration,
	SoundCrack,
}

// SoundKinds lists every recipe tag.
func SoundKinds() []SoundKind {
	return append([]SoundKind(nil), soundKinds...)
}

// Valid reports whether k is one of the defined recipe tags.
func (k SoundKind) Valid() bool {
	for _, known := range soundKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Record captures the descriptive attributes of one organ.
type Record struct {
	ID               string    `json:"id" yaml:"id"`
	Name             string    `json:"name" yaml:"name"`
	Icon             string    `json:"icon,omitempty" yaml:"icon"`
	System           string    `json:"system" yaml:"system"`
	Description      string    `json:"description" yaml:"description"`
	Importance       int       `json:"importance" yaml:"importance"`
	FunFact          string    `json:"funFact" yaml:"fun_fact"`
	Color            string    `json:"color" yaml:"color"`
	SoundKind        SoundKind `json:"soundKind" yaml:"sound_kind"`
	SoundDescription string    `json:"soundDescription" yaml:"sound_description"`
}
