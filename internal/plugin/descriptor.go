package plugin

// SettingType tells a settings UI how to edit a plugin setting.
type SettingType string

const (
	SettingBool   SettingType = "bool"
	SettingString SettingType = "string"
	SettingNumber SettingType = "number"
	SettingDir    SettingType = "dir"
	SettingDirs   SettingType = "dirs"
	SettingHidden SettingType = "hidden"
)

// Setting describes one key of a plugin's config document.
type Setting struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        SettingType `json:"type"`
}

// Descriptor is what the runtime knows about a plugin before running it.
type Descriptor struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Author         string             `json:"author"`
	Version        string             `json:"version"`
	Description    string             `json:"description,omitempty"`
	License        string             `json:"license,omitempty"`
	Features       []string           `json:"features,omitempty"`
	ConfigSettings map[string]Setting `json:"configSettings,omitempty"`
}

// Valid reports whether the descriptor can be loaded.
func (d Descriptor) Valid() bool {
	return d.ID != ""
}

// Status is where a plugin is in its lifecycle.
type Status int

const (
	StatusUnloaded Status = iota
	StatusInitializing
	StatusActive
	StatusDestroyed
)

func (s Status) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusInitializing:
		return "initializing"
	case StatusActive:
		return "active"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
