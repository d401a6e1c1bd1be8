package structure

// Theme colours a depiction.
type Theme struct {
	Name       string
	Bond       string
	Background string
	// Elements maps element symbols to label colours; missing symbols use
	// Default.
	Elements map[string]string
	Default  string
}

// Color returns the label colour of an element.
func (t Theme) Color(element string) string {
	if c, ok := t.Elements[element]; ok {
		return c
	}
	return t.Default
}

var (
	ThemeLight = Theme{
		Name:       "light",
		Bond:       "#222222",
		Background: "#ffffff",
		Default:    "#222222",
		Elements: map[string]string{
			"H":  "#666666",
			"N":  "#3050f8",
			"O":  "#e00d0d",
			"S":  "#b59a00",
			"P":  "#e07000",
			"F":  "#1f9e1f",
			"Cl": "#1f9e1f",
			"Br": "#a62929",
			"I":  "#940094",
			"B":  "#c47a7a",
		},
	}

	ThemeDark = Theme{
		Name:       "dark",
		Bond:       "#dddddd",
		Background: "#1e1e1e",
		Default:    "#dddddd",
		Elements: map[string]string{
			"H":  "#aaaaaa",
			"N":  "#8fa8ff",
			"O":  "#ff6b6b",
			"S":  "#f5d742",
			"P":  "#ffa64d",
			"F":  "#6ee06e",
			"Cl": "#6ee06e",
			"Br": "#e07a7a",
			"I":  "#d28fe0",
			"B":  "#ffb5b5",
		},
	}
)

// ThemeByName returns the named theme, falling back to [ThemeLight].
func ThemeByName(name string) (Theme, bool) {
	switch name {
	case "", "light":
		return ThemeLight, true
	case "dark":
		return ThemeDark, true
	default:
		return ThemeLight, false
	}
}
