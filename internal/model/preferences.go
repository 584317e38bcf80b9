package model

// Preferences is the user's UI preference mapping.
type Preferences map[string]string

// DefaultPreferences returns the preferences used before anything is saved.
func DefaultPreferences() Preferences {
	return Preferences{
		"theme":                     "light",
		"default_period":            string(DefaultPeriod),
		"auto_refresh":              "false",
		"show_technical_indicators": "true",
	}
}

// Merge returns a copy of p with every key of other applied on top.
func (p Preferences) Merge(other Preferences) Preferences {
	out := make(Preferences, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
