package app

import "sync"

// Theme is the color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme returns the named theme, defaulting to light.
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Appearance holds the theme. Set is the only writer; subscribers hear
// about every change.
type Appearance struct {
	mu    sync.Mutex
	theme Theme
	subs  []func(Theme)
}

// NewAppearance starts with the given theme.
func NewAppearance(t Theme) *Appearance {
	return &Appearance{theme: ParseTheme(string(t))}
}

// Theme returns the current theme.
func (a *Appearance) Theme() Theme {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.theme
}

// Set changes the theme and notifies subscribers if it differs.
func (a *Appearance) Set(t Theme) {
	t = ParseTheme(string(t))

	a.mu.Lock()
	if a.theme == t {
		a.mu.Unlock()
		return
	}
	a.theme = t
	subs := append([]func(Theme){}, a.subs...)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
}

// Toggle flips between light and dark and returns the new theme.
func (a *Appearance) Toggle() Theme {
	next := ThemeDark
	if a.Theme() == ThemeDark {
		next = ThemeLight
	}
	a.Set(next)
	return next
}

// Subscribe registers fn for theme changes.
func (a *Appearance) Subscribe(fn func(Theme)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
}
