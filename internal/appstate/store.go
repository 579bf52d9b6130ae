// Package appstate holds the client's persisted preferences and the
// logged-in user behind a pluggable key-value adapter.
package appstate

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Theme is the UI colour scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Language is the UI language
type Language string

const (
	LanguageEN Language = "en"
	LanguageRU Language = "ru"
	LanguageUZ Language = "uz"
)

var (
	ErrUnknownTheme    = errors.New("theme must be light or dark")
	ErrUnknownLanguage = errors.New("language must be en, ru or uz")
)

const (
	keyUserID     = "user.id"
	keyTelegramID = "user.telegram_id"
	keyUsername   = "user.username"
	keyTheme      = "theme"
	keyLanguage   = "language"
)

// CurrentUser is the account the client acts as
type CurrentUser struct {
	ID         int64
	TelegramID int64
	Username   string
}

// Store reads and writes application state through an adapter
type Store struct {
	adapter Adapter
}

// NewStore creates a store over adapter
func NewStore(adapter Adapter) *Store {
	return &Store{adapter: adapter}
}

// CurrentUser returns the logged-in user; ok is false when nobody is
func (s *Store) CurrentUser() (CurrentUser, bool, error) {
	raw, ok, err := s.adapter.Get(keyUserID)
	if err != nil || !ok {
		return CurrentUser{}, false, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return CurrentUser{}, false, fmt.Errorf("stored user id %q: %w", raw, err)
	}
	u := CurrentUser{ID: id}

	if raw, ok, err := s.adapter.Get(keyTelegramID); err != nil {
		return CurrentUser{}, false, err
	} else if ok {
		u.TelegramID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if name, ok, err := s.adapter.Get(keyUsername); err != nil {
		return CurrentUser{}, false, err
	} else if ok {
		u.Username = name
	}
	return u, true, nil
}

// SetCurrentUser stores u, or logs out when u is nil
func (s *Store) SetCurrentUser(u *CurrentUser) error {
	if u == nil {
		for _, k := range []string{keyUserID, keyTelegramID, keyUsername} {
			if err := s.adapter.Delete(k); err != nil {
				return err
			}
		}
		return nil
	}

	if err := s.adapter.Set(keyTelegramID, strconv.FormatInt(u.TelegramID, 10)); err != nil {
		return err
	}
	if err := s.adapter.Set(keyUsername, u.Username); err != nil {
		return err
	}
	// the id goes last so a partial write never looks logged in
	return s.adapter.Set(keyUserID, strconv.FormatInt(u.ID, 10))
}

// Theme returns the stored theme, light by default
func (s *Store) Theme() (Theme, error) {
	raw, ok, err := s.adapter.Get(keyTheme)
	if err != nil {
		return "", err
	}
	if !ok || !slices.Contains([]Theme{ThemeLight, ThemeDark}, Theme(raw)) {
		return ThemeLight, nil
	}
	return Theme(raw), nil
}

// SetTheme stores t
func (s *Store) SetTheme(t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return ErrUnknownTheme
	}
	return s.adapter.Set(keyTheme, string(t))
}

// ToggleTheme flips between light and dark and returns the new theme
func (s *Store) ToggleTheme() (Theme, error) {
	cur, err := s.Theme()
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if cur == ThemeDark {
		next = ThemeLight
	}
	return next, s.SetTheme(next)
}

// Language returns the stored language, English by default
func (s *Store) Language() (Language, error) {
	raw, ok, err := s.adapter.Get(keyLanguage)
	if err != nil {
		return "", err
	}
	if !ok || !validLanguage(Language(raw)) {
		return LanguageEN, nil
	}
	return Language(raw), nil
}

// SetLanguage stores l
func (s *Store) SetLanguage(l Language) error {
	if !validLanguage(l) {
		return ErrUnknownLanguage
	}
	return s.adapter.Set(keyLanguage, string(l))
}

// Clear drops everything the store knows about
func (s *Store) Clear() error {
	for _, k := range []string{keyUserID, keyTelegramID, keyUsername, keyTheme, keyLanguage} {
		if err := s.adapter.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func validLanguage(l Language) bool {
	return slices.Contains([]Language{LanguageEN, LanguageRU, LanguageUZ}, l)
}
