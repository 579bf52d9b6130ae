package appstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adapters(t *testing.T) map[string]func() Adapter {
	dir := t.TempDir()
	return map[string]func() Adapter{
		"memory": func() Adapter { return NewMemoryAdapter() },
		"file": func() Adapter {
			a, err := NewFileAdapter(filepath.Join(dir, "nested", "state.yaml"))
			require.NoError(t, err)
			return a
		},
	}
}

func TestStore_Defaults(t *testing.T) {
	for name, newAdapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			s := NewStore(newAdapter())

			_, ok, err := s.CurrentUser()
			require.NoError(t, err)
			assert.False(t, ok)

			theme, err := s.Theme()
			require.NoError(t, err)
			assert.Equal(t, ThemeLight, theme)

			lang, err := s.Language()
			require.NoError(t, err)
			assert.Equal(t, LanguageEN, lang)
		})
	}
}

func TestStore_ReadWrite(t *testing.T) {
	for name, newAdapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			s := NewStore(newAdapter())

			require.NoError(t, s.SetCurrentUser(&CurrentUser{ID: 4, TelegramID: 900, Username: "ann"}))
			u, ok, err := s.CurrentUser()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, CurrentUser{ID: 4, TelegramID: 900, Username: "ann"}, u)

			next, err := s.ToggleTheme()
			require.NoError(t, err)
			assert.Equal(t, ThemeDark, next)

			require.NoError(t, s.SetLanguage(LanguageUZ))
			assert.ErrorIs(t, s.SetLanguage("de"), ErrUnknownLanguage)
			assert.ErrorIs(t, s.SetTheme("sepia"), ErrUnknownTheme)

			lang, _ := s.Language()
			assert.Equal(t, LanguageUZ, lang)

			require.NoError(t, s.SetCurrentUser(nil))
			_, ok, _ = s.CurrentUser()
			assert.False(t, ok)

			theme, _ := s.Theme()
			assert.Equal(t, ThemeDark, theme)

			require.NoError(t, s.Clear())
			theme, _ = s.Theme()
			assert.Equal(t, ThemeLight, theme)
		})
	}
}

func TestFileAdapter_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	a, err := NewFileAdapter(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(a).SetCurrentUser(&CurrentUser{ID: 2, TelegramID: 77, Username: "bob"}))
	require.NoError(t, NewStore(a).SetLanguage(LanguageRU))

	reopened, err := NewFileAdapter(path)
	require.NoError(t, err)
	s := NewStore(reopened)

	u, ok, err := s.CurrentUser()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), u.ID)
	lang, _ := s.Language()
	assert.Equal(t, LanguageRU, lang)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "language: ru")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileAdapter_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, err := NewFileAdapter(path)
	assert.Error(t, err)
}

func TestStore_IgnoresUnknownStoredTheme(t *testing.T) {
	a := NewMemoryAdapter()
	require.NoError(t, a.Set("theme", "neon"))

	theme, err := NewStore(a).Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}
