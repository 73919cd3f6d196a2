package config

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"backtree/internal/pathtree"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Expectation: Settings should survive an encode and decode cycle unchanged.
func Test_Manager_ReadWrite_RoundTrip_Success(t *testing.T) {
	original := Settings{
		ShowMB:    2.5,
		FileMaxMB: 100,
		MaxDepth:  3,
		Order:     OrderFilesFirst,
		MaxItems:  50,
		Level:     9,
		Exclude:   []string{"**/*.iso", "**/cache/"},
	}

	var buf bytes.Buffer

	m := &Manager{}

	require.NoError(t, m.Write(&buf, &original))

	got, err := m.Read(&buf)
	require.NoError(t, err)
	require.Equal(t, original, *got)
}

// Expectation: Keys absent from the settings file should keep their stock value.
func Test_Manager_Read_Partial_Success(t *testing.T) {
	m := &Manager{}

	got, err := m.Read(strings.NewReader("show_mb = 0.5\nmax_depth = 2\n"))
	require.NoError(t, err)

	require.Equal(t, 0.5, got.ShowMB)
	require.Equal(t, 2, got.MaxDepth)
	require.Equal(t, DefaultSettings.FileMaxMB, got.FileMaxMB)
	require.Equal(t, DefaultSettings.Order, got.Order)
	require.Equal(t, DefaultSettings.MaxItems, got.MaxItems)
	require.Equal(t, DefaultSettings.Level, got.Level)
}

// Expectation: A file that is not TOML should fail the decode.
func Test_Manager_Read_Malformed_Error(t *testing.T) {
	m := &Manager{}

	_, err := m.Read(strings.NewReader("show_mb = = 1\n"))
	require.Error(t, err)
}

// Expectation: Validation should pass sane settings and reject nonsensical ones.
func Test_Settings_Validate_Table(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"stock settings", func(s *Settings) {}, false},
		{"files first and best compression", func(s *Settings) { s.Order = OrderFilesFirst; s.Level = 9 }, false},
		{"negative show threshold", func(s *Settings) { s.ShowMB = -1 }, false},
		{"show threshold not a number", func(s *Settings) { s.ShowMB = math.NaN() }, true},
		{"infinite file ceiling", func(s *Settings) { s.FileMaxMB = math.Inf(1) }, true},
		{"unknown order", func(s *Settings) { s.Order = "biggest-first" }, true},
		{"zero item limit", func(s *Settings) { s.MaxItems = 0 }, true},
		{"negative item limit", func(s *Settings) { s.MaxItems = -5 }, true},
		{"compression level too high", func(s *Settings) { s.Level = 10 }, true},
		{"compression level too low", func(s *Settings) { s.Level = -2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := DefaultSettings
			tt.mutate(&s)

			err := s.Validate()

			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// Expectation: The megabyte settings should convert to bytes, with non-positive ceilings disabling the limit.
func Test_Settings_Conversions_Success(t *testing.T) {
	s := DefaultSettings

	require.Equal(t, int64(1_000_000), s.ShowBytes())
	require.Equal(t, int64(-1), s.FileMaxBytes())
	require.Equal(t, pathtree.OrderDirsFirst, s.TreeOrder())

	s.ShowMB = 0.5
	s.FileMaxMB = 2
	s.Order = OrderFilesFirst

	require.Equal(t, int64(500_000), s.ShowBytes())
	require.Equal(t, int64(2_000_000), s.FileMaxBytes())
	require.Equal(t, pathtree.OrderFilesFirst, s.TreeOrder())

	s.ShowMB = -1
	s.FileMaxMB = 0

	require.Equal(t, int64(-1_000_000), s.ShowBytes())
	require.Equal(t, int64(-1), s.FileMaxBytes())
}

// Expectation: A missing settings file should yield a private copy of the stock settings.
func Test_Load_MissingFile_Success(t *testing.T) {
	fs := afero.NewMemMapFs()

	got, err := Load(fs, "/home/user/.config/backtree.toml")
	require.NoError(t, err)
	require.Equal(t, DefaultSettings, *got)

	got.MaxItems = 1
	require.Equal(t, 1000, DefaultSettings.MaxItems)
}

// Expectation: An existing settings file should override the stock settings.
func Test_Load_ExistingFile_Success(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/user/.config/backtree.toml"

	content := "filemax_mb = 512.0\norder = \"files-first\"\nexclude = [\"**/*.tmp\"]\n"
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))

	got, err := Load(fs, path)
	require.NoError(t, err)

	require.Equal(t, 512.0, got.FileMaxMB)
	require.Equal(t, OrderFilesFirst, got.Order)
	require.Equal(t, []string{"**/*.tmp"}, got.Exclude)
	require.Equal(t, DefaultSettings.ShowMB, got.ShowMB)
}

// Expectation: A settings file with a nonsensical value should fail the load.
func Test_Load_InvalidValue_Error(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/user/.config/backtree.toml"

	require.NoError(t, afero.WriteFile(fs, path, []byte("show_mb = nan\n"), 0o644))

	_, err := Load(fs, path)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

// Expectation: A settings file that is not TOML should fail the load with its path.
func Test_Load_Malformed_Error(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/user/.config/backtree.toml"

	require.NoError(t, afero.WriteFile(fs, path, []byte("order = [broken\n"), 0o644))

	_, err := Load(fs, path)
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
}

// Expectation: The environment variable should take precedence over the home directory default.
func Test_Path_EnvOverride_Success(t *testing.T) {
	t.Setenv(EnvVar, "/etc/backtree/custom.toml")

	got, err := Path()
	require.NoError(t, err)
	require.Equal(t, "/etc/backtree/custom.toml", got)

	t.Setenv(EnvVar, "")

	got, err = Path()
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(got, "/.config/backtree.toml"))
}
