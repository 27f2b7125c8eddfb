package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
	Reset()
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
	Reset()
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultPort, cfg.Port)
	s.Equal(DefaultDBDriver, cfg.DBDriver)
	s.Equal(DefaultAIBaseURL, cfg.AIBaseURL)
	s.Equal(DefaultAIModel, cfg.AIModel)
	s.Equal(4, cfg.MaxConns)
	s.Equal(30, cfg.CacheTTLSeconds)
	s.Equal(30, cfg.AITimeoutSeconds)
	s.Empty(cfg.RedisAddr)
	s.Empty(cfg.PGDSN)
	s.Equal(CatalogPath(), cfg.CatalogPath)
}

// TestCatalogPathDefault tests that the catalog override path survives a
// settings load so the daemon picks up ~/.procrastino/catalog.yaml without
// explicit configuration.
func (s *ConfigSuite) TestCatalogPathDefault() {
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(CatalogPath(), cfg.CatalogPath)
	s.Contains(cfg.CatalogPath, "catalog.yaml")

	s.T().Setenv("PROCRASTINO_CATALOG_PATH", "/tmp/override.yaml")
	cfg, err = Load()
	s.Require().NoError(err)
	s.Equal("/tmp/override.yaml", cfg.CatalogPath)
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	dir := DataDir()
	s.Contains(dir, ".procrastino")
}

// TestDBPath tests database path.
func (s *ConfigSuite) TestDBPath() {
	path := DBPath()
	s.Contains(path, "procrastino.db")
}

// TestSettingsPath tests settings file path.
func (s *ConfigSuite) TestSettingsPath() {
	path := SettingsPath()
	s.Contains(path, "settings.json")
}

// TestEnsureDataDir tests data directory creation.
func (s *ConfigSuite) TestEnsureDataDir() {
	err := EnsureDataDir()
	s.NoError(err)

	dir := DataDir()
	info, err := os.Stat(dir)
	s.NoError(err)
	s.True(info.IsDir())
}

// TestEnsureSettings tests settings file creation.
func (s *ConfigSuite) TestEnsureSettings() {
	// First ensure data dir exists
	err := EnsureDataDir()
	s.NoError(err)

	// Ensure settings creates default file
	err = EnsureSettings()
	s.NoError(err)

	path := SettingsPath()
	info, err := os.Stat(path)
	s.NoError(err)
	s.False(info.IsDir())

	// Second call should not error (file exists)
	err = EnsureSettings()
	s.NoError(err)
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	err := EnsureAll()
	s.NoError(err)

	// Verify dir and settings exist
	_, err = os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name           string
		settingsJSON   string
		expectedPort   int
		expectedDriver string
		expectedModel  string
	}{
		{
			name:           "no settings file",
			settingsJSON:   "",
			expectedPort:   DefaultPort,
			expectedDriver: DefaultDBDriver,
			expectedModel:  DefaultAIModel,
		},
		{
			name:           "custom port",
			settingsJSON:   `{"PROCRASTINO_PORT": 38888}`,
			expectedPort:   38888,
			expectedDriver: DefaultDBDriver,
			expectedModel:  DefaultAIModel,
		},
		{
			name:           "custom driver",
			settingsJSON:   `{"PROCRASTINO_DB_DRIVER": "postgres"}`,
			expectedPort:   DefaultPort,
			expectedDriver: "postgres",
			expectedModel:  DefaultAIModel,
		},
		{
			name:           "multiple settings",
			settingsJSON:   `{"PROCRASTINO_PORT": 39999, "PROCRASTINO_DB_DRIVER": "postgres", "PROCRASTINO_AI_MODEL": "gpt-4o"}`,
			expectedPort:   39999,
			expectedDriver: "postgres",
			expectedModel:  "gpt-4o",
		},
		{
			name:           "invalid JSON returns defaults",
			settingsJSON:   `{invalid}`,
			expectedPort:   DefaultPort,
			expectedDriver: DefaultDBDriver,
			expectedModel:  DefaultAIModel,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			// Create fresh temp dir
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)

			// Create data dir
			err = os.MkdirAll(filepath.Join(tempDir, ".procrastino"), 0750)
			s.Require().NoError(err)

			if tt.settingsJSON != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".procrastino", "settings.json"),
					[]byte(tt.settingsJSON),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.NotNil(cfg)
			s.Equal(tt.expectedPort, cfg.Port)
			s.Equal(tt.expectedDriver, cfg.DBDriver)
			s.Equal(tt.expectedModel, cfg.AIModel)
		})
	}
}

// TestLoad_EnvOverridesFile tests that environment variables win over the
// settings file.
func (s *ConfigSuite) TestLoad_EnvOverridesFile() {
	err := os.MkdirAll(filepath.Join(s.tempDir, ".procrastino"), 0750)
	s.Require().NoError(err)

	err = os.WriteFile(
		filepath.Join(s.tempDir, ".procrastino", "settings.json"),
		[]byte(`{"PROCRASTINO_PORT": 4000, "PROCRASTINO_AI_MODEL": "from-file"}`),
		0600,
	)
	s.Require().NoError(err)

	os.Setenv("PROCRASTINO_AI_MODEL", "from-env")
	defer os.Unsetenv("PROCRASTINO_AI_MODEL")

	cfg, err := Load()
	s.NoError(err)
	s.Equal(4000, cfg.Port)
	s.Equal("from-env", cfg.AIModel)
}

// TestLoad_AllowedOrigins tests the comma-list parsing.
func (s *ConfigSuite) TestLoad_AllowedOrigins() {
	os.Setenv("PROCRASTINO_ALLOWED_ORIGINS", " http://localhost:5173 , https://app.example.com ")
	defer os.Unsetenv("PROCRASTINO_ALLOWED_ORIGINS")

	cfg, err := Load()
	s.NoError(err)
	s.Equal([]string{"http://localhost:5173", "https://app.example.com"}, cfg.AllowedOrigins)
}

// TestGet tests the global config getter.
func TestGet(t *testing.T) {
	// Save and restore HOME
	origHome := os.Getenv("HOME")
	tempDir, err := os.MkdirTemp("", "config-get-test-*")
	require.NoError(t, err)
	defer func() {
		os.Setenv("HOME", origHome)
		os.RemoveAll(tempDir)
		Reset()
	}()
	os.Setenv("HOME", tempDir)
	Reset()

	// Create data dir
	err = os.MkdirAll(filepath.Join(tempDir, ".procrastino"), 0750)
	require.NoError(t, err)

	// Get() should return a valid config, and cache it
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Greater(t, cfg.Port, 0)
	assert.NotEmpty(t, cfg.AIModel)
	assert.Same(t, cfg, Get())
}

// TestGetPort_WithEnv tests GetPort with environment variable.
func TestGetPort_WithEnv(t *testing.T) {
	// Save original env
	origEnv := os.Getenv("PROCRASTINO_PORT")
	defer func() {
		os.Setenv("PROCRASTINO_PORT", origEnv)
		Reset()
	}()
	Reset()

	// Test with valid port in env
	os.Setenv("PROCRASTINO_PORT", "45678")
	port := GetPort()
	assert.Equal(t, 45678, port)

	// Test with invalid port (should fall back to config)
	os.Setenv("PROCRASTINO_PORT", "not-a-number")
	port = GetPort()
	assert.Greater(t, port, 0)

	// Test with zero port (should fall back to config)
	os.Setenv("PROCRASTINO_PORT", "0")
	port = GetPort()
	assert.Greater(t, port, 0)

	// Test with no env (should use config)
	os.Unsetenv("PROCRASTINO_PORT")
	port = GetPort()
	assert.Greater(t, port, 0)
}

// TestSplitTrim tests the splitTrim helper function.
func TestSplitTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "single value",
			input:    "http://localhost:5173",
			expected: []string{"http://localhost:5173"},
		},
		{
			name:     "multiple values",
			input:    "a,b,c",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "values with spaces",
			input:    " a , b , c ",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "empty values filtered",
			input:    "a,,b,,",
			expected: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
