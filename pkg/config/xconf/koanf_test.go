package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverConfig 测试用配置结构体
type serverConfig struct {
	Name  string   `koanf:"name"`
	Port  int      `koanf:"port"`
	Debug bool     `koanf:"debug"`
	Tags  []string `koanf:"tags"`
}

const testYAML = `
server:
  name: id-service
  port: 8080
  debug: false
  tags:
    - a
    - b
`

const testJSON = `{"server": {"name": "id-service", "port": 8080, "debug": false}}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// stubEnv 替换环境变量来源，测试结束后恢复。
func stubEnv(t *testing.T, vars ...string) {
	t.Helper()
	old := environ
	environ = func() []string { return vars }
	t.Cleanup(func() { environ = old })
}

// =============================================================================
// New / NewFromBytes
// =============================================================================

func TestNew_YAML(t *testing.T) {
	cfg, err := New(writeFile(t, "config.yaml", testYAML))
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, cfg.Format())
	assert.NotEmpty(t, cfg.Path())

	var sc serverConfig
	require.NoError(t, cfg.Unmarshal("server", &sc))
	assert.Equal(t, serverConfig{Name: "id-service", Port: 8080, Tags: []string{"a", "b"}}, sc)
}

func TestNew_YML(t *testing.T) {
	cfg, err := New(writeFile(t, "config.yml", testYAML))
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, cfg.Format())
}

func TestNew_JSON(t *testing.T) {
	cfg, err := New(writeFile(t, "config.json", testJSON))
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, cfg.Format())
	assert.Equal(t, "id-service", cfg.Client().String("server.name"))
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{"empty path", func(*testing.T) string { return "" }, ErrEmptyPath},
		{"not exist", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") }, ErrLoadFailed},
		{"unsupported", func(t *testing.T) string { return writeFile(t, "config.toml", "a = 1") }, ErrUnsupportedFormat},
		{"invalid yaml", func(t *testing.T) string { return writeFile(t, "config.yaml", "a: [1, 2") }, ErrParseFailed},
		{"invalid json", func(t *testing.T) string { return writeFile(t, "config.json", "{") }, ErrParseFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.path(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_WithOptions(t *testing.T) {
	type tagged struct {
		Name string `json:"name"`
	}
	cfg, err := New(writeFile(t, "config.yaml", testYAML), WithDelim("/"), WithTag("json"), nil)
	require.NoError(t, err)
	assert.Equal(t, "id-service", cfg.Client().String("server/name"))

	var out tagged
	require.NoError(t, cfg.Unmarshal("server", &out))
	assert.Equal(t, "id-service", out.Name)
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testJSON), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path())
	assert.Equal(t, 8080, cfg.Client().Int("server.port"))

	_, err = NewFromBytes([]byte(testYAML), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewFromBytes([]byte("{"), FormatJSON)
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNewFromBytes_EmptyData(t *testing.T) {
	cfg, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)

	var sc serverConfig
	require.NoError(t, cfg.Unmarshal("server", &sc))
	assert.Equal(t, serverConfig{}, sc)
}

// =============================================================================
// Unmarshal
// =============================================================================

func TestUnmarshal_Error(t *testing.T) {
	cfg, err := NewFromBytes([]byte("server:\n  port: not-a-number\n"), FormatYAML)
	require.NoError(t, err)

	var sc serverConfig
	assert.ErrorIs(t, cfg.Unmarshal("server", &sc), ErrUnmarshalFailed)
}

// =============================================================================
// Reload
// =============================================================================

func TestReload(t *testing.T) {
	path := writeFile(t, "config.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, 9090, cfg.Client().Int("server.port"))
}

func TestReload_KeepsOldConfigOnError(t *testing.T) {
	path := writeFile(t, "config.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server: [1"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, 8080, cfg.Client().Int("server.port"))

	require.NoError(t, os.Remove(path))
	assert.ErrorIs(t, cfg.Reload(), ErrLoadFailed)
	assert.Equal(t, 8080, cfg.Client().Int("server.port"))
}

func TestReload_FromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testYAML), FormatYAML)
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Reload(), ErrNotReloadable)
}

func TestReload_Concurrent(t *testing.T) {
	path := writeFile(t, "config.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cfg.Reload())
		}()
		go func() {
			defer wg.Done()
			var sc serverConfig
			assert.NoError(t, cfg.Unmarshal("server", &sc))
			assert.Equal(t, 8080, sc.Port)
		}()
	}
	wg.Wait()
}

// =============================================================================
// 环境变量覆盖
// =============================================================================

func TestEnvOverlay(t *testing.T) {
	stubEnv(t,
		"APP_PORT=9999",
		"APP_DEBUG=true",
		"APP_NAME=",    // 空值视为未设置
		"OTHER_PORT=1", // 前缀不匹配
		"APP_=x",       // 去掉前缀后为空
	)

	cfg, err := New(writeFile(t, "config.yaml", testYAML), WithEnvOverlay("APP_", "server"))
	require.NoError(t, err)

	var sc serverConfig
	require.NoError(t, cfg.Unmarshal("server", &sc))
	assert.Equal(t, 9999, sc.Port)
	assert.True(t, sc.Debug)
	assert.Equal(t, "id-service", sc.Name)
}

func TestEnvOverlay_RootPathAndAlias(t *testing.T) {
	stubEnv(t, "APP_LISTEN_PORT=7000", "APP_MODE=fast")

	cfg, err := NewFromEnv(WithEnvOverlay("APP_", ""), WithEnvAlias("LISTEN_PORT", "port"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Client().Int("port"))
	assert.Equal(t, "fast", cfg.Client().String("mode"))
	assert.False(t, cfg.Client().Exists("listen_port"))
}

func TestEnvOverlay_ReappliedOnReload(t *testing.T) {
	stubEnv(t, "APP_PORT=9999")

	path := writeFile(t, "config.yaml", testYAML)
	cfg, err := New(path, WithEnvOverlay("APP_", "server"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 1234\n  name: renamed\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, 9999, cfg.Client().Int("server.port"))
	assert.Equal(t, "renamed", cfg.Client().String("server.name"))
}

func TestEnvOverlay_Disabled(t *testing.T) {
	stubEnv(t, "APP_PORT=9999")

	cfg, err := NewFromBytes([]byte(testYAML), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Client().Int("server.port"))
}

// =============================================================================
// 内部辅助函数
// =============================================================================

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.yaml", FormatYAML, false},
		{"a.YML", FormatYAML, false},
		{"a.json", FormatJSON, false},
		{"a.toml", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := detectFormat(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvKey(t *testing.T) {
	opts := defaultOptions()
	WithEnvOverlay("P_", "root")(opts)
	WithEnvAlias("SHORT", "long_name")(opts)

	assert.Equal(t, "root.blind_secret", envKey("BLIND_SECRET", opts))
	assert.Equal(t, "root.long_name", envKey("SHORT", opts))
	assert.Empty(t, envKey("", opts))
}
