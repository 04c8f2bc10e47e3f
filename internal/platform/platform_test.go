package platform

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestHomePath(t *testing.T) {
	tests := []struct {
		platform Platform
		want     string
	}{
		{Linux, "linux/android-studio"},
		{Windows, "windows/android-studio"},
		{Darwin, "darwin/android-studio/Contents"},
	}

	for _, tt := range tests {
		t.Run(tt.platform.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, HomePath(tt.platform))
		})
	}
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "", Suffix(All))
	assert.Equal(t, "_linux", Suffix(string(Linux)))
	assert.Equal(t, "_windows", Suffix(string(Windows)))
	assert.Equal(t, "_darwin", Suffix(string(Darwin)))
}

func TestParse(t *testing.T) {
	p, err := Parse("darwin")
	require.NoError(t, err)
	assert.Equal(t, Darwin, p)

	_, err = Parse("mac")
	assert.Error(t, err)
}

func TestRealDetector_Detect(t *testing.T) {
	info, err := NewDetector().Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	if runtime.GOOS != "linux" {
		assert.Empty(t, info.Distro)
	}
}

func TestStaticDetector(t *testing.T) {
	want := &Info{OS: "darwin", Arch: "arm64"}
	got, err := StaticDetector{Info: want}.Detect(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)

	_, err = StaticDetector{Err: errors.New("boom")}.Detect(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestInfo_SDKPlatform(t *testing.T) {
	p, ok := (&Info{OS: "windows"}).SDKPlatform()
	assert.True(t, ok)
	assert.Equal(t, Windows, p)

	_, ok = (&Info{OS: "freebsd"}).SDKPlatform()
	assert.False(t, ok)
}

func evalLua(t *testing.T, L *lua.LState, code string) lua.LValue {
	t.Helper()
	require.NoError(t, L.DoString(code))
	v := L.Get(-1)
	L.Pop(1)
	return v
}

func TestInjectPlatformTable_Linux(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{OS: "linux", Arch: "amd64", Distro: "ubuntu", Family: "debian", Version: "22.04"}
	require.NoError(t, InjectPlatformTable(L, info))

	tests := []struct {
		name string
		code string
		want lua.LValue
	}{
		{"os", `return platform.os`, lua.LString("linux")},
		{"arch", `return platform.arch`, lua.LString("amd64")},
		{"is_linux", `return platform.is_linux`, lua.LTrue},
		{"is_macos", `return platform.is_macos`, lua.LFalse},
		{"is_windows", `return platform.is_windows`, lua.LFalse},
		{"sdk", `return platform.sdk`, lua.LString("linux")},
		{"distro.id", `return platform.distro.id`, lua.LString("ubuntu")},
		{"distro.version", `return platform.distro.version`, lua.LString("22.04")},
		{"when_true", `return platform.when(true, "x")`, lua.LString("x")},
		{"when_false", `return platform.when(false, "x")`, lua.LNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalLua(t, L, tt.code)
			assert.Equal(t, tt.want.Type(), got.Type())
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestInjectPlatformTable_MacOSHasNoDistro(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	require.NoError(t, InjectPlatformTable(L, &Info{OS: "darwin", Arch: "arm64"}))

	assert.Equal(t, lua.LTNil, evalLua(t, L, `return platform.distro`).Type())
	assert.Equal(t, "darwin", evalLua(t, L, `return platform.sdk`).String())
}

func TestPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	require.NoError(t, InjectPlatformTable(L, &Info{OS: "linux", Arch: "amd64"}))

	err := L.DoString(`platform.os = "windows"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")

	assert.Equal(t, "linux", evalLua(t, L, `return platform.os`).String())
}
