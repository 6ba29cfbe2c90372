package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/nodegate/errors"
)

func TestNew_PreservesOrder(t *testing.T) {
	reg, err := New(
		Binding{Name: "translation", BaseURL: "http://translate.local"},
		Binding{Name: "voice", BaseURL: "http://voice.local/"},
		Binding{Name: "documents", BaseURL: "http://docs.local"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"translation", "voice", "documents"}, reg.Names())
	assert.Equal(t, 3, reg.Len())
}

func TestGet(t *testing.T) {
	reg := MustNew(
		Binding{Name: "echo", BaseURL: "http://localhost:8080/"},
		Binding{Name: "Echo", BaseURL: "http://localhost:8081"},
	)

	url, ok := reg.Get("echo")
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:8080/", url, "URL is returned as stored")

	url, ok = reg.Get("Echo")
	assert.True(t, ok, "names are case-sensitive")
	assert.Equal(t, "http://localhost:8081", url)

	_, ok = reg.Get("ECHO")
	assert.False(t, ok)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		bindings []Binding
		target   error
	}{
		{
			name:     "empty name",
			bindings: []Binding{{Name: "", BaseURL: "http://x"}},
			target:   errors.ErrInvalidConfig,
		},
		{
			name:     "empty url",
			bindings: []Binding{{Name: "a", BaseURL: "  "}},
			target:   errors.ErrInvalidConfig,
		},
		{
			name: "duplicate",
			bindings: []Binding{
				{Name: "a", BaseURL: "http://x"},
				{Name: "a", BaseURL: "http://y"},
			},
			target: errors.ErrDuplicateModule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := New(tt.bindings...)
			require.Error(t, err)
			assert.Nil(t, reg)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(Binding{Name: "a"})
	})
}

func TestNames_DefensiveCopy(t *testing.T) {
	reg := MustNew(Binding{Name: "a", BaseURL: "http://a"}, Binding{Name: "b", BaseURL: "http://b"})

	names := reg.Names()
	names[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestBindings(t *testing.T) {
	in := []Binding{
		{Name: "video", BaseURL: "http://video"},
		{Name: "media", BaseURL: "http://media/"},
	}
	reg := MustNew(in...)
	assert.Equal(t, in, reg.Bindings())
}

func TestEmptyAndNil(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	assert.Empty(t, reg.Names())
	assert.Equal(t, 0, reg.Len())

	var nilReg *Registry
	_, ok := nilReg.Get("a")
	assert.False(t, ok)
	assert.Empty(t, nilReg.Names())
	assert.Empty(t, nilReg.Bindings())
}

func TestConcurrentReads(t *testing.T) {
	reg := MustNew(Binding{Name: "a", BaseURL: "http://a"}, Binding{Name: "b", BaseURL: "http://b"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = reg.Get("a")
				_ = reg.Names()
			}
		}()
	}
	wg.Wait()
}
