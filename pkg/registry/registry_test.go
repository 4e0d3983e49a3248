package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittohttp/internal/protocol/http1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedHandler lets tests tell handlers apart after Resolve.
type namedHandler string

func (namedHandler) Handle(context.Context, *http1.Request, *http1.ResponseWriter) error {
	return nil
}

func get(path string) *http1.Request {
	return http1.NewRequest(http1.MethodGet, path, nil, nil, nil)
}

func TestNew(t *testing.T) {
	assert.Panics(t, func() { New(nil) })

	reg := New(namedHandler("fallback"))
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, namedHandler("fallback"), reg.Fallback())
}

func TestResolve(t *testing.T) {
	fallback := namedHandler("fallback")
	x := namedHandler("x")

	reg := New(fallback)
	require.NoError(t, reg.Register(http1.MethodGet, "/x", x))

	t.Run("ExactMatch", func(t *testing.T) {
		assert.Equal(t, x, reg.Resolve(get("/x")))
	})

	t.Run("OtherMethod", func(t *testing.T) {
		req := http1.NewRequest(http1.MethodPost, "/x", nil, nil, []byte{})
		assert.Equal(t, fallback, reg.Resolve(req))
	})

	t.Run("OtherPath", func(t *testing.T) {
		for _, path := range []string{"/", "/x/", "/X", "/xy", "/nope"} {
			assert.Equal(t, fallback, reg.Resolve(get(path)), path)
		}
	})

	t.Run("NilRequest", func(t *testing.T) {
		assert.Equal(t, fallback, reg.Resolve(nil))
	})

	t.Run("QueryDoesNotAffectMatch", func(t *testing.T) {
		req := http1.NewRequest(http1.MethodGet, "/x", map[string]string{"a": "b"}, nil, nil)
		assert.Equal(t, x, reg.Resolve(req))
	})
}

func TestRegister(t *testing.T) {
	t.Run("Overwrites", func(t *testing.T) {
		reg := New(namedHandler("fallback"))
		require.NoError(t, reg.Register(http1.MethodGet, "/x", namedHandler("first")))
		require.NoError(t, reg.Register(http1.MethodGet, "/x", namedHandler("second")))

		assert.Equal(t, 1, reg.Len())
		assert.Equal(t, namedHandler("second"), reg.Resolve(get("/x")))
	})

	t.Run("Rejects", func(t *testing.T) {
		reg := New(namedHandler("fallback"))

		assert.Error(t, reg.Register(http1.MethodGet, "/x", nil))
		assert.Error(t, reg.Register("PUT", "/x", namedHandler("h")))
		assert.Error(t, reg.Register(http1.MethodGet, "x", namedHandler("h")))
		assert.Error(t, reg.Register(http1.MethodGet, "/x?a=b", namedHandler("h")))
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("HandlerFunc", func(t *testing.T) {
		reg := New(namedHandler("fallback"))

		called := false
		require.NoError(t, reg.Register(http1.MethodGet, "/f", HandlerFunc(
			func(context.Context, *http1.Request, *http1.ResponseWriter) error {
				called = true
				return nil
			})))

		require.NoError(t, reg.Resolve(get("/f")).Handle(context.Background(), get("/f"), nil))
		assert.True(t, called)
	})
}

func TestUnregister(t *testing.T) {
	reg := New(namedHandler("fallback"))
	require.NoError(t, reg.Register(http1.MethodGet, "/x", namedHandler("x")))

	assert.True(t, reg.Unregister(http1.MethodGet, "/x"))
	assert.False(t, reg.Unregister(http1.MethodGet, "/x"))
	assert.Equal(t, namedHandler("fallback"), reg.Resolve(get("/x")))
}

func TestRoutes(t *testing.T) {
	reg := New(namedHandler("fallback"))
	require.NoError(t, reg.Register(http1.MethodPost, "/b", namedHandler("1")))
	require.NoError(t, reg.Register(http1.MethodGet, "/b", namedHandler("2")))
	require.NoError(t, reg.Register(http1.MethodGet, "/a", namedHandler("3")))

	assert.Equal(t, []Route{
		{Method: "GET", Path: "/a"},
		{Method: "GET", Path: "/b"},
		{Method: "POST", Path: "/b"},
	}, reg.Routes())
	assert.Equal(t, "POST /b", reg.Routes()[2].String())
}

func TestConcurrentAccess(t *testing.T) {
	reg := New(namedHandler("fallback"))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 100 {
				path := fmt.Sprintf("/p%d-%d", i, j)
				assert.NoError(t, reg.Register(http1.MethodGet, path, namedHandler(path)))
			}
		}()
		go func() {
			defer wg.Done()
			for j := range 100 {
				assert.NotNil(t, reg.Resolve(get(fmt.Sprintf("/p%d-%d", i, j))))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, reg.Len())
}
