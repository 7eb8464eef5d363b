package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := Load[item](ctx, s, "k")
	assert.ErrorIs(t, err, ErrMiss)

	want := []item{{Index: 1, Name: "B"}, {Index: 0, Name: "A"}}
	require.NoError(t, Save(ctx, s, "k", want))

	got, err := Load[item](ctx, s, "k")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	empty := []item{}
	require.NoError(t, Save(ctx, s, "empty", empty))
	got, err = Load[item](ctx, s, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestLoad_Corrupt(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "{oops"},
		{"wrong shape", `{"index":1}`},
		{"null", "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewMemory()
			require.NoError(t, s.Set(ctx, "k", []byte(tc.raw)))
			_, err := Load[item](ctx, s, "k")
			var de *DeserializeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "k", de.Key)
		})
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "a", []byte("[]")))
	require.NoError(t, s.Set(ctx, "b", []byte("[]")))

	require.NoError(t, Clear(ctx, s, "a", "b", "missing"))
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	buf := []byte("[1]")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[1] = '2'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(got))
}
