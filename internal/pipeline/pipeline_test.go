package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lcr/internal/config"
	"github.com/standardbeagle/lcr/internal/syntax"
)

const source = `using System;

class C
{
    System.String a = System.String.Empty;
    System.Int32 b = System.Int32.MaxValue;
}
`

func newRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := New(config.Default(t.TempDir()))
	require.NoError(t, err)
	return r
}

func TestReduceAll(t *testing.T) {
	out, err := newRunner(t).Reduce(context.Background(), "c.cs", []byte(source), Selection{All: true})
	require.NoError(t, err)

	assert.True(t, out.Changed)
	assert.Equal(t, source, out.Original)
	assert.Contains(t, out.Reduced, "string a = string.Empty;")
	assert.Contains(t, out.Reduced, "int b = int.MaxValue;")
	assert.NotContains(t, out.Reduced, "using System;")
	assert.Equal(t, 1, out.Stats.RemovedImports)
}

func TestReduceLines(t *testing.T) {
	out, err := newRunner(t).Reduce(context.Background(), "c.cs", []byte(source), Selection{
		Lines: []LineRange{{First: 6, Last: 6}},
	})
	require.NoError(t, err)

	assert.Contains(t, out.Reduced, "System.String a = System.String.Empty;", "line 5 is outside the selection")
	assert.Contains(t, out.Reduced, "int b = int.MaxValue;")
	assert.Contains(t, out.Reduced, "using System;")
}

func TestReduceNothingSelected(t *testing.T) {
	out, err := newRunner(t).Reduce(context.Background(), "c.cs", []byte(source), Selection{})
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, source, out.Reduced)
}

func TestReduceRejectsSpansOutsideText(t *testing.T) {
	_, err := newRunner(t).Reduce(context.Background(), "c.cs", []byte(source), Selection{
		Spans: []syntax.Span{{Start: 10, Length: 1000}},
	})
	assert.ErrorContains(t, err, "outside c.cs")
}

func TestReduceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.cs")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o640))
	r := newRunner(t)

	out, err := r.ReduceFile(context.Background(), path, Selection{All: true}, false)
	require.NoError(t, err)
	assert.False(t, out.Written)
	data, _ := os.ReadFile(path)
	assert.Equal(t, source, string(data))

	out, err = r.ReduceFile(context.Background(), path, Selection{All: true}, true)
	require.NoError(t, err)
	assert.True(t, out.Written)
	data, _ = os.ReadFile(path)
	assert.Equal(t, out.Reduced, string(data))
	info, _ := os.Stat(path)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	_, err = r.ReduceFile(context.Background(), filepath.Join(t.TempDir(), "missing.cs"), Selection{All: true}, false)
	assert.Error(t, err)
}

func TestNewRejectsUnknownReducers(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Reducers = []string{"nmae"}
	_, err := New(cfg)
	assert.ErrorContains(t, err, `did you mean "name"`)
}

func TestParseSpan(t *testing.T) {
	tests := []struct {
		in      string
		want    syntax.Span
		wantErr bool
	}{
		{in: "10:5", want: syntax.Span{Start: 10, Length: 5}},
		{in: "10-15", want: syntax.Span{Start: 10, Length: 5}},
		{in: " 0 : 0 ", want: syntax.Span{}},
		{in: "15-10", wantErr: true},
		{in: "-1:3", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpan(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLines(t *testing.T) {
	lr, err := ParseLines("3-7")
	require.NoError(t, err)
	assert.Equal(t, LineRange{First: 3, Last: 7}, lr)

	lr, err = ParseLines("4")
	require.NoError(t, err)
	assert.Equal(t, LineRange{First: 4, Last: 4}, lr)

	for _, bad := range []string{"0", "7-3", "x-2", ""} {
		_, err := ParseLines(bad)
		assert.Error(t, err, bad)
	}
}

func TestLineSpan(t *testing.T) {
	text := "one\ntwo\nthree"
	tests := []struct {
		lr   LineRange
		want string
	}{
		{LineRange{1, 1}, "one\n"},
		{LineRange{2, 2}, "two\n"},
		{LineRange{2, 3}, "two\nthree"},
		{LineRange{1, 3}, text},
	}
	for _, tt := range tests {
		s, err := LineSpan(text, tt.lr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, text[s.Start:s.End()])
	}

	_, err := LineSpan(text, LineRange{4, 4})
	assert.Error(t, err)
	_, err = LineSpan(text, LineRange{2, 5})
	assert.Error(t, err)
}

func TestReduceRejectsBinaryInput(t *testing.T) {
	r := newRunner(t)
	_, err := r.Reduce(context.Background(), "c.cs", []byte("MZ\x90\x00\x03\x00"), Selection{All: true})
	assert.ErrorContains(t, err, "PE executable")

	r.Validator = nil
	_, err = r.Reduce(context.Background(), "c.cs", []byte("class C { }"), Selection{All: true})
	assert.NoError(t, err)
}
