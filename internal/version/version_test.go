package version

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func builtins() Variables {
	return Builtins(today, "", "main")
}

func TestResolve_firstNonEmptyCandidate(t *testing.T) {
	tests := []struct {
		name string
		spec string
		vars Variables
		env  Environment
		want string
	}{
		{"literal", "1.2.3", nil, nil, "1.2.3"},
		{"second candidate", "%custom || 2.0.0", nil, nil, "2.0.0"},
		{"expression", "${{ github.event.inputs.release }} || 1.0.0", nil, Environment{"github.event.inputs.release": "3.1.4"}, "3.1.4"},
		{"date fallback", "%custom || ${{input}} || %date", builtins(), Environment{"input": ""}, "2026-10-19"},
		{"empty candidates skipped", " ||   || 1.2.3- ||", nil, nil, "1.2.3"},
		{"leading separator", "|| %date-pre1\n|| ", builtins(), nil, "2026-10-19-pre1"},
		{"brace variable", "1.2.3-%{channel.2}", Variables{"channel.2": "patch1"}, nil, "1.2.3-patch1"},
		{"variable expanding to version", "%release", Variables{"release": "v2.1.0"}, nil, "v2.1.0"},
		{"defined tag kept", "1.2.3-%custom", Variables{"custom": "beta"}, nil, "1.2.3-beta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.spec, tt.vars, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolve_suffixTagElision(t *testing.T) {
	got, err := Resolve("1.2.3-%custom", Variables{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", got.Raw)
	assert.Equal(t, KindSemantic, got.Kind)
	assert.Empty(t, got.Label)
	assert.Nil(t, got.Pre)

	got, err = Resolve("1.2.3-%custom.fc39", Variables{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.fc39", got.Raw)
	assert.Equal(t, []string{"fc39"}, got.Append)

	got, err = Resolve("%date-%custom", builtins(), nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", got.Raw)
}

func TestResolve_undefinedCoreEmptiesCandidate(t *testing.T) {
	got, err := Resolve("1.%minor.0 || 4.0.0", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "4.0.0", got.String())
}

func TestResolve_emptyResolution(t *testing.T) {
	_, err := Resolve("%a || ${{ b }}", Variables{"a": ""}, Environment{"b": ""})
	var empty *EmptyResolutionError
	require.True(t, errors.As(err, &empty), "got %v", err)
	assert.Equal(t, "%a || ${{ b }}", empty.Input)
}

func TestParse_errors(t *testing.T) {
	for _, spec := range []string{
		"",
		"   ",
		"||",
		" || || ",
		"${{ input",
		"${{ }}",
		"1.2.3 }}",
		"%{channel",
		"%{}",
		"1.2.3-%",
		"%1",
	} {
		t.Run(spec, func(t *testing.T) {
			_, err := Parse(spec)
			var perr *ParseError
			assert.True(t, errors.As(err, &perr), "Parse(%q) = %v, want ParseError", spec, err)
		})
	}
}

func TestParse_fragments(t *testing.T) {
	spec, err := Parse("%date-nightly || ${{ inputs.release }}")
	require.NoError(t, err)
	require.Len(t, spec.Candidates, 2)
	assert.Equal(t, []Fragment{{Kind: Variable, Text: "date"}, {Kind: Literal, Text: "-nightly"}}, spec.Candidates[0].Fragments)
	assert.Equal(t, []Fragment{{Kind: Expression, Text: "inputs.release"}}, spec.Candidates[1].Fragments)
}

func TestClassify(t *testing.T) {
	d := &Date{Year: 2026, Month: 10, Day: 19}

	t.Run("semantic", func(t *testing.T) {
		r, err := Classify("v1.2.3-pre1", d)
		require.NoError(t, err)
		assert.Equal(t, KindSemantic, r.Kind)
		assert.Equal(t, "v", r.Prefix)
		assert.Equal(t, uint64(3), r.Patch)
		assert.Equal(t, "pre", r.Label)
		require.NotNil(t, r.Pre)
		assert.Equal(t, uint64(1), *r.Pre)
	})

	t.Run("two component version", func(t *testing.T) {
		r, err := Classify("1.2", d)
		require.NoError(t, err)
		assert.Equal(t, "1.2.0", r.String())
	})

	t.Run("date with tag", func(t *testing.T) {
		r, err := Classify("2023-1-1-nightly", d)
		require.NoError(t, err)
		assert.Equal(t, KindDate, r.Kind)
		assert.Equal(t, Date{Year: 2023, Month: 1, Day: 1}, *r.Date)
		assert.Equal(t, "nightly", r.Label)
	})

	t.Run("bare name is dated", func(t *testing.T) {
		r, err := Classify("nightly", d)
		require.NoError(t, err)
		assert.Equal(t, KindDate, r.Kind)
		assert.Equal(t, *d, *r.Date)
		assert.Equal(t, "nightly", r.Label)
		assert.Nil(t, r.Pre)
		assert.Equal(t, "2026-10-19-nightly", r.String())
	})

	t.Run("numeric suffix is an ordinal", func(t *testing.T) {
		r, err := Classify("nightly1", d)
		require.NoError(t, err)
		assert.Equal(t, "nightly", r.Label)
		require.NotNil(t, r.Pre)
		assert.Equal(t, uint64(1), *r.Pre)
	})

	t.Run("dashed suffix is a literal tag", func(t *testing.T) {
		r, err := Classify("nightly-1", d)
		require.NoError(t, err)
		assert.Equal(t, "nightly-1", r.Label)
		assert.Nil(t, r.Pre)
	})

	t.Run("name without date", func(t *testing.T) {
		r, err := Classify("nightly2", nil)
		require.NoError(t, err)
		assert.Equal(t, KindName, r.Kind)
		assert.Nil(t, r.Date)
		assert.Equal(t, "nightly2", r.String())
	})

	for _, bad := range []string{"1.x", "2023-02-30", "1999-01-01", "-", "1.2.3 beta"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := Classify(bad, d)
			var perr *ParseError
			assert.True(t, errors.As(err, &perr), "Classify(%q) = %v", bad, err)
		})
	}
}

func TestCompare_bareNameOrdering(t *testing.T) {
	resolve := func(s string) Resolved {
		r, err := Resolve(s, builtins(), nil)
		require.NoError(t, err)
		return r
	}

	nightly := resolve("nightly")
	nightly1 := resolve("nightly1")
	nightly2 := resolve("nightly2")
	release := resolve("%date")

	assert.Equal(t, nightly1.Date, nightly.Date)
	assert.Equal(t, -1, Compare(nightly1, nightly2))
	assert.Equal(t, 1, Compare(nightly1, nightly))
	assert.Equal(t, -1, Compare(nightly2, release))
	assert.Equal(t, 0, Compare(nightly1, resolve("nightly1")))
	assert.Equal(t, -1, Compare(resolve("1.2.3"), resolve("1.10.0")))
}

func TestFormat(t *testing.T) {
	vars := builtins().Merge(Variables{"fedora": "fc39"})

	tests := []struct {
		spec   string
		target Target
		want   string
	}{
		{"1.2.3-pre1", TargetPlain, "1.2.3-pre1"},
		{"1.2.3-pre1", TargetSemver, "1.2.3-pre.1"},
		{"1.2.3-pre1", TargetRPM, "1.2.3~pre1"},
		{"1.2.3-pre1.%fedora", TargetRPM, "1.2.3~pre1.fc39"},
		{"1.2.3-pre1.%fedora", TargetDeb, "1.2.3~pre1+fc39"},
		{"1.2.3_beta-rc_2", TargetDeb, ""},
		{"1.2.3-pre1", TargetMSI, "1.2.3001"},
		{"1.2.3", TargetMSI, "1.2.3999"},
		{"nightly1", TargetSemver, "2026.10.19-nightly.1"},
		{"nightly2", TargetMSI, "26.10.19002"},
		{"nightly", TargetRPM, "2026.10.19~nightly"},
	}

	for _, tt := range tests {
		t.Run(string(tt.target)+" "+tt.spec, func(t *testing.T) {
			r, err := Resolve(tt.spec, vars, nil)
			if tt.want == "" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, err := Format(r, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_doesNotMutate(t *testing.T) {
	r, err := Resolve("1.2.3-pre1", nil, nil)
	require.NoError(t, err)
	before := r.String()
	_, err = Format(r, TargetRPM)
	require.NoError(t, err)
	assert.Equal(t, before, r.String())
}

func TestFormat_errors(t *testing.T) {
	name, err := Resolve("nightly", nil, nil)
	require.NoError(t, err)
	_, err = Format(name, TargetRPM)
	assert.Error(t, err)

	big, err := Resolve("1.2.65", nil, nil)
	require.NoError(t, err)
	_, err = Format(big, TargetMSI)
	assert.Error(t, err)

	_, err = ParseTarget("zip")
	assert.Error(t, err)
}

func TestParseDefines(t *testing.T) {
	vars, err := ParseDefines([]string{"channel=beta", "tag=", "a.b=1"})
	require.NoError(t, err)
	assert.Equal(t, Variables{"channel": "beta", "tag": "", "a.b": "1"}, vars)

	merged := Builtins(today, "v1.0.0", "main").Merge(vars)
	_, ok := merged.Lookup("tag")
	assert.False(t, ok, "empty define should undefine tag")
	v, ok := merged.Lookup("channel")
	assert.True(t, ok)
	assert.Equal(t, "beta", v)

	_, err = ParseDefines([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseDefines([]string{"bad key=1"})
	assert.Error(t, err)
}
