package signature

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const yamlBundle = `target: com.example.app
version:
  min: 18.0.0
  max: 18.99.0
signatures:
  - name: isAdShowing
    description: Reports whether an ad is playing
    return_type: Z
    access_flags: public final
    parameters: []
    strings: [ad_break, ad_break]
    opcodes: [const-string, "*", ~, return]
    fuzzy_tolerance: 1
  - name: anyMethod
`

const jsonBundle = `{
  "signatures": [
    {
      "name": "load",
      "return_type": "Ljava/lang/String",
      "access_flags": "0x9",
      "parameters": ["I"],
      "opcodes": ["const-string", null, "?", "return-object"]
    }
  ]
}`

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestParseFileYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ads.yaml", yamlBundle)

	b, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Path)
	assert.Equal(t, "com.example.app", b.Target)
	assert.Equal(t, Version{Min: "18.0.0", Max: "18.99.0"}, b.Version)
	require.Len(t, b.Signatures, 2)

	s := b.Signatures[0]
	require.NotNil(t, s.ReturnType)
	assert.Equal(t, "Z", *s.ReturnType)
	require.NotNil(t, s.AccessFlags)
	assert.Equal(t, dex.AccPublic|dex.AccFinal, *s.AccessFlags)
	// present but empty is a constraint
	assert.NotNil(t, s.Parameters)
	assert.Empty(t, s.Parameters)
	assert.Equal(t, []string{"ad_break", "ad_break"}, s.Strings)
	assert.Equal(t, Pattern{Op(dex.OpConstString), Any(), Any(), Op(dex.OpReturn)}, s.Opcodes)
	assert.Equal(t, 1, s.FuzzyTolerance)
	assert.NoError(t, s.Validate())

	loose := b.Signatures[1]
	assert.True(t, loose.Unconstrained())
	assert.Nil(t, loose.Parameters)
	assert.Nil(t, loose.Opcodes)
}

func TestParseFileJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "util.json", jsonBundle)

	b, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, b.Signatures, 1)

	s := b.Signatures[0]
	assert.Equal(t, dex.AccPublic|dex.AccStatic, *s.AccessFlags)
	assert.Equal(t, []string{"I"}, s.Parameters)
	assert.Nil(t, s.Strings)
	assert.Equal(t, Pattern{Op(dex.OpConstString), Any(), Any(), Op(dex.OpReturnObject)}, s.Opcodes)
	assert.Equal(t, 2, s.Opcodes.Concrete())
}

func TestParseFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseFile(writeFile(t, dir, "bad.json", `{"signatures":[{"name":"x","opcodes":["bogus"]}]}`))
	assert.True(t, errors.Is(err, dex.ErrUnknownOpcode))

	_, err = ParseFile(writeFile(t, dir, "bad.yml", "signatures: [{name: x, access_flags: publik}]"))
	assert.Error(t, err)

	_, err = ParseFile(writeFile(t, dir, "notes.txt", "hi"))
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", yamlBundle)
	writeFile(t, dir, "nested/b.json", jsonBundle)
	writeFile(t, dir, "README.md", "# not a bundle")

	bundles, err := Parse(dir)
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	// filepath.Walk visits in lexical order
	assert.Equal(t, "com.example.app", bundles[0].Target)
	assert.Equal(t, "load", bundles[1].Signatures[0].Name)

	_, err = Parse(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		min     string
		max     string
		want    bool
		wantErr bool
	}{
		{name: "unbounded", version: "1.0.0", want: true},
		{name: "within", version: "18.4.37", min: "18.0", max: "18.99", want: true},
		{name: "at min", version: "18.0.0", min: "18.0.0", want: true},
		{name: "at max", version: "18.99", max: "18.99.0", want: true},
		{name: "below", version: "17.9", min: "18.0", want: false},
		{name: "above", version: "19.1", max: "18.99", want: false},
		{name: "bad app version", version: "latest", wantErr: true},
		{name: "bad bound", version: "1.0", min: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckVersion(tt.version, Bundle{Version: Version{Min: tt.min, Max: tt.max}})
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CheckVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	a := &MethodSignature{Name: "a"}
	b := &MethodSignature{Name: "b"}
	c := &MethodSignature{Name: "c"}
	bundles := []Bundle{
		{Target: "com.example.app", Version: Version{Min: "2.0"}, Signatures: []*MethodSignature{a}},
		{Target: "com.other.app", Signatures: []*MethodSignature{b}},
		{Signatures: []*MethodSignature{c}},
	}

	sigs, err := Select(bundles, "com.example.app", "2.1")
	require.NoError(t, err)
	assert.Equal(t, []*MethodSignature{a, c}, sigs)

	sigs, err = Select(bundles, "com.example.app", "1.0")
	require.NoError(t, err)
	assert.Equal(t, []*MethodSignature{c}, sigs)

	sigs, err = Select(bundles, "", "")
	require.NoError(t, err)
	assert.Equal(t, []*MethodSignature{a, b, c}, sigs)

	_, err = Select(bundles, "", "not-a-version")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	empty := ""
	tests := []struct {
		name    string
		sig     MethodSignature
		wantErr bool
	}{
		{name: "ok", sig: MethodSignature{Name: "a", Opcodes: NewPattern(dex.OpNop, dex.OpReturnVoid), FuzzyTolerance: 1}},
		{name: "unconstrained", sig: MethodSignature{Name: "a"}},
		{name: "missing name", sig: MethodSignature{}, wantErr: true},
		{name: "negative tolerance", sig: MethodSignature{Name: "a", Opcodes: NewPattern(dex.OpNop), FuzzyTolerance: -1}, wantErr: true},
		{name: "empty pattern", sig: MethodSignature{Name: "a", Opcodes: Pattern{}}, wantErr: true},
		{name: "only wildcards", sig: MethodSignature{Name: "a", Opcodes: Pattern{Any(), Any()}}, wantErr: true},
		{name: "tolerance covers pattern", sig: MethodSignature{Name: "a", Opcodes: Pattern{Op(dex.OpNop), Any()}, FuzzyTolerance: 1}, wantErr: true},
		{name: "tolerance without pattern", sig: MethodSignature{Name: "a", FuzzyTolerance: 2}, wantErr: true},
		{name: "empty return type", sig: MethodSignature{Name: "a", ReturnType: &empty}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("Validate() error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestPatternNullKeepsAbsent(t *testing.T) {
	var s MethodSignature
	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","opcodes":null,"strings":null}`), &s))
	assert.Nil(t, s.Opcodes)
	assert.Nil(t, s.Strings)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","opcodes":[]}`), &s))
	assert.NotNil(t, s.Opcodes)
	assert.Len(t, s.Opcodes, 0)
}

func TestJSONSchema(t *testing.T) {
	schema := JSONSchema()
	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fuzzy_tolerance")
	assert.Contains(t, string(data), "opcode mnemonic")
	assert.Equal(t, []string{"signatures"}, schema.Required)
}

func TestBundleValidate(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		wantErr bool
	}{
		{name: "open", version: Version{}},
		{name: "ordered", version: Version{Min: "1.0", Max: "2.0"}},
		{name: "equal", version: Version{Min: "2.0", Max: "2.0.0"}},
		{name: "reversed", version: Version{Min: "3.0", Max: "2.0"}, wantErr: true},
		{name: "bad min", version: Version{Min: "new"}, wantErr: true},
		{name: "bad max", version: Version{Max: "old"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bundle{Version: tt.version}
			if err := b.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMethodSignatureString(t *testing.T) {
	ret := "Z"
	flags := dex.AccPublic
	s := &MethodSignature{
		Name:           "isAdShowing",
		ReturnType:     &ret,
		AccessFlags:    &flags,
		Parameters:     []string{"I", "J"},
		Strings:        []string{"a"},
		Opcodes:        NewPattern(dex.OpNop, dex.OpReturn),
		FuzzyTolerance: 1,
	}
	assert.Equal(t, "isAdShowing{returns=Z flags=0x1 params=(IJ) strings=1 opcodes=2~1}", s.String())
}

func strptr(s string) *string { return &s }

func TestMarshalYAMLKeepsUnsetConstraints(t *testing.T) {
	tests := []struct {
		name string
		sig  MethodSignature
	}{
		{name: "unset", sig: MethodSignature{Name: "any"}},
		{name: "empty", sig: MethodSignature{Name: "none", Parameters: []string{}, Strings: []string{}, Opcodes: Pattern{}}},
		{name: "set", sig: MethodSignature{
			Name:           "full",
			ReturnType:     strptr("Z"),
			Parameters:     []string{"I"},
			Strings:        []string{"ad_break"},
			Opcodes:        Pattern{Op(dex.OpConstString), Any(), Op(dex.OpReturn)},
			FuzzyTolerance: 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := yaml.Marshal(&tt.sig)
			require.NoError(t, err)
			var got MethodSignature
			require.NoError(t, yaml.Unmarshal(data, &got))
			assert.Equal(t, tt.sig, got, string(data))
		})
	}

	data, err := yaml.Marshal(Pattern(nil))
	require.NoError(t, err)
	var p Pattern
	require.NoError(t, yaml.Unmarshal(data, &p))
	assert.Nil(t, p)
}
