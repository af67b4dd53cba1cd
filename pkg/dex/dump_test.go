package dex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDump = `package: com.example.app
version: 18.04.37
classes:
  - type: Lcom/example/Player;
    access_flags: public final
    super_class: Ljava/lang/Object;
    methods:
      - name: isAdShowing
        return_type: Z
        access_flags: 0x1
        parameters: [Ljava/lang/String;, I]
        instructions:
          - op: const-string
            string: ad_break
          - op: invoke-virtual
          - op: move-result
          - op: return
      - name: onAd
        return_type: V
        access_flags: public abstract
`

const jsonDump = `{
  "classes": [
    {
      "type": "Lcom/example/Util;",
      "methods": [
        {
          "name": "empty",
          "return_type": "V",
          "access_flags": 9,
          "instructions": []
        },
        {
          "name": "load",
          "return_type": "Ljava/lang/String;",
          "access_flags": "public static",
          "instructions": [
            {"op": "const-string/jumbo", "string": "x"},
            {"op": "return-object"}
          ]
        }
      ]
    }
  ]
}`

func TestParseDumpYAML(t *testing.T) {
	d, err := ParseDump([]byte(yamlDump), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", d.Package)
	assert.Equal(t, "18.04.37", d.Version)

	classes := d.ClassDefs()
	require.Len(t, classes, 1)
	c := classes[0]
	assert.Equal(t, "Lcom/example/Player;", c.Type())
	assert.Equal(t, AccPublic|AccFinal, c.AccessFlags())
	assert.Equal(t, "Ljava/lang/Object;", c.SuperClass())

	methods := c.Methods()
	require.Len(t, methods, 2)

	m := methods[0]
	assert.Equal(t, "Lcom/example/Player;", m.DefiningClass())
	assert.Equal(t, AccPublic, m.AccessFlags())
	assert.Equal(t, []string{"Ljava/lang/String;", "I"}, m.ParameterTypes())
	assert.Equal(t, "Lcom/example/Player;->isAdShowing(Ljava/lang/String;I)Z", MethodReference(m))
	require.NotNil(t, m.Implementation())
	assert.Equal(t, []Opcode{OpConstString, OpInvokeVirtual, OpMoveResult, OpReturn}, Opcodes(m.Implementation()))
	assert.Equal(t, []string{"ad_break"}, StringLiterals(m.Implementation()))

	abstract := methods[1]
	assert.Equal(t, AccPublic|AccAbstract, abstract.AccessFlags())
	assert.Nil(t, abstract.Implementation())
	assert.Nil(t, Opcodes(abstract.Implementation()))
}

func TestParseDumpJSON(t *testing.T) {
	d, err := ParseDump([]byte(jsonDump), "json")
	require.NoError(t, err)

	classes := d.ClassDefs()
	require.Len(t, classes, 1)
	methods := classes[0].Methods()
	require.Len(t, methods, 2)

	// an empty instruction list is still an implementation
	require.NotNil(t, methods[0].Implementation())
	assert.Empty(t, methods[0].Implementation().Instructions())
	assert.Equal(t, AccPublic|AccStatic, methods[0].AccessFlags())

	assert.Equal(t, AccPublic|AccStatic, methods[1].AccessFlags())
	assert.Equal(t, []string{"x"}, StringLiterals(methods[1].Implementation()))
}

func TestLoadDump(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "classes.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDump), 0o644))
	d, err := LoadDump(path)
	require.NoError(t, err)
	assert.Len(t, d.Classes, 1)

	_, err = LoadDump(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "classes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	_, err = LoadDump(bad)
	assert.True(t, errors.Is(err, ErrUnsupportedDump))
}

func TestParseDumpUnknownOpcode(t *testing.T) {
	_, err := ParseDump([]byte(`{"classes":[{"type":"LA;","methods":[{"name":"a","return_type":"V","instructions":[{"op":"bogus"}]}]}]}`), "json")
	assert.Error(t, err)
}
