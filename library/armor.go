package library

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

// ASCII armor plate markers.
const (
	armorBegin = "-----BEGIN ALUVM LIB-----"
	armorEnd   = "-----END ALUVM LIB-----"
	armorCols  = 64
)

// Armor renders the library as ASCII armor: the "ALUVM LIB" plate with
// Id, ISA-Extensions and per-dependency headers followed by the base64
// body of the wire serialization.
func (l *Lib) Armor() string {
	var body bytes.Buffer
	if err := l.Serialize(&body); err != nil {
		panic(fmt.Sprintf("library: serializing for armor: %v", err))
	}

	var b strings.Builder
	b.WriteString(armorBegin)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Id: %s\n", l.ID())
	fmt.Fprintf(&b, "ISA-Extensions: %s\n", strings.Join(l.ISAE, " "))
	for _, dep := range l.Libs {
		fmt.Fprintf(&b, "Dependency: %s\n", dep)
	}
	b.WriteByte('\n')

	encoded := base64.StdEncoding.EncodeToString(body.Bytes())
	for len(encoded) > armorCols {
		b.WriteString(encoded[:armorCols])
		b.WriteByte('\n')
		encoded = encoded[armorCols:]
	}
	b.WriteString(encoded)
	b.WriteByte('\n')
	b.WriteString(armorEnd)
	b.WriteByte('\n')
	return b.String()
}

// Disarmor parses ASCII armor back into a library, verifying the Id
// header against the recomputed identity.
func Disarmor(armor string) (*Lib, error) {
	lines := strings.Split(strings.TrimSpace(armor), "\n")
	if len(lines) < 3 || strings.TrimSpace(lines[0]) != armorBegin {
		return nil, fmt.Errorf("missing %q plate", armorBegin)
	}
	if strings.TrimSpace(lines[len(lines)-1]) != armorEnd {
		return nil, fmt.Errorf("missing %q plate", armorEnd)
	}
	lines = lines[1 : len(lines)-1]

	declaredID := ""
	bodyStart := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			bodyStart = i + 1
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok {
			if strings.TrimSpace(name) == "Id" {
				declaredID = strings.TrimSpace(value)
			}
			continue
		}
		return nil, fmt.Errorf("malformed armor header %q", line)
	}

	body, err := base64.StdEncoding.DecodeString(strings.Join(lines[bodyStart:], ""))
	if err != nil {
		return nil, fmt.Errorf("malformed armor body: %w", err)
	}
	lib, err := Deserialize(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if declaredID != "" && declaredID != lib.ID().String() {
		return nil, fmt.Errorf("armor id %s does not match library id %s", declaredID, lib.ID())
	}
	return lib, nil
}
