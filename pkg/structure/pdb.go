package structure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/philipparndt/gomol/pkg/geometry"
)

// ParsePDB parses a PDB file. MODEL/ENDMDL blocks become separate models;
// a file without MODEL records yields a single model.
func ParsePDB(reader io.Reader, name string) (*Structure, error) {
	scanner := bufio.NewScanner(reader)
	s := NewStructure(name)

	var current []Atom
	inModel := false
	lineNo := 0

	flush := func() {
		if len(current) > 0 {
			s.Models = append(s.Models, Model{Atoms: current})
		}
		current = nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		record := strings.TrimSpace(field(line, 0, 6))

		switch record {
		case "HEADER":
			if id := strings.TrimSpace(field(line, 62, 66)); id != "" {
				s.Name = id
			}

		case "MODEL":
			flush()
			inModel = true

		case "ENDMDL":
			flush()
			inModel = false

		case "ATOM", "HETATM":
			atom, err := parsePDBAtom(line, record == "HETATM")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = append(current, atom)

		case "END":
			if !inModel {
				flush()
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading PDB: %w", err)
	}
	flush()

	if len(s.Models) == 0 {
		return nil, fmt.Errorf("no atom records found")
	}
	return s, nil
}

func parsePDBAtom(line string, hetero bool) (Atom, error) {
	x, errX := strconv.ParseFloat(strings.TrimSpace(field(line, 30, 38)), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(field(line, 38, 46)), 64)
	z, errZ := strconv.ParseFloat(strings.TrimSpace(field(line, 46, 54)), 64)
	if errX != nil || errY != nil || errZ != nil {
		return Atom{}, fmt.Errorf("invalid coordinates")
	}

	serial, _ := strconv.Atoi(strings.TrimSpace(field(line, 6, 11)))
	resSeq, _ := strconv.Atoi(strings.TrimSpace(field(line, 22, 26)))
	name := strings.TrimSpace(field(line, 12, 16))

	element := strings.TrimSpace(field(line, 76, 78))
	if element == "" {
		element = elementFromName(name)
	}

	return Atom{
		Serial:   serial,
		Name:     name,
		ResName:  strings.TrimSpace(field(line, 17, 20)),
		Chain:    strings.TrimSpace(field(line, 21, 22)),
		ResSeq:   resSeq,
		Element:  strings.ToUpper(element),
		Hetero:   hetero,
		Position: geometry.NewVector3(x, y, z),
	}, nil
}

// field returns the [start, end) column range of a fixed-width line,
// tolerating short lines.
func field(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}

func elementFromName(name string) string {
	trimmed := strings.TrimLeft(name, "0123456789")
	if trimmed == "" {
		return ""
	}
	return trimmed[:1]
}
