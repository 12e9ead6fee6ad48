package structure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/philipparndt/gomol/pkg/geometry"
)

// ParseMMCIF parses the _atom_site loop of a text mmCIF file.
// Other categories are skipped.
func ParseMMCIF(reader io.Reader, name string) (*Structure, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	s := NewStructure(name)

	var columns []string
	inLoop := false
	inAtomSite := false
	models := make(map[int]int) // model number -> index in s.Models

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			if inAtomSite {
				inAtomSite = false
			}
			inLoop = false
			continue

		case strings.HasPrefix(line, "data_"):
			if id := strings.TrimPrefix(line, "data_"); id != "" {
				s.Name = id
			}
			continue

		case line == "loop_":
			inLoop = true
			inAtomSite = false
			columns = columns[:0]
			continue

		case strings.HasPrefix(line, "_"):
			if inLoop && strings.HasPrefix(line, "_atom_site.") {
				inAtomSite = true
				columns = append(columns, strings.TrimPrefix(strings.Fields(line)[0], "_atom_site."))
			} else {
				inAtomSite = false
			}
			continue
		}

		if !inAtomSite {
			continue
		}

		values := tokenizeCIF(line)
		if len(values) != len(columns) {
			return nil, fmt.Errorf("atom_site row has %d values, expected %d", len(values), len(columns))
		}
		row := make(map[string]string, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}

		atom, modelNum, err := atomFromRow(row)
		if err != nil {
			return nil, err
		}
		idx, ok := models[modelNum]
		if !ok {
			idx = len(s.Models)
			models[modelNum] = idx
			s.Models = append(s.Models, Model{})
		}
		s.Models[idx].Atoms = append(s.Models[idx].Atoms, atom)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading mmCIF: %w", err)
	}
	if len(s.Models) == 0 {
		return nil, fmt.Errorf("no atom_site records found")
	}
	return s, nil
}

func atomFromRow(row map[string]string) (Atom, int, error) {
	x, errX := strconv.ParseFloat(row["Cartn_x"], 64)
	y, errY := strconv.ParseFloat(row["Cartn_y"], 64)
	z, errZ := strconv.ParseFloat(row["Cartn_z"], 64)
	if errX != nil || errY != nil || errZ != nil {
		return Atom{}, 0, fmt.Errorf("invalid coordinates for atom %s", row["id"])
	}

	serial, _ := strconv.Atoi(row["id"])
	modelNum := 1
	if v, ok := row["pdbx_PDB_model_num"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			modelNum = n
		}
	}

	atom := Atom{
		Serial:   serial,
		Name:     firstOf(row, "auth_atom_id", "label_atom_id"),
		ResName:  firstOf(row, "auth_comp_id", "label_comp_id"),
		Chain:    firstOf(row, "auth_asym_id", "label_asym_id"),
		Element:  strings.ToUpper(row["type_symbol"]),
		Hetero:   row["group_PDB"] == "HETATM",
		Position: geometry.NewVector3(x, y, z),
	}
	atom.ResSeq, _ = strconv.Atoi(firstOf(row, "auth_seq_id", "label_seq_id"))
	if atom.Element == "" {
		atom.Element = elementFromName(atom.Name)
	}
	return atom, modelNum, nil
}

// firstOf returns the first key with a meaningful value; "?" and "." mark
// unknown and inapplicable values in CIF.
func firstOf(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != "?" && v != "." {
			return v
		}
	}
	return ""
}

// tokenizeCIF splits a data line into values, honouring single and double
// quoted tokens. A quote only closes when followed by whitespace or the end
// of the line, so names like O5' stay intact.
func tokenizeCIF(line string) []string {
	var tokens []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}

		if q := line[i]; q == '\'' || q == '"' {
			j := i + 1
			for j < len(line) {
				if line[j] == q && (j+1 == len(line) || line[j+1] == ' ' || line[j+1] == '\t') {
					break
				}
				j++
			}
			tokens = append(tokens, line[i+1:min(j, len(line))])
			i = j + 1
			continue
		}

		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		tokens = append(tokens, line[i:j])
		i = j
	}
	return tokens
}
