// Package maxsat implements the MAXSAT demonstration problem: a DIMACS
// CNF instance loader and a bit-vector solution counting satisfied
// clauses. Grounded on original_source/demo-maxsat/maxsat_inst.C
// (instance format) and maxsat_sol.C (objective/construct/localimp/
// shaking).
package maxsat

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Instance holds a CNF formula: variables indexed 1..NVars, clauses as
// signed literals (negative means negated variable).
type Instance struct {
	NVars   int
	Clauses [][]int
}

// Load parses a DIMACS CNF file, skipping leading "c ..." comment lines
// and the "p cnf nVars nClauses" header, matching MAXSATInst::load.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("maxsat: opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	inst := &Instance{}
	nClauses := -1
	headerSeen := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "c") {
			continue
		}
		if strings.HasPrefix(line, "p") {
			fields := strings.Fields(line)
			if len(fields) < 4 || fields[1] != "cnf" {
				return nil, fmt.Errorf("maxsat: invalid header %q in %s", line, path)
			}
			nVars, err1 := strconv.Atoi(fields[2])
			nc, err2 := strconv.Atoi(fields[3])
			if err1 != nil || err2 != nil || nVars < 1 || nc < 1 {
				return nil, fmt.Errorf("maxsat: invalid header %q in %s", line, path)
			}
			inst.NVars = nVars
			nClauses = nc
			headerSeen = true
			continue
		}
		if !headerSeen {
			return nil, fmt.Errorf("maxsat: no `p` header found in %s", path)
		}
		fields := strings.Fields(line)
		clause := make([]int, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("maxsat: parsing literal %q in %s: %w", f, path, err)
			}
			if v == 0 {
				break
			}
			if v < -inst.NVars || v > inst.NVars {
				return nil, fmt.Errorf("maxsat: literal %d out of range in %s", v, path)
			}
			clause = append(clause, v)
		}
		if len(clause) > 0 {
			inst.Clauses = append(inst.Clauses, clause)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("maxsat: reading %s: %w", path, err)
	}
	if !headerSeen {
		return nil, fmt.Errorf("maxsat: no `p` header found in %s", path)
	}
	if len(inst.Clauses) != nClauses {
		return nil, fmt.Errorf("maxsat: expected %d clauses, got %d in %s", nClauses, len(inst.Clauses), path)
	}
	return inst, nil
}

func (inst *Instance) String() string {
	return fmt.Sprintf("MAXSAT instance: vars=%d clauses=%d", inst.NVars, len(inst.Clauses))
}
