// Package fingerprint implements the multi-criterion fingerprint matcher
// (§4.5): a pure function over log lines, an optional set of decoded
// instruction names, and a program id, producing a {tag, confidence} match
// or none. Like the scorer, this is a closed-form predicate with no I/O —
// no pack library addresses this concern, so it stays on the standard
// library (DESIGN.md records the justification).
package fingerprint

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/model"
)

// Logic is the conjunction/disjunction rule a Fingerprint evaluates under.
type Logic string

const (
	LogicAND   Logic = "AND"
	LogicOR    Logic = "OR"
	LogicFUZZY Logic = "FUZZY"
)

// Fingerprint is a read-only, configuration-time predicate (§3).
type Fingerprint struct {
	Tag                  model.Tag
	RequiredInstructions []string // lowercased
	RequiredPrograms     []string // lowercased, address or alias substring
	Logic                Logic
	MinScore             float64
	Confidence           float64
}

// Match is the matcher's output when a fingerprint passes; nil means no
// classification (§3 TagResult "Null is a valid return").
type Match struct {
	Tag        model.Tag
	Confidence float64
}

// Matcher holds the ordered, configuration-time fingerprint list.
type Matcher struct {
	fingerprints []Fingerprint
}

// New builds a Matcher, preserving configuration order (ties are broken by
// order — §4.5, §8 invariant 8). Every fingerprint must carry a non-empty
// RequiredPrograms set (§3 invariant); a fingerprint violating that is a
// ConfigInvalid error at construction time, not a silent no-match at
// evaluation time.
func New(fingerprints []Fingerprint) (*Matcher, error) {
	for i, fp := range fingerprints {
		if len(fp.RequiredPrograms) == 0 {
			return nil, errkind.New(errkind.ConfigInvalid, fmt.Sprintf("fingerprint[%d] %q: required_programs must be non-empty", i, fp.Tag))
		}
	}
	out := make([]Fingerprint, len(fingerprints))
	copy(out, fingerprints)
	return &Matcher{fingerprints: out}, nil
}

var instructionNameRe = regexp.MustCompile(`(?i)instruction:\s*([A-Za-z0-9_]+)`)

// InstructionNames extracts instruction names logged as
// "Program log: Instruction: <Name>" lines, lowercased.
func InstructionNames(lines []string) map[string]bool {
	out := make(map[string]bool)
	for _, line := range lines {
		for _, m := range instructionNameRe.FindAllStringSubmatch(line, -1) {
			out[strings.ToLower(m[1])] = true
		}
	}
	return out
}

// Match evaluates every configured fingerprint in order and returns the
// first one that passes (§4.5 "First fingerprint that passes wins").
// programID is the source program's address or alias as observed by
// ingest; instrNames is the set produced by InstructionNames (callers may
// pass a nil/empty map — the substring fallback still applies).
func (m *Matcher) Match(lines []string, programID string, instrNames map[string]bool) *Match {
	joined := strings.ToLower(strings.Join(lines, "\n"))
	programIDLower := strings.ToLower(programID)

	for _, fp := range m.fingerprints {
		if evalOne(fp, joined, programIDLower, instrNames) {
			return &Match{Tag: fp.Tag, Confidence: fp.Confidence}
		}
	}
	return nil
}

func evalOne(fp Fingerprint, joinedLower, programIDLower string, instrNames map[string]bool) bool {
	programMatched := false
	for _, p := range fp.RequiredPrograms {
		pl := strings.ToLower(p)
		if pl == programIDLower || (pl != "" && strings.Contains(joinedLower, pl)) {
			programMatched = true
			break
		}
	}

	matchCount := 0
	allPresent := true
	for _, ri := range fp.RequiredInstructions {
		ril := strings.ToLower(ri)
		present := instrNames[ril] || strings.Contains(joinedLower, ril)
		if present {
			matchCount++
		} else {
			allPresent = false
		}
	}

	compositeScore := float64(matchCount)
	if programMatched {
		compositeScore++
	}
	if !programMatched || compositeScore < fp.MinScore {
		return false
	}

	switch fp.Logic {
	case LogicAND:
		return allPresent && programMatched
	case LogicFUZZY:
		need := int(math.Ceil(float64(len(fp.RequiredInstructions)) / 2))
		return matchCount >= need && programMatched
	default: // OR
		return matchCount > 0 || programMatched
	}
}
