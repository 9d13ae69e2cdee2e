package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elly-po/pumpsniper/internal/model"
)

func pumpfunCreateFixture() Fingerprint {
	return Fingerprint{
		Tag:                  model.TagPumpfunCreate,
		RequiredInstructions: []string{"create", "buy"},
		RequiredPrograms:     []string{"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"},
		Logic:                LogicAND,
		MinScore:             2,
		Confidence:           0.94,
	}
}

func TestNewRejectsEmptyPrograms(t *testing.T) {
	_, err := New([]Fingerprint{{Tag: "x", RequiredPrograms: nil, Logic: LogicOR}})
	require.Error(t, err)
}

func TestMatchPumpfunCreateAND(t *testing.T) {
	m, err := New([]Fingerprint{pumpfunCreateFixture()})
	require.NoError(t, err)

	lines := []string{
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
		"Program log: Instruction: Create",
		"Program log: Instruction: Buy",
	}
	got := m.Match(lines, "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", InstructionNames(lines))
	require.NotNil(t, got)
	assert.Equal(t, model.TagPumpfunCreate, got.Tag)
	assert.InDelta(t, 0.94, got.Confidence, 1e-9)
}

func TestMatchBoundaryBelowMinScoreFlipsToNoMatch(t *testing.T) {
	fp := pumpfunCreateFixture()
	fp.MinScore = 4 // unreachable: max composite score here is 3
	m, err := New([]Fingerprint{fp})
	require.NoError(t, err)

	lines := []string{
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
		"Program log: Instruction: Create",
		"Program log: Instruction: Buy",
	}
	got := m.Match(lines, "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", InstructionNames(lines))
	assert.Nil(t, got)
}

func TestMatchRequiresProgramMatched(t *testing.T) {
	fp := pumpfunCreateFixture()
	m, err := New([]Fingerprint{fp})
	require.NoError(t, err)

	lines := []string{"Program log: Instruction: Create", "Program log: Instruction: Buy"}
	got := m.Match(lines, "SomeOtherProgramID", InstructionNames(lines))
	assert.Nil(t, got)
}

func TestMatchFuzzyHalfThreshold(t *testing.T) {
	fp := Fingerprint{
		Tag:                  "fuzzy_tag",
		RequiredInstructions: []string{"a", "b", "c"},
		RequiredPrograms:     []string{"prog1"},
		Logic:                LogicFUZZY,
		MinScore:             1,
		Confidence:           0.5,
	}
	m, err := New([]Fingerprint{fp})
	require.NoError(t, err)

	lines := []string{"Program log: Instruction: A", "Program log: Instruction: B"}
	got := m.Match(lines, "prog1", InstructionNames(lines))
	require.NotNil(t, got)
}

func TestFingerprintPriorityEarlierWins(t *testing.T) {
	first := Fingerprint{
		Tag:                  "first",
		RequiredInstructions: []string{"create"},
		RequiredPrograms:     []string{"prog1"},
		Logic:                LogicOR,
		MinScore:             1,
		Confidence:           0.9,
	}
	second := Fingerprint{
		Tag:                  "second",
		RequiredInstructions: []string{"create"},
		RequiredPrograms:     []string{"prog1"},
		Logic:                LogicOR,
		MinScore:             1,
		Confidence:           0.8,
	}
	m, err := New([]Fingerprint{first, second})
	require.NoError(t, err)

	lines := []string{"Program log: Instruction: Create"}
	got := m.Match(lines, "prog1", InstructionNames(lines))
	require.NotNil(t, got)
	assert.Equal(t, model.Tag("first"), got.Tag)
}
