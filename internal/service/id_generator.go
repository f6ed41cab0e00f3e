package service

import (
	"fmt"
	"strings"

	"custodial-ledger/internal/core/domain"

	"github.com/google/uuid"
	"go.jetify.com/typeid/v2"
)

// MockIDGenerator produces "<prefix>_mock_<32 hex>" identifiers for mock mode.
type MockIDGenerator struct{}

// NewMockIDGenerator creates a MockIDGenerator.
func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

// Generate returns a new random identifier carrying prefix.
func (g *MockIDGenerator) Generate(prefix domain.IDPrefix) string {
	return fmt.Sprintf("%s_mock_%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// TypeIDGenerator produces K-sortable TypeIDs ("payout_01h2xcejqtf2nbrexx3vqjhp41").
type TypeIDGenerator struct{}

// NewTypeIDGenerator creates a TypeIDGenerator.
func NewTypeIDGenerator() *TypeIDGenerator {
	return &TypeIDGenerator{}
}

// Generate returns a new TypeID for prefix. It panics on an invalid prefix,
// which is a programming error since prefixes are package constants.
func (g *TypeIDGenerator) Generate(prefix domain.IDPrefix) string {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}
