package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

// DefaultJustificationLength is the target size of "justificacion" in characters.
const DefaultJustificationLength = 600

// PromptBuilder renders snapshots into advisor prompts.
type PromptBuilder struct {
	policy  Policy
	justLen int
}

func NewPromptBuilder(policy Policy, justLen int) *PromptBuilder {
	if justLen <= 0 {
		justLen = DefaultJustificationLength
	}
	return &PromptBuilder{policy: policy, justLen: justLen}
}

func (b *PromptBuilder) Policy() Policy { return b.policy }

func (b *PromptBuilder) JustificationLength() int { return b.justLen }

// Build serializes the snapshot after the policy block and the length note.
func (b *PromptBuilder) Build(snap models.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	var sb strings.Builder
	sb.Grow(len(b.policy.Text()) + len(data) + 128)
	sb.WriteString(b.policy.Text())
	fmt.Fprintf(&sb, "\nNota: la 'justificacion' debe tener aproximadamente %d caracteres (±25%%).\n", b.justLen)
	sb.WriteString("\nDatos disponibles (usar todos):\n")
	sb.Write(data)
	sb.WriteString("\n")
	return sb.String(), nil
}
