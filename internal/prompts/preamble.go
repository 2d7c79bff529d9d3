package prompts

import (
	"strings"

	"github.com/roymercy27-cyber/jarvis-agent/internal/memstore"
)

// preambleHeader introduces the fact block so the model treats it as
// background knowledge rather than something the user just said.
const preambleHeader = "# BACKGROUND FACTS\n" +
	"The following facts about the user were retrieved from long-term memory.\n" +
	"Treat them as established background knowledge, not as part of this conversation:\n"

// BuildPreamble renders stored memory records into a single
// system-role message and returns it together with the exact snapshot
// text that was injected. The snapshot is kept by the session so that
// injected facts are never re-saved as if the user had spoken them.
//
// Records are serialized in the order given (the store's relevance
// order); identical input always yields a byte-identical snapshot.
// Empty input yields two empty strings and no message is injected.
func BuildPreamble(records []memstore.Record) (preamble, snapshot string) {
	if len(records) == 0 {
		return "", ""
	}

	var b strings.Builder
	b.WriteString(preambleHeader)
	for _, r := range records {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(r.Memory))
		b.WriteString("\n")
	}

	s := b.String()
	return s, s
}
