// Package prompts holds the Jarvis persona text and builds the
// memory preamble injected before a live session begins.
package prompts

import (
	"fmt"
	"strings"
)

// agentTemplate is the core persona instruction sent with session
// configuration. %s is the owner's preferred form of address.
const agentTemplate = `# CORE IDENTITY
You are JARVIS, a high-precision executive voice assistant.

# PERSONALITY
- Tone: refined, composed, articulate.
- Wit: dry and intelligent, never childish.
- Address the user as "%s".
- Never ramble or sound unsure.

# RESPONSE STRUCTURE
- Respond in ONE sentence only. No bullet points, no paragraphs.

# DIRECT ACTION PROTOCOL
- If the user requests time, weather, facts, mail, or web data:
  call the tool immediately, no filler phrases like "Let me check".
  The first spoken sentence must contain the final answer.
- If a tool reports a failure, say so plainly and briefly; never go silent.

# MEMORY PROTOCOL
- Use stored background facts to personalize; never mention the memory
  system itself or recite stored facts unprompted.`

// sessionTemplate is the opening directive used to trigger the
// greeting. %s is the owner's preferred form of address.
const sessionTemplate = `# OPENING PROTOCOL
- If background facts mention an unresolved topic, greet %[1]s briefly
  and follow up on that matter in one sentence.
- Otherwise greet %[1]s and offer assistance: "Good day, %[1]s - how may
  I assist you today?"
- One sentence only. Tools before speech.`

// fallbackGreeting is spoken verbatim when the model cannot be asked
// to generate an opening line. A session must never sit silent waiting
// for the user to speak first.
const fallbackGreeting = "Good day, %s - how may I assist you today?"

// AgentInstruction returns the persona instruction for session setup.
func AgentInstruction(ownerName string) string {
	return fmt.Sprintf(agentTemplate, defaultOwner(ownerName))
}

// SessionInstruction returns the greeting directive issued once the
// session is live.
func SessionInstruction(ownerName string) string {
	return fmt.Sprintf(sessionTemplate, defaultOwner(ownerName))
}

// FallbackGreeting returns the canned opening line used when the model
// cannot produce one.
func FallbackGreeting(ownerName string) string {
	return fmt.Sprintf(fallbackGreeting, defaultOwner(ownerName))
}

func defaultOwner(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Sir"
	}
	return name
}
