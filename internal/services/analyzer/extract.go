package analyzer

import "strings"

// fenceOpenings are tried in order; the first match wins. Tagged fences
// come first so a reply that mixes prose and code yields just the code.
var fenceOpenings = []string{
	"```go\n",
	"```go\r\n",
	"```\n",
	"```\r\n",
}

// extractCode pulls the script out of a model reply. Fenced blocks are
// unwrapped; a reply with no fence is taken verbatim.
func extractCode(reply string) string {
	content := strings.TrimSpace(reply)
	for _, opening := range fenceOpenings {
		start := strings.Index(content, opening)
		if start < 0 {
			continue
		}
		block := content[start+len(opening):]
		if end := strings.Index(block, "```"); end >= 0 {
			block = block[:end]
		}
		return strings.TrimSpace(block)
	}
	return content
}
