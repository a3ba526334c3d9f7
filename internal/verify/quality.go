package verify

import "strings"

// scanQualityViolations applies basicQualityCheck's pattern-matching
// rules (internal/verification.basicQualityCheck) to a file's content,
// narrowed to the markers a completed, non-mock implementation should
// never contain.
func scanQualityViolations(content string) ([]QualityViolation, []string) {
	var violations []QualityViolation
	var evidence []string
	lower := strings.ToLower(content)

	if strings.Contains(lower, "todo") || strings.Contains(lower, "fixme") {
		violations = append(violations, ViolationPlaceholder)
		evidence = append(evidence, "contains a TODO/FIXME marker")
	}
	if strings.Contains(lower, "placeholder") || strings.Contains(lower, "stub implementation") {
		violations = append(violations, ViolationPlaceholder)
		evidence = append(evidence, "contains a placeholder/stub marker")
	}
	if strings.Contains(content, `panic("not implemented")`) || strings.Contains(content, `panic("TODO")`) {
		violations = append(violations, ViolationIncomplete)
		evidence = append(evidence, `contains panic("not implemented")`)
	}
	if hasEmptyFunctionBody(content) {
		violations = append(violations, ViolationEmptyFunc)
		evidence = append(evidence, "contains an empty function body")
	}
	if strings.Contains(content, "func Mock") || strings.Contains(content, "mock implementation") {
		violations = append(violations, ViolationMockCode)
		evidence = append(evidence, "contains a mock implementation outside test files")
	}

	return violations, evidence
}

// hasEmptyFunctionBody looks for a function signature immediately
// followed by an empty body ("{}" or "{ }"), a cheap textual proxy for
// the EmptyFunction violation that doesn't require a full Go parse.
func hasEmptyFunctionBody(content string) bool {
	idx := 0
	for {
		rel := strings.Index(content[idx:], "func ")
		if rel < 0 {
			return false
		}
		start := idx + rel
		open := strings.IndexByte(content[start:], '{')
		if open < 0 {
			return false
		}
		bodyStart := start + open + 1
		rest := strings.TrimLeft(content[bodyStart:], " \t\n\r")
		if strings.HasPrefix(rest, "}") {
			return true
		}
		idx = bodyStart
	}
}
