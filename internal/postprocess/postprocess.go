// Package postprocess removes common LLM artifacts from gate responses before
// they reach the strict response parser, and tidies rewritten block bodies.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean prepares a raw model response for parsing:
//  1. Thinking / reasoning block removal
//  2. Preamble removal ("Here is my review:")
//  3. Unwrapping a response fenced as a whole code block
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removePreamble(text)
	text = removeCodeFence(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because RE2 has no backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: preambles ---

// preambleRe matches a one-line introduction ending with a colon, only when
// it is followed by the response header. Anything else is left for the
// parser to reject.
var preambleRe = regexp.MustCompile(
	`(?i)^(?:(?:certainly|sure|of course)[,.!]?\s+)?here(?:'s| is)(?: my| the)? (?:review|assessment|evaluation|analysis|response|result)[^\n]*:\s*\n`,
)

func removePreamble(text string) string {
	loc := preambleRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	rest := strings.TrimSpace(text[loc[1]:])
	if !strings.HasPrefix(rest, "@@") && !strings.HasPrefix(rest, "```") {
		return text
	}
	return rest
}

// --- Phase 3: whole-response code fence ---

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*[ \t]*\n(.*?)\n?```$")

func removeCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// Unquote strips a matching pair of outer quotes when a rewritten block is
// wrapped in them as a whole. Supported pairs:
//
//	"…"  '…'  «…»  “…”  ‘…’
func Unquote(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		inner := string(runes[1 : n-1])
		// "a" and "b" is not wrapped as a whole.
		if strings.ContainsRune(inner, first) || strings.ContainsRune(inner, last) {
			return text
		}
		return strings.TrimSpace(inner)
	}
	return text
}
