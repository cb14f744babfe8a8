package speech

import "strings"

// Terminators end a sentence when they are the last character of the buffer.
const Terminators = ".!?:;"

// Accumulator collects streamed chunks until the buffered text ends on a
// terminator. Chunks are never split, so the concatenation of everything
// flushed equals the concatenation of everything appended.
type Accumulator struct {
	b strings.Builder
}

func (a *Accumulator) Append(chunk string) { a.b.WriteString(chunk) }

// Complete reports whether the buffer currently ends on a terminator.
func (a *Accumulator) Complete() bool {
	s := a.b.String()
	return s != "" && strings.IndexByte(Terminators, s[len(s)-1]) >= 0
}

// Flush returns the buffered text and empties the buffer.
func (a *Accumulator) Flush() string {
	s := a.b.String()
	a.b.Reset()
	return s
}

func (a *Accumulator) Len() int { return a.b.Len() }
