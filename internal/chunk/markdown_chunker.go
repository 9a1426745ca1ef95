package chunk

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Regex patterns for markdown parsing, carried over from the teacher's
// chunker: headers drive the pre-split, code blocks and tables are
// protected from mid-split.
var (
	headerPattern    = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	codeBlockPattern = regexp.MustCompile("(?s)```.*?```")
	tablePattern     = regexp.MustCompile(`(?m)^\|.+\|$(\n^\|[-:|]+\|$)?(\n^\|.+\|$)*`)
)

// cascadeSeparators is the descending list of split points spec §4.3
// names: blank line, single newline, sentence boundary, space. Character
// fallback is handled separately by hardSplit once this list is exhausted.
var cascadeSeparators = []string{"\n\n", "\n", ". ", " "}

// MarkdownChunker implements header-based, size-bounded markdown chunking.
type MarkdownChunker struct {
	targetChars  int
	overlapChars int
}

// NewMarkdownChunker creates a chunker with default sizing.
func NewMarkdownChunker() *MarkdownChunker {
	return NewMarkdownChunkerWithOptions(Options{})
}

// NewMarkdownChunkerWithOptions creates a chunker with custom sizing.
func NewMarkdownChunkerWithOptions(opts Options) *MarkdownChunker {
	target := opts.TargetChars
	if target <= 0 {
		target = DefaultTargetChars
	}
	overlap := opts.OverlapChars
	if overlap <= 0 {
		overlap = int(float64(target) * DefaultOverlapRatio)
	}
	return &MarkdownChunker{targetChars: target, overlapChars: overlap}
}

// fragment is an intermediate split of a section, before overlap is
// applied and before chunkIndex/ID assignment.
type fragment struct {
	content string
	headers map[string]string
}

// Chunk splits note.Markdown into size-bounded chunks, per spec §4.3.
// Empty markdown produces zero chunks.
func (c *MarkdownChunker) Chunk(note *Note) ([]*Chunk, error) {
	if strings.TrimSpace(note.Markdown) == "" {
		return nil, nil
	}

	noteID := NoteID(note.Title, note.CreationDate)

	sections := parseSections(note.Markdown)

	var fragments []fragment
	for _, sec := range sections {
		fragments = append(fragments, c.splitSection(sec)...)
	}
	fragments = absorbSmallFragments(fragments, c.targetChars)

	chunks := make([]*Chunk, 0, len(fragments))
	var prevTail string
	for i, frag := range fragments {
		content := frag.content
		if i > 0 && prevTail != "" {
			content = prevTail + content
		}

		chunk := &Chunk{
			ID:               computeChunkID(noteID, note.ModificationDate, i),
			NoteID:           noteID,
			ChunkIndex:       i,
			Content:          content,
			Title:            note.Title,
			ModificationDate: note.ModificationDate,
			Size:             note.Size,
			HeaderMetadata:   frag.headers,
		}
		if i == 0 {
			chunk.ContentHash = ContentHash(note.Title, note.Markdown)
		}
		chunks = append(chunks, chunk)

		prevTail = overlapTail(frag.content, c.overlapChars)
	}

	return chunks, nil
}

// section is a markdown section bounded by one heading, carrying the
// enclosing heading path as a level->title map.
type section struct {
	headers map[string]string
	content string
}

// parseSections splits content on heading lines, attaching the active
// heading at every level (1-6) above each section to that section.
func parseSections(content string) []*section {
	lines := strings.Split(content, "\n")
	headerStack := make([]string, 6)

	var sections []*section
	var current *section
	var b strings.Builder

	flush := func() {
		if current != nil {
			current.content = b.String()
			sections = append(sections, current)
			b.Reset()
		}
	}

	for _, line := range lines {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()

			level := len(m[1])
			title := strings.TrimSpace(m[2])
			headerStack[level-1] = title
			for i := level; i < 6; i++ {
				headerStack[i] = ""
			}

			headers := make(map[string]string)
			for i := 0; i < level; i++ {
				if headerStack[i] != "" {
					headers[fmt.Sprintf("h%d", i+1)] = headerStack[i]
				}
			}

			current = &section{headers: headers}
			b.WriteString(line)
			b.WriteString("\n")
			continue
		}

		if current == nil {
			current = &section{headers: map[string]string{}}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	flush()

	return sections
}

// splitSection recursively splits an oversized section using the
// separator cascade, bounded by targetChars*MaxChunkRatio.
func (c *MarkdownChunker) splitSection(sec *section) []fragment {
	text := strings.TrimRight(sec.content, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	limit := int(float64(c.targetChars) * MaxChunkRatio)
	if len([]rune(text)) <= limit {
		return []fragment{{content: text, headers: sec.headers}}
	}

	pieces := splitCascade(text, c.targetChars, cascadeSeparators)
	frags := make([]fragment, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		frags = append(frags, fragment{content: p, headers: sec.headers})
	}
	return frags
}

// splitCascade splits text so that every resulting piece is at most
// targetChars long, trying seps in order and recursing into any
// still-oversized piece with the remaining, narrower separators. It never
// splits inside a fenced code block or table; such a block longer than
// targetChars is emitted whole as its own piece.
func splitCascade(text string, targetChars int, seps []string) []string {
	if len([]rune(text)) <= targetChars {
		return []string{text}
	}
	if len(seps) == 0 {
		var out []string
		prev := 0
		for _, a := range append(atomicSpans(text), [2]int{len(text), len(text)}) {
			if a[0] < prev {
				continue
			}
			out = append(out, hardSplit(text[prev:a[0]], targetChars)...)
			if a[1] > a[0] {
				out = append(out, text[a[0]:a[1]])
			}
			prev = a[1]
		}
		return out
	}

	atoms := atomicSpans(text)
	parts := splitProtected(text, seps[0], atoms)
	if len(parts) <= 1 {
		return splitCascade(text, targetChars, seps[1:])
	}

	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, p := range parts {
		if len([]rune(p)) > targetChars {
			flush()
			out = append(out, splitCascade(p, targetChars, seps[1:])...)
			continue
		}

		joined := cur.Len() > 0
		candidateLen := cur.Len() + len(p)
		if joined {
			candidateLen += len(seps[0])
		}
		if joined && candidateLen > targetChars {
			flush()
			joined = false
		}
		if joined {
			cur.WriteString(seps[0])
		}
		cur.WriteString(p)
	}
	flush()

	return out
}

// hardSplit is the last-resort character-boundary split once no
// separator in the cascade applies (e.g. one giant unbroken token).
// splitCascade only calls it on text lying outside atomic spans.
func hardSplit(text string, limit int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// atomicSpans locates fenced code blocks and tables, the structural
// units a split must never break in two.
func atomicSpans(text string) [][2]int {
	var spans [][2]int
	for _, m := range codeBlockPattern.FindAllStringIndex(text, -1) {
		spans = append(spans, [2]int{m[0], m[1]})
	}
	for _, m := range tablePattern.FindAllStringIndex(text, -1) {
		spans = append(spans, [2]int{m[0], m[1]})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	return spans
}

func insideAtom(idx int, atoms [][2]int) bool {
	for _, a := range atoms {
		if idx > a[0] && idx < a[1] {
			return true
		}
	}
	return false
}

// splitProtected splits text on every occurrence of sep that does not
// fall inside an atomic span.
func splitProtected(text, sep string, atoms [][2]int) []string {
	var parts []string
	prev := 0
	start := 0
	for {
		i := strings.Index(text[start:], sep)
		if i < 0 {
			break
		}
		idx := start + i
		if insideAtom(idx, atoms) {
			start = idx + len(sep)
			continue
		}
		parts = append(parts, text[prev:idx])
		prev = idx + len(sep)
		start = prev
	}
	parts = append(parts, text[prev:])
	return parts
}

// absorbSmallFragments merges adjacent fragments so each ends up in
// [targetChars/4, 1.5*targetChars], per spec §4.3 step 3. A fragment
// below the minimum is always merged forward; a fragment at or above the
// minimum is only merged forward when the merge still fits the maximum.
func absorbSmallFragments(frags []fragment, targetChars int) []fragment {
	if len(frags) == 0 {
		return frags
	}

	minLen := int(float64(targetChars) * MinChunkRatio)
	maxLen := int(float64(targetChars) * MaxChunkRatio)

	var out []fragment
	cur := frags[0]
	for i := 1; i < len(frags); i++ {
		next := frags[i]
		curLen := len([]rune(cur.content))
		nextLen := len([]rune(next.content))

		if curLen < minLen {
			cur = mergeFragments(cur, next)
			continue
		}
		if nextLen < minLen && curLen+nextLen <= maxLen {
			cur = mergeFragments(cur, next)
			continue
		}

		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)

	return out
}

func mergeFragments(a, b fragment) fragment {
	headers := a.headers
	if len(headers) == 0 {
		headers = b.headers
	}
	return fragment{content: a.content + "\n\n" + b.content, headers: headers}
}

// overlapTail returns the trailing portion of content to prepend to the
// next chunk, trimmed back to the nearest whitespace so it never
// duplicates a partial word or splits a structural unit across the seam.
func overlapTail(content string, overlapChars int) string {
	if overlapChars <= 0 {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= overlapChars {
		return ""
	}
	tail := string(runes[len(runes)-overlapChars:])
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 {
		tail = tail[idx+1:]
	} else {
		return ""
	}
	if tail == "" {
		return ""
	}
	return tail + "\n\n"
}

// NoteID derives the stable per-note identifier from title and creation
// date (spec §3). SHA-1 is used purely as a compact stable key, not for
// any security property.
func NoteID(title, creationDate string) string {
	sum := sha1.Sum([]byte(title + "|" + creationDate))
	return hex.EncodeToString(sum[:])
}

// computeChunkID derives a chunk's stable identifier (spec §3).
func computeChunkID(noteID, modificationDate string, chunkIndex int) string {
	input := noteID + "|" + modificationDate + "|" + strconv.Itoa(chunkIndex)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ContentHash derives the whole-note content hash stored on a note's
// first chunk (spec §3), used by the indexing orchestrator to detect
// content changes between runs.
func ContentHash(title, markdown string) string {
	sum := sha256.Sum256([]byte(title + "\n" + markdown))
	return hex.EncodeToString(sum[:])
}
