package memory

import "strings"

// chunkText splits text into chunks of at most size characters, except for
// a single word longer than the size, which is kept whole. Roughly overlap
// characters are carried between neighbours. Splitting is sentence-first:
// whole sentences are packed into a chunk until it would overflow, and a new
// chunk starts with the trailing words of the previous one so that context
// straddling a boundary is retrievable from either side. The carry is
// dropped when it would push a chunk past the size.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}

	var chunks []string
	var cur strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(cur.String())
		cur.Reset()
		if chunk == "" {
			return
		}
		chunks = append(chunks, chunk)
		if carry := tailWords(chunk, overlap); carry != "" {
			cur.WriteString(carry)
		}
	}

	appendPiece := func(piece string) {
		if cur.Len() > 0 && cur.Len()+1+len(piece) > size {
			flush()
			// The overlap carry plus the piece can still exceed the size;
			// the size wins over the carry.
			if cur.Len() > 0 && cur.Len()+1+len(piece) > size {
				cur.Reset()
			}
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(piece)
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) <= size {
			appendPiece(sentence)
			continue
		}
		// Oversized sentence: fall back to word windows.
		for _, word := range strings.Fields(sentence) {
			appendPiece(word)
		}
	}
	flush()

	return chunks
}

// splitSentences performs a basic sentence split on terminal punctuation.
// Whitespace runs are collapsed so chunk sizes track visible characters.
func splitSentences(text string) []string {
	var sentences []string
	var sentence strings.Builder

	for _, r := range strings.Join(strings.Fields(text), " ") {
		sentence.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if trimmed := strings.TrimSpace(sentence.String()); trimmed != "" {
				sentences = append(sentences, trimmed)
			}
			sentence.Reset()
		}
	}
	if trimmed := strings.TrimSpace(sentence.String()); trimmed != "" {
		sentences = append(sentences, trimmed)
	}

	return sentences
}

// tailWords returns the longest whole-word suffix of s that fits in n
// characters.
func tailWords(s string, n int) string {
	if n <= 0 || len(s) <= n {
		if len(s) <= n {
			return s
		}
		return ""
	}

	words := strings.Fields(s)
	var carry []string
	length := 0
	for i := len(words) - 1; i >= 0; i-- {
		add := len(words[i])
		if length > 0 {
			add++
		}
		if length+add > n {
			break
		}
		carry = append([]string{words[i]}, carry...)
		length += add
	}

	return strings.Join(carry, " ")
}
