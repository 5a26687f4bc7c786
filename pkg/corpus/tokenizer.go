package corpus

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
)

const (
	// StartToken opens every tokenized sentence.
	StartToken = "__START__"
	// EndToken closes every tokenized sentence.
	EndToken = "__END__"
	// NumberToken replaces every word that contains a digit.
	NumberToken = "__NUMBER__"
	// WordBoundary separates words in character mode.
	WordBoundary = " "
)

// maxSentenceSize bounds a single sentence read by a Stream.
const maxSentenceSize = 1 << 24

// Tokenizer splits text into sentences and sentences into symbols.
// Its behavior can be customized with functional options.
type Tokenizer struct {
	wordRegex   *regexp.Regexp
	numberRegex *regexp.Regexp
	stem        func(string) string
	lowercase   bool
	characters  bool
	boundaries  bool
}

// Option is a function that configures a Tokenizer.
type Option func(*Tokenizer)

// WithWordRegex sets the regex used to find words in a sentence.
// Default: `[\p{L}\p{M}\p{N}_']+`
func WithWordRegex(wordRegex string) Option {
	return func(t *Tokenizer) {
		t.wordRegex = regexp.MustCompile(wordRegex)
	}
}

// WithNumberRegex sets the regex deciding whether a word becomes NumberToken.
// Default: `\d`
func WithNumberRegex(numberRegex string) Option {
	return func(t *Tokenizer) {
		t.numberRegex = regexp.MustCompile(numberRegex)
	}
}

// WithStemmer sets a function applied to every word that is not a number.
func WithStemmer(stem func(string) string) Option {
	return func(t *Tokenizer) {
		if stem != nil {
			t.stem = stem
		}
	}
}

// WithLowercase toggles lowercasing of sentences before they are split. Default: true
func WithLowercase(lowercase bool) Option {
	return func(t *Tokenizer) {
		t.lowercase = lowercase
	}
}

// WithBoundaries toggles wrapping every sentence in StartToken and EndToken. Default: true
func WithBoundaries(boundaries bool) Option {
	return func(t *Tokenizer) {
		t.boundaries = boundaries
	}
}

// WithCharacters makes every character of a word its own symbol. Words are
// separated by WordBoundary and numbers still collapse into NumberToken.
func WithCharacters() Option {
	return func(t *Tokenizer) {
		t.characters = true
	}
}

// NewTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		// Runs of letters, combining marks, digits, underscores and apostrophes
		// holding at least one letter or digit.
		wordRegex:   regexp.MustCompile(`[\p{L}\p{M}\p{N}_']*[\p{L}\p{N}][\p{L}\p{M}\p{N}_']*`),
		numberRegex: regexp.MustCompile(`\d`),
		stem:        func(s string) string { return s },
		lowercase:   true,
		boundaries:  true,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Symbols normalizes a single sentence into its symbol sequence. A sentence
// without any word yields nil, even when boundaries are enabled.
func (t *Tokenizer) Symbols(sentence string) []string {
	if t.lowercase {
		sentence = strings.ToLower(sentence)
	}
	words := t.wordRegex.FindAllString(sentence, -1)
	if len(words) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(words)+2)
	if t.boundaries {
		symbols = append(symbols, StartToken)
	}
	for i, word := range words {
		if t.characters && i > 0 {
			symbols = append(symbols, WordBoundary)
		}
		switch {
		case t.numberRegex.MatchString(word):
			symbols = append(symbols, NumberToken)
		case t.characters:
			for _, r := range t.stem(word) {
				symbols = append(symbols, string(r))
			}
		default:
			symbols = append(symbols, t.stem(word))
		}
	}
	if t.boundaries {
		symbols = append(symbols, EndToken)
	}
	return symbols
}

// Sentences tokenizes every sentence read from r.
func (t *Tokenizer) Sentences(r io.Reader) ([][]string, error) {
	stream := t.NewStream(r)
	var sentences [][]string
	for {
		symbols, err := stream.Next()
		if err == io.EOF {
			return sentences, nil
		}
		if err != nil {
			return nil, err
		}
		sentences = append(sentences, symbols)
	}
}

// NewStream returns a stream that tokenizes r one sentence at a time.
func (t *Tokenizer) NewStream(r io.Reader) *Stream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxSentenceSize)
	scanner.Split(ScanSentences)
	return &Stream{scanner: scanner, tokenizer: t}
}

// Stream reads sentences from a reader and tokenizes them lazily.
type Stream struct {
	scanner   *bufio.Scanner
	tokenizer *Tokenizer
}

// Next returns the symbols of the next sentence that contains at least one word.
// When the stream is exhausted, it returns nil and io.EOF. Any other error
// indicates a problem reading from the underlying stream.
func (s *Stream) Next() ([]string, error) {
	for s.scanner.Scan() {
		if symbols := s.tokenizer.Symbols(s.scanner.Text()); symbols != nil {
			return symbols, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// ScanSentences is a bufio.SplitFunc that returns each sentence of the input
// with surrounding whitespace removed. A sentence ends at a run of '.', '!' or
// '?' followed by whitespace or the end of input, so "3.5" stays in one piece.
func ScanSentences(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}

	for i := start; i < len(data); i++ {
		if !isTerminator(data[i]) {
			continue
		}
		end := i + 1
		for end < len(data) && isTerminator(data[end]) {
			end++
		}
		if end == len(data) {
			if !atEOF {
				// The run of terminators may continue past the buffer.
				return start, nil, nil
			}
			return end, data[start:end], nil
		}
		if isSpace(data[end]) {
			return end, data[start:end], nil
		}
		i = end - 1
	}

	if atEOF && start < len(data) {
		return len(data), bytes.TrimRight(data[start:], " \t\n\r\v\f"), nil
	}
	return start, nil, nil
}
