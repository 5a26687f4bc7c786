// Package corpus turns raw text into symbol sequences for the markov package.
//
// A corpus is a directory of plain text documents. Every document is split into
// sentences, every sentence into normalized symbols (lowercased words, or single
// characters with WithCharacters), and each sequence is wrapped in StartToken and
// EndToken. NGrams slides a window over a sequence to produce training and
// scoring input:
//
//	tok := corpus.NewTokenizer()
//	c, err := corpus.ReadCorpus("corpus/blr", tok)
//	if err != nil {
//		// handle error
//	}
//	for _, sentence := range c.Sentences {
//		_ = model.Fit(corpus.NGrams(sentence, 3))
//	}
package corpus
