// Package classify labels sentences with the language whose n-gram model
// explains them best.
//
// Every label owns a family of markov models trained on the same sentences: a
// primary model at the classifier's order and a back-off chain of the orders
// below it, down to bigrams. A sentence is scored by every primary model with
// its own chain and assigned the label with the highest probability.
//
// Experiment repeats shuffled train/test splits over labeled corpora and reports
// accuracy and per-label precision, recall and F1.
package classify
