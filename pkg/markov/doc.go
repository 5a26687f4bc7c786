/*
Package markov provides n-gram Markov chain models over string symbols, built
for telling closely related languages apart by the probability each language's
model assigns to a sentence.

A Model counts context -> target transitions with Fit or AddNewKey and keeps a
maximum-likelihood probability table derived from those counts. Predict scores
a sequence of n-grams as the product of its transition probabilities. A
transition the model has never seen is estimated from an optional back-off
chain of lower-order models, or scored with the model's floor probability.

Trained tables are persisted through a Store: FileStore writes a pair of count
and probability files per model, and SQLStore keeps them in SQLite.
*/
package markov
