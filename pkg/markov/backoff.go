package markov

// backoff estimates P(target | context) for a transition missing from the
// primary table by consulting chain[i:]. Each level forms two shorter
// transitions from the unresolved one and multiplies their estimates:
//
//	A: the context's last symbol, predicted from the symbols before it
//	B: the target, predicted from the context without its first symbol
//
// A transition that chain[i] cannot resolve descends to chain[i+1], and past the
// last model it contributes the floor. The result is a product, not a mixture.
func (m *Model) backoff(context []string, target string, chain []*Model, i int) float64 {
	if len(context) == 0 {
		return m.minProb
	}
	a := m.candidate(context[:len(context)-1], context[len(context)-1], chain, i)
	b := m.candidate(context[1:], target, chain, i)
	return a * b
}

func (m *Model) candidate(context []string, target string, chain []*Model, i int) float64 {
	if p, ok := chain[i].lookup(context, target); ok {
		return p
	}
	if i+1 < len(chain) {
		return m.backoff(context, target, chain, i+1)
	}
	return m.minProb
}
